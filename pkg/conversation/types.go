package conversation

// Action identifies what a matched pattern rule asks the resolver to do
type Action string

const (
	ActionClearSession    Action = "clear_session"
	ActionClearAll        Action = "clear_all"
	ActionHelp            Action = "help"
	ActionStart           Action = "start"
	ActionStop            Action = "stop"
	ActionShowCart        Action = "show_cart"
	ActionShowPrices      Action = "show_prices"
	ActionCheckout        Action = "checkout"
	ActionShowRetailers   Action = "show_retailers"
	ActionLogin           Action = "login"
	ActionMethodPhone     Action = "method_phone"
	ActionMethodEmail     Action = "method_email"
	ActionResendOTP       Action = "resend_otp"
	ActionNumericSelect   Action = "numeric_select"
	ActionBulkSelect      Action = "bulk_select"
	ActionCancelCheckout  Action = "cancel_checkout"
	ActionCancelOrder     Action = "cancel_order"
	ActionConfirmOrder    Action = "confirm_order"
	ActionEditCart        Action = "edit_cart"
	ActionRetailerForItem Action = "retailer_for_item"
	ActionSkipItem        Action = "skip_item"
	ActionAddSelected     Action = "add_selected"
)

// PatternResult is the outcome of a pattern-rule match. Args carries the
// named captures with the original casing of the message.
type PatternResult struct {
	Action Action
	Args   map[string]string
}

// Arg returns a named capture, or "" when absent
func (p *PatternResult) Arg(name string) string {
	if p.Args == nil {
		return ""
	}
	return p.Args[name]
}
