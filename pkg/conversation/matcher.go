package conversation

import (
	"regexp"
	"strings"
)

// rule is one entry of the pattern table: either a set of exact
// lowercase-trimmed strings or a regex with named captures
type rule struct {
	exact   []string
	pattern *regexp.Regexp
	action  Action
}

// rules is the pattern table, evaluated top to bottom; the first match
// wins and the order is never changed by flow state. Emergency resets
// stay first so they work from any state, and the numeric selection
// shape is listed before the retailer-for-item shape because both match
// "X for Y" messages.
var rules = []rule{
	// 1. emergency resets
	{exact: []string{"clear all", "reset all"}, action: ActionClearAll},
	{exact: []string{"clear session", "reset"}, action: ActionClearSession},

	// 2. simple commands
	{exact: []string{"help"}, action: ActionHelp},
	{exact: []string{"start", "hi", "hello"}, action: ActionStart},
	{exact: []string{"stop", "unsubscribe"}, action: ActionStop},
	{exact: []string{"show cart", "view cart", "cart"}, action: ActionShowCart},
	{exact: []string{"show prices", "prices", "compare prices"}, action: ActionShowPrices},
	{exact: []string{"checkout"}, action: ActionCheckout},
	{exact: []string{"show retailers", "connected retailers", "show connected retailers", "my retailers"}, action: ActionShowRetailers},

	// 3. login command
	{pattern: regexp.MustCompile(`^(?i)login\s+(?P<retailer>\S+)$`), action: ActionLogin},

	// 4. login-method tokens; only actionable while a flow awaits a
	// method choice, but the matcher always recognizes them
	{exact: []string{"phone", "1"}, action: ActionMethodPhone},
	{exact: []string{"email", "2"}, action: ActionMethodEmail},

	// 5. otp resend
	{exact: []string{"resend otp", "resend"}, action: ActionResendOTP},

	// 6. structured selection syntax
	{pattern: regexp.MustCompile(`^(?P<number>\d+)\s+(?i:for)\s+(?P<item>.+)$`), action: ActionNumericSelect},
	{pattern: regexp.MustCompile(`^(?i)all\s+(?P<number>\d+)$`), action: ActionBulkSelect},

	// 7. checkout-flow syntax; retailer-for-item only fires after the
	// numeric shape above failed to match
	{exact: []string{"cancel checkout"}, action: ActionCancelCheckout},
	{exact: []string{"cancel order"}, action: ActionCancelOrder},
	{exact: []string{"confirm order"}, action: ActionConfirmOrder},
	{exact: []string{"edit cart"}, action: ActionEditCart},
	{pattern: regexp.MustCompile(`^(?P<retailer>\w+)\s+(?i:for)\s+(?P<item>.+)$`), action: ActionRetailerForItem},
	{pattern: regexp.MustCompile(`^(?i)skip\s+(?P<item>.+)$`), action: ActionSkipItem},

	// 8. order-flow terminal
	{exact: []string{"add selected"}, action: ActionAddSelected},
}

// Match runs the pattern table against a raw message. Comparison happens
// on a lowercase-trimmed copy; captures keep the original casing so
// actions that care about case (addresses, item names) see the message
// as typed. The matcher is side-effect free.
func Match(raw string) (*PatternResult, bool) {
	trimmed := strings.TrimSpace(raw)
	lowered := strings.ToLower(trimmed)

	for _, r := range rules {
		for _, e := range r.exact {
			if lowered == e {
				return &PatternResult{Action: r.action}, true
			}
		}
		if r.pattern == nil {
			continue
		}
		m := r.pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		args := make(map[string]string)
		for i, name := range r.pattern.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			args[name] = strings.TrimSpace(m[i])
		}
		return &PatternResult{Action: r.action, Args: args}, true
	}

	return nil, false
}
