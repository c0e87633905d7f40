package conversation

import (
	"fmt"
	"strings"

	"github.com/cartwala/cartwala/internal/domain/product"
	"github.com/cartwala/cartwala/pkg/retailer"
)

// Every failure path the user can see ends in one of these fixed
// templates; raw errors never reach the chat.
const (
	msgApology = "Sorry, something went wrong on our side. Please try again in a moment."

	msgAccountSetup = "Let's set up your account first. Send \"login <retailer>\" to connect a retailer, for example \"login zepto\"."

	msgDidNotUnderstand = "I didn't quite get that. Send \"help\" to see what I can do."

	msgHelp = "Here's what I can do:\n" +
		"- Order groceries: \"Order milk and bread to <your address>\"\n" +
		"- \"show cart\" / \"show prices\" / \"checkout\"\n" +
		"- Connect a retailer: \"login zepto\"\n" +
		"- \"show retailers\" lists your connected accounts\n" +
		"- \"clear session\" starts over, \"clear all\" wipes everything"

	msgWelcome = "Hi! I'm Cartwala. Tell me what you need, like \"Order milk and bread to 123 Main St, Bangalore\", and I'll compare prices across your retailers."

	msgStopped = "You won't hear from me unless you message first. Send \"start\" anytime."

	msgSessionCleared = "Done, I've reset our conversation."

	msgAllCleared = "Done, I've cleared your session, cart and connected retailer accounts."

	msgCartEmpty = "Your cart is empty. Tell me what you need, like \"Order milk and bread\"."

	msgConnectFirst = "You'll need to connect your retailer accounts first. Send \"login <retailer>\", for example \"login zepto\"."

	msgNoRetailers = "You haven't connected any retailers yet. Send \"login zepto\" (or blinkit, bigbasket, instamart) to get started."

	msgNoActiveOTP = "There's no active OTP request. Send \"login <retailer>\" to connect an account."

	msgAskMethod = "How do you want to log in?\n1. phone (OTP)\n2. email and password\nReply \"phone\" or \"email\"."

	msgInvalidPhone = "That doesn't look like a phone number. Please send it in international format, like +919876543210."

	msgInvalidOTP = "The code should be exactly 6 digits. Please check and resend it."

	msgInvalidEmail = "That doesn't look like an email address. Please send something like you@example.com."

	msgAskPassword = "Got it. Now send your password for that account."

	msgAskAddress = "Where should the order go? Send me your delivery address."

	msgNoItems = "What would you like to order? For example: \"Order milk and bread\"."

	msgNothingToCancel = "There's nothing in progress to cancel."

	msgNoActiveCheckout = "There's no checkout in progress. Send \"checkout\" to start one."

	msgNoItemsSelected = "No items selected. Start an order first, like \"Order milk and bread\"."

	msgCheckoutCancelled = "Checkout cancelled. Your cart is untouched."

	msgOrderCancelled = "Order cancelled."

	msgConfirmBeforeDone = "A few items still need a retailer (or a skip) before I can confirm. Keep going, or send \"cancel checkout\"."

	msgPickRetailerHint = "Reply \"<retailer> for <item>\" to pick, or \"skip <item>\"."

	msgNoLoginInProgress = "There's no login in progress. Send \"login <retailer>\" to connect an account."

	msgSelectionHint = "To pick a suggestion, start an order first. Selections work while I'm showing you product matches."
)

func msgAddressSaved(address string) string {
	return fmt.Sprintf("I'll deliver to:\n%s\nIs that right? (yes/no)", address)
}

func msgAddressConfirmed() string {
	return "Address confirmed. What would you like to order?"
}

func msgUnsupportedRetailer(name string) string {
	return fmt.Sprintf("I don't support %q yet. I work with: %s.", name, strings.Join(retailer.Supported(), ", "))
}

func msgAlreadyConnected(name string) string {
	return fmt.Sprintf("Your %s account is already connected. Send \"show retailers\" to see all of them.", name)
}

func msgOTPSent(phone string) string {
	return fmt.Sprintf("I've asked for a login code to be sent to %s. Reply with the 6-digit code.", phone)
}

func msgAuthDone(name string) string {
	return fmt.Sprintf("Your %s account is connected. Send \"checkout\" when your cart is ready.", name)
}

func msgConnectedRetailers(names []string) string {
	if len(names) == 0 {
		return msgNoRetailers
	}
	return fmt.Sprintf("Connected retailers: %s.", strings.Join(names, ", "))
}

func msgItemsAdded(names []string) string {
	return fmt.Sprintf("Added to your cart: %s. Send \"show cart\" to review or \"checkout\" when ready.", strings.Join(names, ", "))
}

func msgItemRemoved(name string) string {
	return fmt.Sprintf("Removed %s from your cart.", name)
}

func msgItemNotInCart(name string) string {
	return fmt.Sprintf("I couldn't find %s in your cart.", name)
}

func formatCart(items []string) string {
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for i, name := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	b.WriteString("Send \"checkout\" to pick retailers, or \"show prices\" to compare.")
	return b.String()
}

func formatRupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}

// formatSuggestions renders the numbered candidate list the order flow
// asks the user to pick from with "N for <item>"
func formatSuggestions(item string, suggestions []product.Suggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For %s:\n", item)
	for i, s := range suggestions {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, s.Product.Name, s.Product.Unit)
		if best := s.BestPrice(); best != nil {
			fmt.Fprintf(&b, ", from %s at %s", formatRupees(best.PricePaise), best.Retailer)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func msgSuggestionsFooter() string {
	return "Reply \"<number> for <item>\" to pick, \"all 1\" to take the first match for everything, then \"add selected\". \"cancel order\" backs out."
}

func msgSelectionOutOfRange(item string, max int) string {
	if max == 0 {
		return fmt.Sprintf("I have no suggestions for %s. \"add selected\" will add it as-is.", item)
	}
	return fmt.Sprintf("Pick a number between 1 and %d for %s.", max, item)
}

func msgItemNotRequested(item string) string {
	return fmt.Sprintf("%s isn't part of this order. Check the item name and try again.", item)
}

func msgSelectionRecorded(item string) string {
	return fmt.Sprintf("Noted for %s. Send \"add selected\" when you're done picking.", item)
}

func msgBulkRecorded(n, applied int) string {
	return fmt.Sprintf("Took option %d for %d item(s). Send \"add selected\" when you're done.", n, applied)
}

func msgAddedSelected(count int) string {
	return fmt.Sprintf("Added %d item(s) to your cart. Send \"checkout\" to pick retailers per item.", count)
}

func msgCheckoutItem(position, total int, item string, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item %d of %d: %s\n", position, total, item)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(msgPickRetailerHint)
	return b.String()
}

func msgRetailerNotConnected(name string) string {
	return fmt.Sprintf("%s isn't one of your connected retailers. %s", name, msgPickRetailerHint)
}

func msgWrongItem(current string) string {
	return fmt.Sprintf("We're on %s right now. %s", current, msgPickRetailerHint)
}

// msgFinalCart renders the end-of-walk summary with per-retailer
// checkout links
func msgFinalCart(byRetailer map[string][]string, skipped []string) string {
	var b strings.Builder
	b.WriteString("Here's your order:\n")
	for _, r := range retailer.Supported() {
		items, ok := byRetailer[r]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", r, strings.Join(items, ", "))
	}
	if len(skipped) > 0 {
		fmt.Fprintf(&b, "Skipped: %s\n", strings.Join(skipped, ", "))
	}
	b.WriteString("Send \"confirm order\" to finish, \"edit cart\" to walk through again, or \"cancel checkout\".")
	return b.String()
}

func msgOrderConfirmed(byRetailer map[string][]string) string {
	var b strings.Builder
	b.WriteString("Order confirmed! Open each retailer to pay:\n")
	for _, r := range retailer.Supported() {
		items, ok := byRetailer[r]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s (%s): %s\n", r, strings.Join(items, ", "), retailer.CheckoutLink(r))
	}
	return b.String()
}
