package conversation

import (
	"context"
	"strconv"
	"strings"

	"github.com/cartwala/cartwala/internal/domain/cart"
	"github.com/cartwala/cartwala/internal/domain/session"
	"github.com/cartwala/cartwala/pkg/classifier"
)

const suggestionLimit = 3

// handleOrder is the entry point for the classifier's "order" intent.
// An address carried in the message is saved (unconfirmed) before any
// other guard runs; ordering itself requires a connected retailer, a
// confirmed address and at least one parsed item, and ends in the
// suggestion-selection mode of the order flow.
func (r *Resolver) handleOrder(ctx context.Context, sess *session.Session, intent *classifier.Intent) (string, error) {
	if intent.Address != "" {
		u, err := r.users.FindByID(ctx, sess.UserID)
		if err != nil {
			return "", err
		}
		u.SetAddress(intent.Address)
		if err := r.users.Update(ctx, u); err != nil {
			return "", err
		}
		return msgAddressSaved(u.Address), nil
	}

	ok, err := r.requireConnectedRetailer(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgConnectFirst, nil
	}

	u, err := r.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	if u.Address == "" || !u.AddressConfirmed {
		return msgAskAddress, nil
	}

	if len(intent.Items) == 0 {
		return msgNoItems, nil
	}

	// fresh cart for this order; any earlier active cart is abandoned
	if err := r.carts.ClearByUser(ctx, sess.UserID); err != nil {
		return "", err
	}
	newCart := cart.NewCart(sess.UserID)
	if err := r.carts.Create(ctx, newCart); err != nil {
		return "", err
	}

	names := make([]string, 0, len(intent.Items))
	var b strings.Builder
	for _, item := range intent.Items {
		names = append(names, item.Name)
		suggestions, err := r.products.SearchByName(ctx, item.Name, suggestionLimit)
		if err != nil {
			return "", err
		}
		b.WriteString(formatSuggestions(item.Name, suggestions))
	}
	b.WriteString(msgSuggestionsFooter())

	next := session.Empty(sess.UserID)
	next.Flow = session.FlowOrder
	next.Step = session.StepSuggestionSelection
	next.Data = session.FlowData{
		CartID:     newCart.ID,
		Items:      names,
		Selections: make(map[string]string),
	}
	if err := r.saveSession(ctx, next); err != nil {
		return "", err
	}

	r.logger.Info("Order flow started", "user_id", sess.UserID, "cart_id", newCart.ID, "items", len(names))
	return b.String(), nil
}

// recordNumericSelection stores a "N for <item>" pick against the
// candidate suggestions; the flow stays in suggestion_selection
func (r *Resolver) recordNumericSelection(ctx context.Context, sess *session.Session, number, item string) (string, error) {
	canonical, ok := findRequestedItem(sess.Data.Items, item)
	if !ok {
		return msgItemNotRequested(item), nil
	}

	suggestions, err := r.products.SearchByName(ctx, canonical, suggestionLimit)
	if err != nil {
		return "", err
	}

	n, err := strconv.Atoi(number)
	if err != nil || n < 1 || n > len(suggestions) {
		return msgSelectionOutOfRange(canonical, len(suggestions)), nil
	}

	// an empty selections map is dropped by the JSON round-trip through
	// storage and comes back nil; allocate on first write
	if sess.Data.Selections == nil {
		sess.Data.Selections = make(map[string]string)
	}
	sess.Data.Selections[canonical] = suggestions[n-1].Product.ID
	if err := r.saveSession(ctx, sess); err != nil {
		return "", err
	}

	return msgSelectionRecorded(canonical), nil
}

// recordBulkSelection applies "all N" across every requested item that
// has at least N candidates
func (r *Resolver) recordBulkSelection(ctx context.Context, sess *session.Session, number string) (string, error) {
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 {
		return msgSelectionOutOfRange("your items", 0), nil
	}

	if sess.Data.Selections == nil {
		sess.Data.Selections = make(map[string]string)
	}

	applied := 0
	for _, item := range sess.Data.Items {
		suggestions, err := r.products.SearchByName(ctx, item, suggestionLimit)
		if err != nil {
			return "", err
		}
		if n > len(suggestions) {
			continue
		}
		sess.Data.Selections[item] = suggestions[n-1].Product.ID
		applied++
	}

	if err := r.saveSession(ctx, sess); err != nil {
		return "", err
	}

	return msgBulkRecorded(n, applied), nil
}

// addSelected adds every requested item to the pre-created cart, using
// the picked product where one exists and a bare fallback otherwise,
// then ends the flow
func (r *Resolver) addSelected(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Flow != session.FlowOrder {
		return msgNoItemsSelected, nil
	}

	for _, name := range sess.Data.Items {
		item, err := cart.NewItem(sess.Data.CartID, name, 1)
		if err != nil {
			return "", err
		}
		if productID, ok := sess.Data.Selections[name]; ok {
			item.ProductID = productID
		}
		if err := r.carts.AddItem(ctx, item); err != nil {
			return "", err
		}
	}

	count := len(sess.Data.Items)
	if err := r.sessions.Clear(ctx, sess.UserID); err != nil {
		return "", err
	}

	r.logger.Info("Selections added to cart", "user_id", sess.UserID, "cart_id", sess.Data.CartID, "items", count)
	return msgAddedSelected(count), nil
}

// findRequestedItem matches user input against the requested item names
// case-insensitively and returns the canonical name
func findRequestedItem(items []string, input string) (string, bool) {
	input = strings.TrimSpace(input)
	for _, name := range items {
		if strings.EqualFold(name, input) {
			return name, true
		}
	}
	return "", false
}
