package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cartwala/cartwala/internal/domain/cart"
	"github.com/cartwala/cartwala/internal/domain/session"
	"github.com/cartwala/cartwala/pkg/classifier"
)

// dispatchIntent maps a classifier verdict to a standalone handler. Only
// authentication and order can start a flow from here; everything else
// answers and leaves the session alone.
func (r *Resolver) dispatchIntent(ctx context.Context, sess *session.Session, intent *classifier.Intent, text string) (string, error) {
	tag := classifier.Normalize(intent.Tag)
	r.logger.Debug("Dispatching classified intent", "user_id", sess.UserID, "intent", tag, "confidence", intent.Confidence)

	switch tag {
	case classifier.TagOrder:
		return r.handleOrder(ctx, sess, intent)
	case classifier.TagAddItem:
		return r.handleAddItem(ctx, sess.UserID, intent)
	case classifier.TagRemoveItem:
		return r.handleRemoveItem(ctx, sess.UserID, intent)
	case classifier.TagShowPrices:
		return r.handleShowPrices(ctx, sess.UserID)
	case classifier.TagShowCart:
		return r.handleShowCart(ctx, sess.UserID)
	case classifier.TagAddressConfirmation:
		return r.handleAddressConfirmation(ctx, sess.UserID, intent)
	case classifier.TagAuthentication:
		if intent.Retailer == "" {
			return msgNoRetailers, nil
		}
		return r.startAuth(ctx, sess, intent.Retailer)
	case classifier.TagCredentialInput:
		return r.handleCredentialInput(sess), nil
	case classifier.TagProductSelection:
		return r.handleProductSelection(ctx, sess.UserID)
	case classifier.TagRetailerSelection:
		return r.handleRetailerSelection(ctx, sess)
	}

	return msgDidNotUnderstand, nil
}

// handleShowCart renders the active cart
func (r *Resolver) handleShowCart(ctx context.Context, userID string) (string, error) {
	active, err := r.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return msgCartEmpty, nil
		}
		return "", err
	}
	if len(active.Items) == 0 {
		return msgCartEmpty, nil
	}

	lines := make([]string, 0, len(active.Items))
	for _, it := range active.Items {
		if it.Quantity > 1 {
			lines = append(lines, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
			continue
		}
		lines = append(lines, it.Name)
	}
	return formatCart(lines), nil
}

// handleShowPrices renders the best catalog price per cart item
func (r *Resolver) handleShowPrices(ctx context.Context, userID string) (string, error) {
	active, err := r.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return msgCartEmpty, nil
		}
		return "", err
	}
	names := active.ItemNames()
	if len(names) == 0 {
		return msgCartEmpty, nil
	}

	var b strings.Builder
	b.WriteString("Best prices right now:\n")
	for _, name := range names {
		suggestions, err := r.products.SearchByName(ctx, name, 1)
		if err != nil {
			return "", err
		}
		if len(suggestions) == 0 {
			fmt.Fprintf(&b, "%s: no match found\n", name)
			continue
		}
		best := suggestions[0].BestPrice()
		if best == nil {
			fmt.Fprintf(&b, "%s: out of stock everywhere\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s: %s at %s (%s)\n", name, formatRupees(best.PricePaise), best.Retailer, suggestions[0].Product.Name)
	}
	b.WriteString("Send \"checkout\" to pick retailers per item.")
	return b.String(), nil
}

// handleShowRetailers lists the user's connected accounts
func (r *Resolver) handleShowRetailers(ctx context.Context, userID string) (string, error) {
	creds, err := r.creds.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(creds))
	for _, c := range creds {
		names = append(names, c.Retailer)
	}
	return msgConnectedRetailers(names), nil
}

// handleAddItem appends classified items to the active cart, creating
// one if needed
func (r *Resolver) handleAddItem(ctx context.Context, userID string, intent *classifier.Intent) (string, error) {
	if len(intent.Items) == 0 {
		return msgNoItems, nil
	}

	active, err := r.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, cart.ErrNotFound) {
			return "", err
		}
		active = cart.NewCart(userID)
		if err := r.carts.Create(ctx, active); err != nil {
			return "", err
		}
	}

	names := make([]string, 0, len(intent.Items))
	for _, item := range intent.Items {
		line, err := cart.NewItem(active.ID, item.Name, item.Quantity)
		if err != nil {
			return "", err
		}
		if err := r.carts.AddItem(ctx, line); err != nil {
			return "", err
		}
		names = append(names, item.Name)
	}

	return msgItemsAdded(names), nil
}

// handleRemoveItem deletes classified items from the active cart
func (r *Resolver) handleRemoveItem(ctx context.Context, userID string, intent *classifier.Intent) (string, error) {
	if len(intent.Items) == 0 {
		return msgDidNotUnderstand, nil
	}

	active, err := r.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return msgCartEmpty, nil
		}
		return "", err
	}

	var replies []string
	for _, item := range intent.Items {
		removed, err := r.carts.RemoveItemByName(ctx, active.ID, item.Name)
		if err != nil {
			return "", err
		}
		if removed > 0 {
			replies = append(replies, msgItemRemoved(item.Name))
			continue
		}
		replies = append(replies, msgItemNotInCart(item.Name))
	}
	return strings.Join(replies, "\n"), nil
}

// handleAddressConfirmation settles the pending delivery address.
// Address confirmation is deliberately not a session flow: the user row
// carries the pending state and the session stays empty throughout.
func (r *Resolver) handleAddressConfirmation(ctx context.Context, userID string, intent *classifier.Intent) (string, error) {
	u, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Address == "" {
		return msgAskAddress, nil
	}
	if intent.Confirmed == nil {
		return msgAddressSaved(u.Address), nil
	}

	if !*intent.Confirmed {
		u.SetAddress("")
		if err := r.users.Update(ctx, u); err != nil {
			return "", err
		}
		return msgAskAddress, nil
	}

	u.ConfirmAddress()
	if err := r.users.Update(ctx, u); err != nil {
		return "", err
	}
	return msgAddressConfirmed(), nil
}

// handleCredentialInput answers credential-looking text that no flow
// claimed
func (r *Resolver) handleCredentialInput(sess *session.Session) string {
	if sess.Flow == session.FlowAuth && sess.Step == session.StepMethodSelection {
		return msgAskMethod
	}
	return msgNoLoginInProgress
}

// handleProductSelection answers selection syntax arriving outside an
// order flow
func (r *Resolver) handleProductSelection(ctx context.Context, userID string) (string, error) {
	active, err := r.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return msgCartEmpty, nil
		}
		return "", err
	}
	if len(active.Items) == 0 {
		return msgCartEmpty, nil
	}
	return msgSelectionHint, nil
}

// handleRetailerSelection answers retailer picks; mid-checkout it
// re-prompts the current item
func (r *Resolver) handleRetailerSelection(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Flow == session.FlowCheckout {
		return r.checkoutPrompt(ctx, sess)
	}
	return msgNoActiveCheckout, nil
}
