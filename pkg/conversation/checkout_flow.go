package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cartwala/cartwala/internal/domain/cart"
	"github.com/cartwala/cartwala/internal/domain/credential"
	"github.com/cartwala/cartwala/internal/domain/session"
	"github.com/cartwala/cartwala/pkg/retailer"
)

// startCheckout snapshots the cart's distinct item names and begins the
// per-item retailer walk. Requires at least one connected retailer and a
// non-empty cart.
func (r *Resolver) startCheckout(ctx context.Context, sess *session.Session) (string, error) {
	ok, err := r.requireConnectedRetailer(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgConnectFirst, nil
	}

	active, err := r.carts.FindActiveByUser(ctx, sess.UserID)
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

	next := session.Empty(sess.UserID)
	next.Flow = session.FlowCheckout
	next.Step = session.StepItemSelection
	next.Data = session.FlowData{
		CartID:     active.ID,
		Items:      names,
		Selections: make(map[string]string),
	}
	if err := r.saveSession(ctx, next); err != nil {
		return "", err
	}

	r.logger.Info("Checkout started", "user_id", sess.UserID, "cart_id", active.ID, "items", len(names))
	return r.checkoutPrompt(ctx, next)
}

// checkoutPrompt renders the current item with the prices of the user's
// connected retailers; once the index has walked past the last item it
// renders the final cart instead. "Done" is re-derived from the index on
// every message, there is no separate step for it.
func (r *Resolver) checkoutPrompt(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Data.CurrentIndex >= len(sess.Data.Items) {
		byRetailer, skipped := groupSelections(sess)
		return msgFinalCart(byRetailer, skipped), nil
	}

	item := sess.Data.Items[sess.Data.CurrentIndex]
	lines, err := r.priceLines(ctx, sess.UserID, item)
	if err != nil {
		return "", err
	}

	return msgCheckoutItem(sess.Data.CurrentIndex+1, len(sess.Data.Items), item, lines), nil
}

// priceLines fetches the item's prices restricted to the retailers the
// user has connected. A missing catalog match is not an error; the user
// can still pick a retailer blind or skip.
func (r *Resolver) priceLines(ctx context.Context, userID, item string) ([]string, error) {
	creds, err := r.creds.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	connected := make([]string, 0, len(creds))
	for _, c := range creds {
		connected = append(connected, c.Retailer)
	}

	suggestions, err := r.products.SearchByName(ctx, item, 1)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return []string{"No catalog prices found for this one."}, nil
	}

	prices, err := r.products.PricesForRetailers(ctx, suggestions[0].Product.ID, connected)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(prices))
	for _, p := range prices {
		if !p.InStock {
			lines = append(lines, fmt.Sprintf("%s: out of stock", p.Retailer))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", p.Retailer, formatRupees(p.PricePaise)))
	}
	if len(lines) == 0 {
		lines = append(lines, "None of your retailers list this one.")
	}
	return lines, nil
}

// selectRetailerForItem records a pick for the current item and advances
// the walk by one
func (r *Resolver) selectRetailerForItem(ctx context.Context, sess *session.Session, name, item string) (string, error) {
	if sess.Data.CurrentIndex >= len(sess.Data.Items) {
		byRetailer, skipped := groupSelections(sess)
		return msgFinalCart(byRetailer, skipped), nil
	}

	current := sess.Data.Items[sess.Data.CurrentIndex]
	if !strings.EqualFold(strings.TrimSpace(item), current) {
		return msgWrongItem(current), nil
	}

	name = retailer.Normalize(name)
	if _, err := r.creds.FindByUserAndRetailer(ctx, sess.UserID, name); err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return msgRetailerNotConnected(name), nil
		}
		return "", err
	}

	// an empty selections map is dropped by the JSON round-trip through
	// storage and comes back nil; allocate on first write
	if sess.Data.Selections == nil {
		sess.Data.Selections = make(map[string]string)
	}
	sess.Data.Selections[current] = name
	sess.Data.CurrentIndex++
	if err := r.saveSession(ctx, sess); err != nil {
		return "", err
	}

	return r.checkoutPrompt(ctx, sess)
}

// skipItem leaves the current item without a retailer and advances
func (r *Resolver) skipItem(ctx context.Context, sess *session.Session, item string) (string, error) {
	if sess.Data.CurrentIndex >= len(sess.Data.Items) {
		byRetailer, skipped := groupSelections(sess)
		return msgFinalCart(byRetailer, skipped), nil
	}

	current := sess.Data.Items[sess.Data.CurrentIndex]
	if !strings.EqualFold(strings.TrimSpace(item), current) {
		return msgWrongItem(current), nil
	}

	delete(sess.Data.Selections, current)
	sess.Data.CurrentIndex++
	if err := r.saveSession(ctx, sess); err != nil {
		return "", err
	}

	return r.checkoutPrompt(ctx, sess)
}

// confirmOrder finishes the checkout. Refused until every item has been
// visited or skipped; the session survives the refusal untouched.
func (r *Resolver) confirmOrder(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Flow != session.FlowCheckout {
		return msgNoActiveCheckout, nil
	}
	if sess.Data.CurrentIndex < len(sess.Data.Items) {
		return msgConfirmBeforeDone, nil
	}

	active, err := r.carts.FindActiveByUser(ctx, sess.UserID)
	if err != nil && !errors.Is(err, cart.ErrNotFound) {
		return "", err
	}
	if active != nil {
		for i := range active.Items {
			picked, ok := sess.Data.Selections[active.Items[i].Name]
			if !ok {
				continue
			}
			active.Items[i].Retailer = picked
			if err := r.carts.UpdateItem(ctx, &active.Items[i]); err != nil {
				return "", err
			}
		}
		if err := r.carts.UpdateStatus(ctx, active.ID, cart.StatusOrdered); err != nil {
			return "", err
		}
	}

	byRetailer, _ := groupSelections(sess)
	if err := r.sessions.Clear(ctx, sess.UserID); err != nil {
		return "", err
	}

	r.logger.Info("Order confirmed", "user_id", sess.UserID, "cart_id", sess.Data.CartID, "retailers", len(byRetailer))
	return msgOrderConfirmed(byRetailer), nil
}

// editCart restarts the walk at the first item, keeping the picks made
// so far
func (r *Resolver) editCart(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Flow != session.FlowCheckout {
		return msgNoActiveCheckout, nil
	}

	sess.Data.CurrentIndex = 0
	if err := r.saveSession(ctx, sess); err != nil {
		return "", err
	}

	return r.checkoutPrompt(ctx, sess)
}

// groupSelections splits the walked items into per-retailer groups and
// the skipped remainder
func groupSelections(sess *session.Session) (map[string][]string, []string) {
	byRetailer := make(map[string][]string)
	var skipped []string
	for _, item := range sess.Data.Items {
		picked, ok := sess.Data.Selections[item]
		if !ok || picked == "" {
			skipped = append(skipped, item)
			continue
		}
		byRetailer[picked] = append(byRetailer[picked], item)
	}
	return byRetailer, skipped
}
