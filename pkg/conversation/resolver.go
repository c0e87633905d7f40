package conversation

import (
	"context"
	"strings"

	"github.com/cartwala/cartwala/internal/domain/cart"
	"github.com/cartwala/cartwala/internal/domain/chat"
	"github.com/cartwala/cartwala/internal/domain/credential"
	"github.com/cartwala/cartwala/internal/domain/product"
	"github.com/cartwala/cartwala/internal/domain/session"
	"github.com/cartwala/cartwala/internal/domain/user"
	"github.com/cartwala/cartwala/pkg/classifier"
	"github.com/cartwala/cartwala/pkg/logger"
	"github.com/cartwala/cartwala/pkg/retailer"
	"github.com/cartwala/cartwala/pkg/secret"
)

// Resolver decides, for each inbound message, which conversational state
// the user is in, which handler runs, and what the next session state
// becomes. Pattern rules are consulted first, then the active flow, then
// the intent classifier.
type Resolver struct {
	logger     logger.Logger
	sessions   session.Repository
	users      user.Repository
	carts      cart.Repository
	creds      credential.Repository
	products   product.Repository
	history    chat.Repository
	classifier classifier.Classifier
	otp        retailer.OTPGateway
	box        *secret.Box
	locks      *userLocks
}

// NewResolver wires the resolver with its collaborators
func NewResolver(
	log logger.Logger,
	sessions session.Repository,
	users user.Repository,
	carts cart.Repository,
	creds credential.Repository,
	products product.Repository,
	history chat.Repository,
	cls classifier.Classifier,
	otp retailer.OTPGateway,
	box *secret.Box,
) *Resolver {
	return &Resolver{
		logger:     log,
		sessions:   sessions,
		users:      users,
		carts:      carts,
		creds:      creds,
		products:   products,
		history:    history,
		classifier: cls,
		otp:        otp,
		box:        box,
		locks:      newUserLocks(),
	}
}

// Handle resolves one inbound text message and returns the reply body.
// It is the error boundary: bad user input is re-prompted in place by the
// handlers, collaborator failures are logged and turned into a fixed
// apology, and auth-storage failures get the friendlier account-setup
// message. Same-user messages are serialized on a per-user lock so two
// near-simultaneous messages cannot clobber each other's session write.
func (r *Resolver) Handle(ctx context.Context, userID, text string) string {
	unlock := r.locks.lock(userID)
	defer unlock()

	reply, err := r.resolve(ctx, userID, text)
	if err != nil {
		r.logger.Error("Failed to resolve message", "user_id", userID, "error", err)
		if isAuthStorageError(err) {
			return msgAccountSetup
		}
		return msgApology
	}
	return reply
}

// HandleLocation stores a shared location pin as the user's pending
// delivery address and asks for confirmation. It runs before the text
// cascade, so a pin always updates the address regardless of flow state.
func (r *Resolver) HandleLocation(ctx context.Context, userID, address string) string {
	unlock := r.locks.lock(userID)
	defer unlock()

	u, err := r.users.FindByID(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load user for location pin", "user_id", userID, "error", err)
		return msgApology
	}

	u.SetAddress(address)
	if err := r.users.Update(ctx, u); err != nil {
		r.logger.Error("Failed to store pinned address", "user_id", userID, "error", err)
		return msgApology
	}

	return msgAddressSaved(address)
}

// resolve runs the pattern → active flow → classifier cascade
func (r *Resolver) resolve(ctx context.Context, userID, text string) (string, error) {
	sess, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	// a flow kind without a valid step is garbage from an interrupted
	// flow; correct it silently before anything else runs
	if sess.Stale() {
		r.logger.Warn("Clearing stale session", "user_id", userID, "flow", sess.Flow, "step", sess.Step)
		if err := r.sessions.Clear(ctx, userID); err != nil {
			return "", err
		}
		sess = session.Empty(userID)
	}

	if match, ok := Match(text); ok {
		return r.dispatchPattern(ctx, sess, match, text)
	}

	// free text while a flow is waiting for input
	if sess.Active() {
		if reply, handled, err := r.continueFlow(ctx, sess, text); handled {
			return reply, err
		}
	}

	intent, err := r.classifier.Classify(ctx, text)
	if err != nil {
		return "", err
	}
	return r.dispatchIntent(ctx, sess, intent, text)
}

// dispatchPattern routes a pattern-rule hit. Several rules are only
// actionable in a particular flow state; when they are not, they either
// degrade to a guidance message or fall through to the classifier,
// matching how each rule is specified.
func (r *Resolver) dispatchPattern(ctx context.Context, sess *session.Session, match *PatternResult, text string) (string, error) {
	switch match.Action {
	case ActionClearSession:
		if err := r.sessions.Clear(ctx, sess.UserID); err != nil {
			return "", err
		}
		return msgSessionCleared, nil

	case ActionClearAll:
		if err := r.sessions.Clear(ctx, sess.UserID); err != nil {
			return "", err
		}
		if err := r.carts.ClearByUser(ctx, sess.UserID); err != nil {
			return "", err
		}
		if err := r.creds.DeleteByUser(ctx, sess.UserID); err != nil {
			return "", err
		}
		if err := r.history.DeleteUserHistory(ctx, sess.UserID); err != nil {
			return "", err
		}
		return msgAllCleared, nil

	case ActionHelp:
		return msgHelp, nil

	case ActionStart:
		return msgWelcome, nil

	case ActionStop:
		return msgStopped, nil

	case ActionShowCart:
		return r.handleShowCart(ctx, sess.UserID)

	case ActionShowPrices:
		return r.handleShowPrices(ctx, sess.UserID)

	case ActionShowRetailers:
		return r.handleShowRetailers(ctx, sess.UserID)

	case ActionCheckout:
		return r.startCheckout(ctx, sess)

	case ActionLogin:
		return r.startAuth(ctx, sess, match.Arg("retailer"))

	case ActionMethodPhone, ActionMethodEmail:
		// only meaningful while auth awaits a method choice; on their
		// own these tokens are ambiguous and go to the classifier
		if sess.Flow == session.FlowAuth && sess.Step == session.StepMethodSelection {
			return r.selectAuthMethod(ctx, sess, match.Action)
		}
		return r.classifyAndDispatch(ctx, sess, text)

	case ActionResendOTP:
		return r.resendOTP(ctx, sess)

	case ActionNumericSelect, ActionBulkSelect:
		if sess.Flow == session.FlowOrder && sess.Step == session.StepSuggestionSelection {
			if match.Action == ActionNumericSelect {
				return r.recordNumericSelection(ctx, sess, match.Arg("number"), match.Arg("item"))
			}
			return r.recordBulkSelection(ctx, sess, match.Arg("number"))
		}
		if sess.Flow == session.FlowCheckout {
			// numeric picks mean nothing mid-checkout; re-prompt in place
			return msgPickRetailerHint, nil
		}
		return r.classifyAndDispatch(ctx, sess, text)

	case ActionCancelCheckout:
		if sess.Flow == session.FlowCheckout {
			if err := r.sessions.Clear(ctx, sess.UserID); err != nil {
				return "", err
			}
			return msgCheckoutCancelled, nil
		}
		return msgNothingToCancel, nil

	case ActionCancelOrder:
		if sess.Flow == session.FlowCheckout || sess.Flow == session.FlowOrder {
			if err := r.sessions.Clear(ctx, sess.UserID); err != nil {
				return "", err
			}
			if sess.Flow == session.FlowCheckout {
				return msgCheckoutCancelled, nil
			}
			return msgOrderCancelled, nil
		}
		return msgNothingToCancel, nil

	case ActionConfirmOrder:
		return r.confirmOrder(ctx, sess)

	case ActionEditCart:
		return r.editCart(ctx, sess)

	case ActionRetailerForItem:
		if sess.Flow == session.FlowCheckout && sess.Step == session.StepItemSelection {
			return r.selectRetailerForItem(ctx, sess, match.Arg("retailer"), match.Arg("item"))
		}
		return r.classifyAndDispatch(ctx, sess, text)

	case ActionSkipItem:
		if sess.Flow == session.FlowCheckout && sess.Step == session.StepItemSelection {
			return r.skipItem(ctx, sess, match.Arg("item"))
		}
		return msgNoActiveCheckout, nil

	case ActionAddSelected:
		return r.addSelected(ctx, sess)
	}

	return msgDidNotUnderstand, nil
}

// continueFlow lets an active flow claim free text. Only the auth input
// steps consume arbitrary text; every other state leaves unmatched
// messages to the classifier (in method_selection this is deliberate:
// anything but the two tokens is presumed a change of topic).
func (r *Resolver) continueFlow(ctx context.Context, sess *session.Session, text string) (string, bool, error) {
	if sess.Flow != session.FlowAuth {
		return "", false, nil
	}

	switch sess.Step {
	case session.StepPhoneInput:
		reply, err := r.submitPhone(ctx, sess, text)
		return reply, true, err
	case session.StepOTPInput:
		reply, err := r.submitOTP(ctx, sess, text)
		return reply, true, err
	case session.StepEmailInput:
		reply, err := r.submitEmail(ctx, sess, text)
		return reply, true, err
	case session.StepPasswordInput:
		reply, err := r.submitPassword(ctx, sess, text)
		return reply, true, err
	}

	return "", false, nil
}

// classifyAndDispatch is the fallback path for pattern hits that were
// not actionable in the current state
func (r *Resolver) classifyAndDispatch(ctx context.Context, sess *session.Session, text string) (string, error) {
	intent, err := r.classifier.Classify(ctx, text)
	if err != nil {
		return "", err
	}
	return r.dispatchIntent(ctx, sess, intent, text)
}

// requireConnectedRetailer is the guard applied before any handler that
// needs an authenticated retailer account
func (r *Resolver) requireConnectedRetailer(ctx context.Context, userID string) (bool, error) {
	count, err := r.creds.CountByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// saveSession validates and persists the next session state
func (r *Resolver) saveSession(ctx context.Context, sess *session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	return r.sessions.Save(ctx, sess)
}

// isAuthStorageError pattern-matches storage failures that point at the
// credentials table so they degrade to the account-setup message instead
// of the generic apology
func isAuthStorageError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "retailer_credentials")
}
