package session

import (
	"errors"
	"time"
)

var (
	ErrEmptyUserID = errors.New("user id cannot be empty")
	ErrInvalidStep = errors.New("flow step is not valid for this flow kind")
)

// FlowKind identifies which conversational sub-flow a user is in.
// At most one flow is active per session.
type FlowKind string

const (
	FlowNone     FlowKind = "none"
	FlowAuth     FlowKind = "auth"
	FlowCheckout FlowKind = "checkout"
	FlowOrder    FlowKind = "order"
)

// FlowStep identifies the current step inside the active flow.
// Steps are only meaningful together with their flow kind.
type FlowStep string

const (
	StepNone FlowStep = ""

	// auth flow
	StepMethodSelection FlowStep = "method_selection"
	StepPhoneInput      FlowStep = "phone_input"
	StepOTPInput        FlowStep = "otp_input"
	StepEmailInput      FlowStep = "email_input"
	StepPasswordInput   FlowStep = "password_input"

	// checkout flow
	StepItemSelection FlowStep = "item_selection"

	// order flow
	StepSuggestionSelection FlowStep = "suggestion_selection"
)

// flowSteps maps each flow kind to the steps it accepts
var flowSteps = map[FlowKind]map[FlowStep]bool{
	FlowAuth: {
		StepMethodSelection: true,
		StepPhoneInput:      true,
		StepOTPInput:        true,
		StepEmailInput:      true,
		StepPasswordInput:   true,
	},
	FlowCheckout: {
		StepItemSelection: true,
	},
	FlowOrder: {
		StepSuggestionSelection: true,
	},
}

// FlowData carries the working data of the active flow. Flow entry always
// writes a fresh value, so fields from an earlier flow never leak into the
// next one.
type FlowData struct {
	Retailer     string            `json:"retailer,omitempty"`      // retailer being connected (auth)
	Phone        string            `json:"phone_number,omitempty"`  // phone awaiting OTP (auth)
	Email        string            `json:"email,omitempty"`         // email awaiting password (auth)
	CartID       string            `json:"cart_id,omitempty"`       // cart under construction (order)
	Items        []string          `json:"items,omitempty"`         // item names being walked or suggested
	CurrentIndex int               `json:"current_index,omitempty"` // position in the checkout walk
	Selections   map[string]string `json:"selections,omitempty"`    // item name -> chosen retailer or product
}

// Session is the per-user conversational state persisted between messages
type Session struct {
	UserID    string    `json:"user_id"`
	Flow      FlowKind  `json:"flow_kind"`
	Step      FlowStep  `json:"flow_step"`
	Data      FlowData  `json:"flow_data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Empty returns the canonical empty session for a user
func Empty(userID string) *Session {
	return &Session{
		UserID: userID,
		Flow:   FlowNone,
		Step:   StepNone,
	}
}

// Active reports whether a flow is in progress
func (s *Session) Active() bool {
	return s.Flow != FlowNone && s.Flow != ""
}

// Stale reports whether the session carries garbage state from an
// interrupted flow: a flow kind with a missing or mismatched step.
// Stale sessions must be cleared before any new flow starts.
func (s *Session) Stale() bool {
	if !s.Active() {
		return false
	}
	return !ValidStep(s.Flow, s.Step)
}

// Validate checks the session invariants before persisting
func (s *Session) Validate() error {
	if s.UserID == "" {
		return ErrEmptyUserID
	}
	if s.Active() && !ValidStep(s.Flow, s.Step) {
		return ErrInvalidStep
	}
	return nil
}

// ValidStep reports whether step belongs to the given flow kind
func ValidStep(kind FlowKind, step FlowStep) bool {
	steps, ok := flowSteps[kind]
	if !ok {
		return false
	}
	return steps[step]
}
