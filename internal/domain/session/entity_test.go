package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptySessionIsNotActive(t *testing.T) {
	s := Empty("user-1")
	assert.False(t, s.Active())
	assert.False(t, s.Stale())
	assert.NoError(t, s.Validate())
}

func TestValidStepPerFlow(t *testing.T) {
	tests := []struct {
		flow  FlowKind
		step  FlowStep
		valid bool
	}{
		{FlowAuth, StepMethodSelection, true},
		{FlowAuth, StepPhoneInput, true},
		{FlowAuth, StepOTPInput, true},
		{FlowAuth, StepEmailInput, true},
		{FlowAuth, StepPasswordInput, true},
		{FlowAuth, StepItemSelection, false},
		{FlowCheckout, StepItemSelection, true},
		{FlowCheckout, StepOTPInput, false},
		{FlowOrder, StepSuggestionSelection, true},
		{FlowOrder, StepItemSelection, false},
		{FlowNone, StepNone, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidStep(tt.flow, tt.step),
			"flow %q step %q", tt.flow, tt.step)
	}
}

func TestStaleDetectsMismatchedStep(t *testing.T) {
	s := Empty("user-1")
	s.Flow = FlowCheckout
	s.Step = StepOTPInput
	assert.True(t, s.Stale())
	assert.ErrorIs(t, s.Validate(), ErrInvalidStep)

	s.Step = StepItemSelection
	assert.False(t, s.Stale())
	assert.NoError(t, s.Validate())
}

func TestStaleDetectsMissingStep(t *testing.T) {
	s := Empty("user-1")
	s.Flow = FlowAuth
	s.Step = StepNone
	assert.True(t, s.Stale())
}

func TestValidateRejectsEmptyUserID(t *testing.T) {
	s := Empty("")
	assert.ErrorIs(t, s.Validate(), ErrEmptyUserID)
}
