package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestNormalizeSKU(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"42", "0042"},
		{"7", "0007"},
		{"123", "0123"},
		{"1234", "1234"},
		{"56789", "56789"},
		{"AB1", "AB1"},
		{" 15 ", "0015"},
		{"", ""},
		{"6696", "6696"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSKU(tt.in), "input %q", tt.in)
	}
}

func TestPaymentCountable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"approved", true},
		{"accredited", true},
		{"rejected", false},
		{"rejected_by_bank", false},
		{"cancelled", false},
		{"cancelled_by_user", false},
		{"CANCELLED", false},
		{"  Rejected ", false},
		{"", true},
	}
	for _, tt := range tests {
		p := Payment{Status: tt.status}
		assert.Equal(t, tt.want, p.Countable(), "status %q", tt.status)
	}
}

func TestCountablePaymentsDeduplicatesByID(t *testing.T) {
	g := OrderGroup{Payments: []Payment{
		{ID: "p1", GrossAmount: decimal.NewFromInt(100), Status: "approved"},
		{ID: "p1", GrossAmount: decimal.NewFromInt(100), Status: "approved"},
		{ID: "p2", GrossAmount: decimal.NewFromInt(50), Status: "rejected"},
		{ID: "p3", GrossAmount: decimal.NewFromInt(25), Status: "approved"},
	}}
	got := g.CountablePayments()
	assert.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p3", got[1].ID)
}

func TestAttemptTransitions(t *testing.T) {
	a := NewAttempt([]string{"ord-1"})
	assert.Equal(t, StatePending, a.State)

	assert.NoError(t, a.Transition(StateNormalized))
	assert.NoError(t, a.Transition(StateAccepted))
	assert.NoError(t, a.Transition(StateCommitting))
	assert.NoError(t, a.Transition(StateCommitted))
	assert.True(t, a.Terminal())

	b := NewAttempt(nil)
	assert.Error(t, b.Transition(StateCommitted), "cannot jump from PENDING to COMMITTED")

	c := NewAttempt(nil)
	c.Fail(StateRejected, "mismatch")
	assert.True(t, c.Terminal())
	assert.Equal(t, "mismatch", c.Reason)
}
