package errs_test

import (
	"errors"
	"testing"

	"github.com/flexicli/flexicli/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	cases := map[errs.Kind]string{
		errs.KindValidation:     "validation",
		errs.KindPermission:     "permission",
		errs.KindRateLimited:    "rate_limited",
		errs.KindTransientIO:    "transient_io",
		errs.KindTimeout:        "timeout",
		errs.KindTool:           "tool",
		errs.KindBudgetExceeded: "budget_exceeded",
		errs.KindCorruption:     "corruption",
		errs.Kind(99):           "unknown",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, errs.KindRateLimited.Retryable())
	assert.True(t, errs.KindTransientIO.Retryable())
	assert.False(t, errs.KindValidation.Retryable())
	assert.False(t, errs.KindTimeout.Retryable())
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.Wrap(errs.KindTransientIO, "modelclient.chat", "request failed", cause)

	require.Error(t, err)
	assert.Equal(t, errs.KindTransientIO, errs.KindOf(err))
	assert.True(t, errs.Is(err, errs.KindTransientIO))
	assert.False(t, errs.Is(err, errs.KindTimeout))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "request failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWithField(t *testing.T) {
	err := errs.New(errs.KindRateLimited, "modelclient.chat", "429 received").
		WithField("status", 429).
		WithField("retry_after", "2s")

	assert.Equal(t, 429, err.Fields["status"])
	assert.Equal(t, "2s", err.Fields["retry_after"])
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, errs.Kind(0), errs.KindOf(errors.New("plain")))
}

func TestConstructorHelpers(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *errs.Error
		kind errs.Kind
	}{
		{"Validation", errs.Validation("op", "msg", cause), errs.KindValidation},
		{"Permission", errs.Permission("op", "msg", cause), errs.KindPermission},
		{"RateLimited", errs.RateLimited("op", "msg", cause), errs.KindRateLimited},
		{"TransientIO", errs.TransientIO("op", "msg", cause), errs.KindTransientIO},
		{"Timeout", errs.Timeout("op", "msg", cause), errs.KindTimeout},
		{"Tool", errs.Tool("op", "msg", cause), errs.KindTool},
		{"BudgetExceeded", errs.BudgetExceeded("op", "msg", cause), errs.KindBudgetExceeded},
		{"Corruption", errs.Corruption("op", "msg", cause), errs.KindCorruption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}
