package tokenbudget_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexicli/flexicli/internal/errs"
	"github.com/flexicli/flexicli/internal/tokenbudget"
)

func TestCount_EmptyString(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	assert.Equal(t, 0, m.Count(""))
}

func TestCount_Monotonic(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	short := m.Count("hello")
	long := m.Count(strings.Repeat("hello world ", 50))
	assert.Greater(t, long, short)
}

func TestCanAdd_WithinCap(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeDirect)
	assert.True(t, m.CanAdd(tokenbudget.CategoryQuery, 100))
}

func TestCanAdd_ExceedsCap(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeDirect)
	assert.False(t, m.CanAdd(tokenbudget.CategoryQuery, 10_000))
}

func TestRecord_QueryOverBudget_ReturnsTypedError(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeDirect)
	err := m.Record(tokenbudget.CategoryQuery, 10_000)
	require.Error(t, err)
	assert.Equal(t, errs.KindBudgetExceeded, errs.KindOf(err))
}

func TestRecord_BufferOverBudget_ReturnsTypedError(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	err := m.Record(tokenbudget.CategoryBuffer, 1_000_000)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindBudgetExceeded))
}

func TestRecord_RetrievedNeverErrors(t *testing.T) {
	// Retrieved content is trimmed by the caller via TrimToFit before
	// Record, so Record itself never rejects it - only query/buffer do.
	m := tokenbudget.NewManager(tokenbudget.ModeDirect)
	err := m.Record(tokenbudget.CategoryRetrieved, 1_000_000)
	assert.NoError(t, err)
}

func TestRecord_AccumulatesIntoReport(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	require.NoError(t, m.Record(tokenbudget.CategoryEphemeral, 10))
	require.NoError(t, m.Record(tokenbudget.CategoryEphemeral, 5))
	require.NoError(t, m.Record(tokenbudget.CategoryOutput, 20))

	report := m.Report()
	assert.Equal(t, tokenbudget.ModeConcise, report.Mode)
	assert.Equal(t, 15, report.ByCategory[tokenbudget.CategoryEphemeral])
	assert.Equal(t, 20, report.OutputTotal)
	assert.Equal(t, 15, report.InputTotal)
}

func TestTrimToFit_AlreadyFits(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	text := "short text"
	assert.Equal(t, text, m.TrimToFit(text, 100))
}

func TestTrimToFit_Truncates(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200)
	trimmed := m.TrimToFit(text, 50)
	assert.LessOrEqual(t, m.Count(trimmed), 50)
	assert.Contains(t, trimmed, "truncated")
}

func TestTrimToFit_Idempotent(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200)
	once := m.TrimToFit(text, 50)
	twice := m.TrimToFit(once, 50)
	assert.Equal(t, once, twice)
}

func TestTrimToFit_ZeroBudget(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.ModeConcise)
	assert.Equal(t, "", m.TrimToFit("anything", 0))
}

func TestNewManager_UnknownModeDefaultsToConcise(t *testing.T) {
	m := tokenbudget.NewManager(tokenbudget.Mode("bogus"))
	assert.Equal(t, tokenbudget.ModeConcise, m.Report().Mode)
}
