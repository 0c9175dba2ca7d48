package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/storage/memory"
	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
)

func setupHistoryTest(t *testing.T, runs ...*domain.RunRecord) func() {
	t.Helper()
	store := memory.NewHistoryStore()
	for _, run := range runs {
		require.NoError(t, store.SaveRun(context.Background(), run))
	}
	oldOpen := openHistory
	openHistory = func(_ string) (driven.HistoryStore, error) {
		return store, nil
	}
	return func() { openHistory = oldOpen }
}

func TestHistoryCmd_ListEmpty(t *testing.T) {
	cleanup := setupHistoryTest(t)
	defer cleanup()

	out, err := execute(t, "history", "--config", tempConfigArg(t))

	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs.")
}

func TestHistoryCmd_List(t *testing.T) {
	cleanup := setupHistoryTest(t, &domain.RunRecord{
		ID:        "run-1",
		CreatedAt: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		Unit:      "SEPLAG/UNIT",
		Cases:     []domain.Case{{Number: "1500.01.0000001/2026-11"}},
		Report:    &domain.BatchReport{Succeeded: 1, Failed: 1},
	})
	defer cleanup()

	out, err := execute(t, "history", "list", "--config", tempConfigArg(t))

	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2026-03-10 14:30")
	assert.Contains(t, out, "SEPLAG/UNIT")
	assert.Contains(t, out, "1 case(s)")
	assert.Contains(t, out, "1/2 downloaded")
}

func TestHistoryCmd_Show(t *testing.T) {
	cleanup := setupHistoryTest(t, &domain.RunRecord{
		ID:    "run-1",
		Unit:  "SEPLAG/UNIT",
		Cases: []domain.Case{{Number: "1500.01.0000001/2026-11"}},
	})
	defer cleanup()

	out, err := execute(t, "history", "show", "run-1", "--config", tempConfigArg(t))

	require.NoError(t, err)
	assert.Contains(t, out, "1500.01.0000001/2026-11")
}

func TestHistoryCmd_ShowUnknown(t *testing.T) {
	cleanup := setupHistoryTest(t)
	defer cleanup()

	_, err := execute(t, "history", "show", "missing", "--config", tempConfigArg(t))

	assert.ErrorContains(t, err, "not found")
}
