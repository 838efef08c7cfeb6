package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepository_Lifecycle(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	older := &domain.CalculationRun{Status: domain.RunProcessing, TotalParts: 2, StartedAt: testNow}
	require.NoError(t, repo.CreateRun(ctx, older))

	run := &domain.CalculationRun{Status: domain.RunProcessing, TotalParts: 3, StartedAt: testNow.Add(time.Minute)}
	require.NoError(t, repo.CreateRun(ctx, run))
	assert.NotZero(t, run.ID)

	require.NoError(t, repo.AddRunError(ctx, run.ID, domain.PartError{PartID: 7, Error: "boom"}))

	done := testNow.Add(5 * time.Minute)
	run.Status = domain.RunCompleted
	run.PartsAnalyzed = 2
	run.SuggestionCount = 1
	run.CompletedAt = &done
	require.NoError(t, repo.UpdateRun(ctx, run))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest := runs[0]
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, domain.RunCompleted, latest.Status)
	assert.Equal(t, 2, latest.PartsAnalyzed)
	assert.Equal(t, 1, latest.SuggestionCount)
	require.NotNil(t, latest.CompletedAt)
	assert.Equal(t, []domain.PartError{{PartID: 7, Error: "boom"}}, latest.Errors)
	assert.Empty(t, runs[1].Errors)
}

func TestRunRepository_UpdateMissing(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	err := repo.UpdateRun(context.Background(), &domain.CalculationRun{ID: 5, Status: domain.RunFailed})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
