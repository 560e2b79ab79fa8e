package testattempt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver/drivertest"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T) (*TestAttemptUseCaseImpl, *TestAttemptSQL) {
	repo := NewTestAttemptRepository(drivertest.OpenSQLite(t), uuid.NewNanoIDGenerator(16))
	return NewTestAttemptUseCase(repo, DefaultPassThreshold), repo
}

func TestPassThresholdBoundary(t *testing.T) {
	cases := []struct {
		score, total int
		want         bool
	}{
		{5, 7, true},
		{4, 7, false},
		{7, 7, true},
		{0, 7, false},
		{10, 14, true},
		{9, 14, false},
		{1, 1, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DefaultPassThreshold.Passed(c.score, c.total), "%d/%d", c.score, c.total)
	}
}

func TestSubmitAttemptScoresAgainstThreshold(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	passed, err := uc.SubmitAttempt(ctx, "acc-1", 5, 7, map[string]int{"q1": 2})
	require.NoError(t, err)
	assert.True(t, passed.Passed)

	failed, err := uc.SubmitAttempt(ctx, "acc-1", 4, 7, nil)
	require.NoError(t, err)
	assert.False(t, failed.Passed)
	assert.NotEqual(t, passed.ID, failed.ID)
}

func TestSubmitAttemptValidatesScore(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	for _, c := range [][2]int{{-1, 7}, {8, 7}, {0, 0}} {
		_, err := uc.SubmitAttempt(ctx, "acc-1", c[0], c[1], nil)
		assert.True(t, domain.IsValidation(err), "%v: %v", c, err)
	}

	attempts, err := repo.ListByAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestListAttemptsNewestFirst(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC)

	for i, score := range []int{3, 6, 4} {
		at := base.Add(time.Duration(i) * time.Minute)
		uc.Now = func() time.Time { return at }
		_, err := uc.SubmitAttempt(ctx, "acc-1", score, 7, []int{score})
		require.NoError(t, err)
	}
	_, err := uc.SubmitAttempt(ctx, "acc-2", 7, 7, nil)
	require.NoError(t, err)

	attempts, err := uc.ListAttempts(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, []int{4, 6, 3}, []int{attempts[0].Score, attempts[1].Score, attempts[2].Score})
	assert.True(t, attempts[0].TakenAt.After(attempts[1].TakenAt))

	var answers []int
	require.NoError(t, json.Unmarshal(attempts[1].Answers, &answers))
	assert.Equal(t, []int{6}, answers)

	ok, err := repo.HasPassed(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
