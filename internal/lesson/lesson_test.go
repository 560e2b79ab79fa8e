package lesson

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T) (*LessonUseCaseImpl, *LessonSQL) {
	repo := NewLessonRepository(drivertest.OpenSQLite(t))
	return NewLessonUseCase(repo, domain.LessonCount), repo
}

func TestCompleteLessonTwiceKeepsOneRecord(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	first := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	uc.Now = func() time.Time { return first }
	require.NoError(t, uc.CompleteLesson(ctx, "acc-1", 3))

	uc.Now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, uc.CompleteLesson(ctx, "acc-1", 3))

	stored, err := repo.GetProgressByAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].Index)
	assert.True(t, stored[0].Completed)
	require.NotNil(t, stored[0].CompletedAt)
	assert.True(t, first.Equal(*stored[0].CompletedAt), "completed_at moved to %v", stored[0].CompletedAt)
}

func TestCompleteLessonRejectsOutOfRange(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	for _, index := range []int{0, 8, -1} {
		err := uc.CompleteLesson(ctx, "acc-1", index)
		assert.True(t, domain.IsValidation(err), "index %d: %v", index, err)
	}

	stored, err := repo.GetProgressByAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGetProgressReturnsAllLessonsInOrder(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	require.NoError(t, uc.CompleteLesson(ctx, "acc-1", 5))
	require.NoError(t, uc.CompleteLesson(ctx, "acc-1", 2))

	progress, err := uc.GetProgress(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, progress, domain.LessonCount)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, p.Index == 2 || p.Index == 5, p.Completed, "lesson %d", p.Index)
	}
}

func TestConcurrentCompletionsDoNotLoseUpdates(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for lesson := 1; lesson <= domain.LessonCount; lesson++ {
			wg.Add(1)
			go func(lesson int) {
				defer wg.Done()
				assert.NoError(t, uc.CompleteLesson(ctx, "acc-1", lesson))
			}(lesson)
		}
	}
	wg.Wait()

	n, err := repo.CountCompleted(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LessonCount, n)
}
