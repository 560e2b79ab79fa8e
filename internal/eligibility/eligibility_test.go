package eligibility_test

import (
	"context"
	"testing"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/eligibility"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver/drivertest"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
	"github.com/pot-code/course-certificate/internal/lesson"
	"github.com/pot-code/course-certificate/internal/testattempt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTruthTable(t *testing.T) {
	cases := []struct {
		completed int
		passed    bool
		want      bool
	}{
		{7, true, true},
		{7, false, false},
		{6, true, false},
		{0, false, false},
	}
	for _, c := range cases {
		v := eligibility.Evaluate(c.completed, domain.LessonCount, c.passed)
		assert.Equal(t, c.want, v.Eligible, "%d lessons, passed=%v", c.completed, c.passed)
		assert.Equal(t, domain.LessonCount, v.RequiredLessons)
	}
}

func TestEvaluatorReadsCurrentState(t *testing.T) {
	conn := drivertest.OpenSQLite(t)
	ctx := context.Background()
	lessonRepo := lesson.NewLessonRepository(conn)
	lessons := lesson.NewLessonUseCase(lessonRepo, domain.LessonCount)
	attemptRepo := testattempt.NewTestAttemptRepository(conn, uuid.NewNanoIDGenerator(16))
	attempts := testattempt.NewTestAttemptUseCase(attemptRepo, testattempt.DefaultPassThreshold)
	ev := eligibility.NewEvaluator(lessonRepo, attemptRepo, domain.LessonCount)

	for i := 1; i <= domain.LessonCount; i++ {
		require.NoError(t, lessons.CompleteLesson(ctx, "acc-1", i))
	}
	_, err := attempts.SubmitAttempt(ctx, "acc-1", 4, 7, nil)
	require.NoError(t, err)

	v, err := ev.Evaluate(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 7, v.CompletedLessons)
	assert.False(t, v.HasPassedTest)
	assert.False(t, v.Eligible)

	_, err = attempts.SubmitAttempt(ctx, "acc-1", 5, 7, nil)
	require.NoError(t, err)

	v, err = ev.Evaluate(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, v.Eligible)

	other, err := ev.Evaluate(ctx, "acc-2")
	require.NoError(t, err)
	assert.Equal(t, eligibility.Verdict{RequiredLessons: domain.LessonCount}, other)
}
