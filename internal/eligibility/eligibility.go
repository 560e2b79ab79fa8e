// Package eligibility decides whether an account has earned its certificate.
package eligibility

import (
	"context"

	"go.elastic.co/apm"
)

// Verdict eligibility snapshot, also returned to clients that are not yet eligible
type Verdict struct {
	CompletedLessons int  `json:"completed_lessons"`
	RequiredLessons  int  `json:"required_lessons"`
	HasPassedTest    bool `json:"has_passed_test"`
	Eligible         bool `json:"eligible"`
}

// Evaluate eligible iff every lesson is completed and at least one attempt passed
func Evaluate(completedLessons, requiredLessons int, hasPassedTest bool) Verdict {
	return Verdict{
		CompletedLessons: completedLessons,
		RequiredLessons:  requiredLessons,
		HasPassedTest:    hasPassedTest,
		Eligible:         completedLessons >= requiredLessons && hasPassedTest,
	}
}

type ProgressCounter interface {
	CountCompleted(ctx context.Context, accountID string) (int, error)
}

type PassChecker interface {
	HasPassed(ctx context.Context, accountID string) (bool, error)
}

// Evaluator reads the stores on every call, verdicts are never cached
type Evaluator struct {
	Progress    ProgressCounter
	Attempts    PassChecker
	LessonCount int
}

func NewEvaluator(Progress ProgressCounter, Attempts PassChecker, LessonCount int) *Evaluator {
	return &Evaluator{Progress, Attempts, LessonCount}
}

func (ev *Evaluator) Evaluate(ctx context.Context, accountID string) (Verdict, error) {
	apmSpan, _ := apm.StartSpan(ctx, "Evaluator.Evaluate", "service")
	defer apmSpan.End()

	completed, err := ev.Progress.CountCompleted(ctx, accountID)
	if err != nil {
		return Verdict{}, err
	}
	passed, err := ev.Attempts.HasPassed(ctx, accountID)
	if err != nil {
		return Verdict{}, err
	}
	return Evaluate(completed, ev.LessonCount, passed), nil
}
