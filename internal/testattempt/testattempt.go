package testattempt

import (
	"context"
	"time"
)

// TestAttemptModel one immutable test submission
type TestAttemptModel struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"-"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Passed         bool      `json:"passed"`
	Answers        []byte    `json:"-"`
	TakenAt        time.Time `json:"taken_at"`
}

// PassThreshold fraction of total_questions a score must reach to pass
type PassThreshold struct {
	Numerator   int
	Denominator int
}

// DefaultPassThreshold 5 of 7
var DefaultPassThreshold = PassThreshold{Numerator: 5, Denominator: 7}

// Passed reports whether score reaches the threshold for total questions, compared in integers
// so 5/7 on a 7-question test needs exactly 5
func (pt PassThreshold) Passed(score, total int) bool {
	return score*pt.Denominator >= total*pt.Numerator
}

type TestAttemptRepository interface {
	SaveAttempt(ctx context.Context, attempt *TestAttemptModel) error
	ListByAccount(ctx context.Context, accountID string) ([]*TestAttemptModel, error)
	HasPassed(ctx context.Context, accountID string) (bool, error)
}

type TestAttemptUseCase interface {
	SubmitAttempt(ctx context.Context, accountID string, score, totalQuestions int, answers interface{}) (*TestAttemptModel, error)
	ListAttempts(ctx context.Context, accountID string) ([]*TestAttemptModel, error)
}
