package testattempt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"go.elastic.co/apm"
)

// TestAttemptUseCaseImpl ...
type TestAttemptUseCaseImpl struct {
	TestAttemptRepository TestAttemptRepository
	Threshold             PassThreshold
	Now                   func() time.Time
}

var _ TestAttemptUseCase = &TestAttemptUseCaseImpl{}

// NewTestAttemptUseCase ...
func NewTestAttemptUseCase(TestAttemptRepository TestAttemptRepository, Threshold PassThreshold) *TestAttemptUseCaseImpl {
	if Threshold.Denominator <= 0 {
		Threshold = DefaultPassThreshold
	}
	return &TestAttemptUseCaseImpl{
		TestAttemptRepository: TestAttemptRepository,
		Threshold:             Threshold,
		Now:                   time.Now,
	}
}

// SubmitAttempt score a submission and store it, answers are kept as an opaque json blob
func (tu *TestAttemptUseCaseImpl) SubmitAttempt(ctx context.Context, accountID string, score, totalQuestions int, answers interface{}) (*TestAttemptModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "TestAttemptUseCaseImpl.SubmitAttempt", "service")
	defer apmSpan.End()

	if totalQuestions < 1 {
		return nil, domain.NewValidationError("total_questions", "must be positive, got %d", totalQuestions)
	}
	if score < 0 || score > totalQuestions {
		return nil, domain.NewValidationError("score", "must be between 0 and %d, got %d", totalQuestions, score)
	}

	blob, err := encodeAnswers(answers)
	if err != nil {
		return nil, domain.NewValidationError("answers", "not serializable: %v", err)
	}

	attempt := &TestAttemptModel{
		AccountID:      accountID,
		Score:          score,
		TotalQuestions: totalQuestions,
		Passed:         tu.Threshold.Passed(score, totalQuestions),
		Answers:        blob,
		TakenAt:        tu.Now().UTC(),
	}
	if err := tu.TestAttemptRepository.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// ListAttempts test history, newest first
func (tu *TestAttemptUseCaseImpl) ListAttempts(ctx context.Context, accountID string) ([]*TestAttemptModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "TestAttemptUseCaseImpl.ListAttempts", "service")
	defer apmSpan.End()

	return tu.TestAttemptRepository.ListByAccount(ctx, accountID)
}

func encodeAnswers(answers interface{}) ([]byte, error) {
	switch v := answers.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	return json.Marshal(answers)
}
