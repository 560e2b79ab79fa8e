package lesson

import (
	"context"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"go.elastic.co/apm"
)

// LessonUseCaseImpl ...
type LessonUseCaseImpl struct {
	LessonRepository LessonRepository
	LessonCount      int
	Now              func() time.Time
}

var _ LessonUseCase = &LessonUseCaseImpl{}

// NewLessonUseCase ...
func NewLessonUseCase(LessonRepository LessonRepository, LessonCount int) *LessonUseCaseImpl {
	return &LessonUseCaseImpl{
		LessonRepository: LessonRepository,
		LessonCount:      LessonCount,
		Now:              time.Now,
	}
}

// CompleteLesson mark a lesson as completed, repeated calls are no-ops
func (lu *LessonUseCaseImpl) CompleteLesson(ctx context.Context, accountID string, index int) error {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.CompleteLesson", "service")
	defer apmSpan.End()

	if index < 1 || index > lu.LessonCount {
		return domain.NewValidationError("lesson_number", "must be between 1 and %d, got %d", lu.LessonCount, index)
	}
	return lu.LessonRepository.MarkCompleted(ctx, accountID, index, lu.Now().UTC())
}

// GetProgress get completion state for each lesson, ordered by lesson number.
//
// lessons without a stored row are reported as incomplete so the result always has LessonCount items
func (lu *LessonUseCaseImpl) GetProgress(ctx context.Context, accountID string) ([]*LessonProgressModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.GetProgress", "service")
	defer apmSpan.End()

	stored, err := lu.LessonRepository.GetProgressByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]*LessonProgressModel, len(stored))
	for _, e := range stored {
		byIndex[e.Index] = e
	}

	progress := make([]*LessonProgressModel, 0, lu.LessonCount)
	for i := 1; i <= lu.LessonCount; i++ {
		if e, ok := byIndex[i]; ok {
			progress = append(progress, e)
			continue
		}
		progress = append(progress, &LessonProgressModel{AccountID: accountID, Index: i})
	}
	return progress, nil
}
