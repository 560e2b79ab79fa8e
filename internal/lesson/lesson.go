package lesson

import (
	"context"
	"time"
)

// LessonProgressModel completion state of one lesson for one account
type LessonProgressModel struct {
	AccountID   string     `json:"-"`
	Index       int        `json:"lesson_number"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type LessonRepository interface {
	// MarkCompleted stamps the first completion of (account, index), later calls change nothing
	MarkCompleted(ctx context.Context, accountID string, index int, at time.Time) error
	GetProgressByAccount(ctx context.Context, accountID string) ([]*LessonProgressModel, error)
	CountCompleted(ctx context.Context, accountID string) (int, error)
}

type LessonUseCase interface {
	CompleteLesson(ctx context.Context, accountID string, index int) error
	GetProgress(ctx context.Context, accountID string) ([]*LessonProgressModel, error)
}
