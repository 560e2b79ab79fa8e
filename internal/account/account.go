package account

import (
	"context"
	"time"
)

// AccountModel learner profile as known to the course, credentials live with the auth service
type AccountModel struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type AccountRepository interface {
	// Provision records the account and its incomplete lesson rows, existing rows are kept
	Provision(ctx context.Context, account *AccountModel, lessonCount int) error
	FindByID(ctx context.Context, id string) (*AccountModel, error)
}

type AccountUseCase interface {
	Provision(ctx context.Context, id, displayName string) (*AccountModel, error)
	DisplayName(ctx context.Context, id string) (string, error)
}
