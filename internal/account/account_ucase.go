package account

import (
	"context"
	"strings"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"go.elastic.co/apm"
)

// AccountUseCaseImpl ...
type AccountUseCaseImpl struct {
	AccountRepository AccountRepository
	LessonCount       int
	Now               func() time.Time
}

var _ AccountUseCase = &AccountUseCaseImpl{}

// NewAccountUseCase ...
func NewAccountUseCase(AccountRepository AccountRepository, LessonCount int) *AccountUseCaseImpl {
	return &AccountUseCaseImpl{
		AccountRepository: AccountRepository,
		LessonCount:       LessonCount,
		Now:               time.Now,
	}
}

// Provision register an authenticated account with the course, safe to call repeatedly
func (au *AccountUseCaseImpl) Provision(ctx context.Context, id, displayName string) (*AccountModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "AccountUseCaseImpl.Provision", "service")
	defer apmSpan.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("account", "is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = id
	}

	post := &AccountModel{ID: id, DisplayName: displayName, CreatedAt: au.Now().UTC()}
	if err := au.AccountRepository.Provision(ctx, post, au.LessonCount); err != nil {
		return nil, err
	}
	existing, err := au.AccountRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return post, nil
	}
	return existing, nil
}

// DisplayName name printed on the certificate, falls back to the account id
func (au *AccountUseCaseImpl) DisplayName(ctx context.Context, id string) (string, error) {
	apmSpan, _ := apm.StartSpan(ctx, "AccountUseCaseImpl.DisplayName", "service")
	defer apmSpan.End()

	account, err := au.AccountRepository.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if account == nil || account.DisplayName == "" {
		return id, nil
	}
	return account.DisplayName, nil
}
