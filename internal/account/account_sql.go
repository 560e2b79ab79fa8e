package account

import (
	"context"
	"fmt"
	"time"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
)

type AccountSQL struct {
	Conn driver.ITransactionalDB
}

var _ AccountRepository = &AccountSQL{}

func NewAccountRepository(Conn driver.ITransactionalDB) *AccountSQL {
	return &AccountSQL{Conn}
}

// Provision runs in one transaction so a half-provisioned account is never visible
func (repo *AccountSQL) Provision(ctx context.Context, account *AccountModel, lessonCount int) (err error) {
	tx, err := repo.Conn.BeginTx(ctx, &driver.TxOptions{AccessMode: driver.AccessReadWrite})
	if err != nil {
		return fmt.Errorf("begin provision: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO account (id, display_name, created_at)
	VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, account.ID, account.DisplayName, account.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	for i := 1; i <= lessonCount; i++ {
		if _, err = tx.ExecContext(ctx, `INSERT INTO lesson_progress (account_id, lesson_index, completed)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, account.ID, i, false); err != nil {
			return fmt.Errorf("insert lesson %d: %w", i, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit provision: %w", err)
	}
	return nil
}

// FindByID returns nil when the account was never provisioned
func (repo *AccountSQL) FindByID(ctx context.Context, id string) (*AccountModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT id, display_name, created_at
	FROM account WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var createdAt int64
		account := new(AccountModel)
		if err := rows.Scan(&account.ID, &account.DisplayName, &createdAt); err != nil {
			return nil, err
		}
		account.CreatedAt = time.UnixMilli(createdAt).UTC()
		return account, nil
	}
	return nil, rows.Err()
}
