package testattempt

import (
	"context"
	"fmt"
	"time"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
)

type TestAttemptSQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ TestAttemptRepository = &TestAttemptSQL{}

func NewTestAttemptRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *TestAttemptSQL {
	return &TestAttemptSQL{Conn, UUIDGenerator}
}

// SaveAttempt inserts a new row, attempts are never updated
func (repo *TestAttemptSQL) SaveAttempt(ctx context.Context, attempt *TestAttemptModel) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return fmt.Errorf("generate attempt id: %w", err)
	}
	attempt.ID = id

	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO test_attempt (id, account_id, score, total_questions, passed, answers, taken_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attempt.ID, attempt.AccountID, attempt.Score, attempt.TotalQuestions, attempt.Passed,
		string(attempt.Answers), attempt.TakenAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert test attempt: %w", err)
	}
	return nil
}

// ListByAccount newest first
func (repo *TestAttemptSQL) ListByAccount(ctx context.Context, accountID string) ([]*TestAttemptModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    id, score, total_questions, passed, answers, taken_at
FROM
    test_attempt
WHERE
    account_id = $1
ORDER BY taken_at DESC, id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query test attempts: %w", err)
	}
	defer rows.Close()

	var result []*TestAttemptModel
	for rows.Next() {
		var (
			takenAt int64
			answers *string
		)
		item := &TestAttemptModel{AccountID: accountID}
		if err := rows.Scan(&item.ID, &item.Score, &item.TotalQuestions, &item.Passed, &answers, &takenAt); err != nil {
			return nil, err
		}
		if answers != nil {
			item.Answers = []byte(*answers)
		}
		item.TakenAt = time.UnixMilli(takenAt).UTC()
		result = append(result, item)
	}
	return result, rows.Err()
}

func (repo *TestAttemptSQL) HasPassed(ctx context.Context, accountID string) (bool, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT id FROM test_attempt
	WHERE account_id = $1 AND passed = $2 LIMIT 1`, accountID, true)
	if err != nil {
		return false, fmt.Errorf("query passed attempt: %w", err)
	}
	defer rows.Close()

	found := rows.Next()
	return found, rows.Err()
}
