package lesson

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
)

type LessonSQL struct {
	Conn driver.ITransactionalDB
}

var _ LessonRepository = &LessonSQL{}

func NewLessonRepository(Conn driver.ITransactionalDB) *LessonSQL {
	return &LessonSQL{Conn}
}

// MarkCompleted is an upsert split into two single-statement steps, each atomic on its own:
// the row is created if provisioning never ran, then flipped only while still incomplete,
// so concurrent duplicates keep the first completed_at
func (repo *LessonSQL) MarkCompleted(ctx context.Context, accountID string, index int, at time.Time) error {
	conn := repo.Conn
	if _, err := conn.ExecContext(ctx, `INSERT INTO lesson_progress (account_id, lesson_index, completed)
	VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, accountID, index, false); err != nil {
		return fmt.Errorf("ensure lesson progress: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `UPDATE lesson_progress
	SET completed = $1, completed_at = $2
	WHERE account_id = $3 AND lesson_index = $4 AND completed = $5`,
		true, at.UnixMilli(), accountID, index, false); err != nil {
		return fmt.Errorf("complete lesson: %w", err)
	}
	return nil
}

func (repo *LessonSQL) GetProgressByAccount(ctx context.Context, accountID string) ([]*LessonProgressModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    lesson_index, completed, completed_at
FROM
    lesson_progress
WHERE
    account_id = $1
ORDER BY lesson_index ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query lesson progress: %w", err)
	}
	defer rows.Close()

	var result []*LessonProgressModel
	for rows.Next() {
		var completedAt sql.NullInt64
		item := &LessonProgressModel{AccountID: accountID}
		if err := rows.Scan(&item.Index, &item.Completed, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			ts := time.UnixMilli(completedAt.Int64).UTC()
			item.CompletedAt = &ts
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (repo *LessonSQL) CountCompleted(ctx context.Context, accountID string) (int, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT COUNT(*) FROM lesson_progress
	WHERE account_id = $1 AND completed = $2`, accountID, true)
	if err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
