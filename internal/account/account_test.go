package account

import (
	"context"
	"testing"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T) *AccountUseCaseImpl {
	uc := NewAccountUseCase(NewAccountRepository(drivertest.OpenSQLite(t)), domain.LessonCount)
	uc.Now = func() time.Time { return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC) }
	return uc
}

func TestProvisionIsIdempotent(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	first, err := uc.Provision(ctx, "acc-1", "Айгерим Серикова")
	require.NoError(t, err)
	second, err := uc.Provision(ctx, "acc-1", "Renamed")
	require.NoError(t, err)

	assert.Equal(t, "Айгерим Серикова", first.DisplayName)
	assert.Equal(t, first.DisplayName, second.DisplayName)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestProvisionCreatesLessonRows(t *testing.T) {
	conn := drivertest.OpenSQLite(t)
	uc := NewAccountUseCase(NewAccountRepository(conn), domain.LessonCount)

	_, err := uc.Provision(context.Background(), "acc-1", "")
	require.NoError(t, err)

	rows, err := conn.QueryContext(context.Background(), `SELECT COUNT(*) FROM lesson_progress WHERE account_id = $1 AND completed = $2`, "acc-1", false)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, domain.LessonCount, n)
}

func TestProvisionRequiresAccount(t *testing.T) {
	_, err := newUseCase(t).Provision(context.Background(), "  ", "x")
	assert.True(t, domain.IsValidation(err))
}

func TestDisplayNameFallsBackToID(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	name, err := uc.DisplayName(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", name)

	_, err = uc.Provision(ctx, "acc-2", "Learner Two")
	require.NoError(t, err)
	name, err = uc.DisplayName(ctx, "acc-2")
	require.NoError(t, err)
	assert.Equal(t, "Learner Two", name)
}
