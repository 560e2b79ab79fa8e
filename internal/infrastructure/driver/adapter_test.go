package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMySQLAdapter(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{
			"placeholders",
			"SELECT \"index\" FROM lesson_progress\n\tWHERE account_id = $1 AND lesson_index = $2",
			"SELECT `index` FROM lesson_progress WHERE account_id = ? AND lesson_index = ?",
		},
		{
			"insert ignore",
			"INSERT INTO account (id) VALUES ($1)\n\tON CONFLICT DO NOTHING",
			"INSERT IGNORE INTO account (id) VALUES (?)",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, mysqlAdapter(c.query))
		})
	}
}

func TestSQLiteAdapterKeepsUpsert(t *testing.T) {
	got := sqliteAdapter("INSERT INTO account (id) VALUES ($1) ON CONFLICT DO NOTHING")
	assert.Equal(t, "INSERT INTO account (id) VALUES (?) ON CONFLICT DO NOTHING", got)
}

func TestLogQueryArgsTruncates(t *testing.T) {
	long := make([]byte, 80)
	args := logQueryArgs([]interface{}{long, "short", 7})
	assert.Contains(t, args[0], "truncated 16 bytes")
	assert.Equal(t, "short", args[1])
	assert.Equal(t, 7, args[2])
}
