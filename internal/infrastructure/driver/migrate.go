package driver

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema/schema.sql
var schemaSQL string

// Migrate creates the tables the service needs, statements are idempotent
// and portable across mysql, postgres and sqlite
func Migrate(ctx context.Context, conn ITransactionalDB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
