package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
)

type CertificateSQL struct {
	Conn driver.ITransactionalDB
}

var _ CertificateRepository = &CertificateSQL{}

func NewCertificateRepository(Conn driver.ITransactionalDB) *CertificateSQL {
	return &CertificateSQL{Conn}
}

// Insert relies on the account_id primary key and the certificate_number unique index to arbitrate races
func (repo *CertificateSQL) Insert(ctx context.Context, cert *CertificateModel) error {
	_, err := repo.Conn.ExecContext(ctx, `INSERT INTO certificate (account_id, certificate_number, issued_at, document_ref)
	VALUES ($1, $2, $3, $4)`, cert.AccountID, cert.Number, cert.IssuedAt.UnixMilli(), cert.DocumentRef)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// FindByAccount returns nil without error when the account has no certificate
func (repo *CertificateSQL) FindByAccount(ctx context.Context, accountID string) (*CertificateModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    certificate_number, issued_at, document_ref
FROM
    certificate
WHERE
    account_id = $1
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query certificate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var issuedAt int64
	cert := &CertificateModel{AccountID: accountID}
	if err := rows.Scan(&cert.Number, &issuedAt, &cert.DocumentRef); err != nil {
		return nil, err
	}
	cert.IssuedAt = time.UnixMilli(issuedAt).UTC()
	return cert, rows.Err()
}

// CountByAccount number of certificate rows for the account, never more than one
func (repo *CertificateSQL) CountByAccount(ctx context.Context, accountID string) (int, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT COUNT(*) FROM certificate WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
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
