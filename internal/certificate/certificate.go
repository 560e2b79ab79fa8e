package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/eligibility"
)

// CertificateModel at most one per account
type CertificateModel struct {
	AccountID   string    `json:"-"`
	Number      string    `json:"certificate_number"`
	IssuedAt    time.Time `json:"issued_at"`
	DocumentRef string    `json:"document_reference"`
}

// Signatory printed under the certificate body
type Signatory struct {
	Name  string
	Title string
}

// Payload everything a renderer needs to lay out one certificate
type Payload struct {
	RecipientName     string
	CertificateNumber string
	IssuedAt          time.Time
	ProgramTitle      string
	Signatories       []Signatory
}

// DocumentRenderer produces the certificate document and returns a reference to it
type DocumentRenderer interface {
	Render(ctx context.Context, payload *Payload) (string, error)
	// Discard removes a document that lost the issuance race
	Discard(ctx context.Context, ref string) error
}

// IssueGuard optional per-account critical section around rendering.
//
// Acquire reports whether the caller holds the guard; release is only meaningful when it does
type IssueGuard interface {
	Acquire(ctx context.Context, accountID string) (release func(), held bool, err error)
}

type CertificateRepository interface {
	// Insert fails with driver.ErrConflictOnUniqueKey when the account or the number already has a row
	Insert(ctx context.Context, cert *CertificateModel) error
	FindByAccount(ctx context.Context, accountID string) (*CertificateModel, error)
}

type CertificateUseCase interface {
	IssueOrGet(ctx context.Context, accountID string) (*CertificateModel, error)
	GetCertificate(ctx context.Context, accountID string) (*CertificateModel, error)
}

type EligibilityEvaluator interface {
	Evaluate(ctx context.Context, accountID string) (eligibility.Verdict, error)
}

type NameResolver interface {
	DisplayName(ctx context.Context, accountID string) (string, error)
}

// NotEligibleError carries the verdict so callers can show what is missing
type NotEligibleError struct {
	Verdict eligibility.Verdict
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: %d of %d lessons completed, passed test: %t",
		domain.ErrNotEligible, e.Verdict.CompletedLessons, e.Verdict.RequiredLessons, e.Verdict.HasPassedTest)
}

func (e *NotEligibleError) Unwrap() error {
	return domain.ErrNotEligible
}

// DefaultProgramTitle course printed on every certificate
const DefaultProgramTitle = "Реабилитация после лечения рака лёгких"

// DefaultSignatories .
var DefaultSignatories = []Signatory{
	{Name: "Әділғазыұлы Шыңғыс", Title: "Врач онколог-хирург, магистр медицины, PhD докторант"},
	{Name: "Адылханов Т.А.", Title: "Доктор медицинских наук, профессор, главный консультант по онкологии ННОЦ"},
}
