package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/pot-code/course-certificate/internal/infrastructure/logging"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// NumberAlphabet characters of the random certificate number token, no lookalikes
const NumberAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NumberTokenLength .
const NumberTokenLength = 10

// IssuerUseCase issues at most one certificate per account.
//
// the unique keys on the certificate table are the only thing correctness depends on,
// Guard just saves losers from rendering
type IssuerUseCase struct {
	Certificates    CertificateRepository
	Eligibility     EligibilityEvaluator
	Names           NameResolver
	Renderer        DocumentRenderer
	Guard           IssueGuard
	NumberGenerator uuid.Generator
	ProgramTitle    string
	Signatories     []Signatory
	NumberAttempts  int
	GuardWait       time.Duration
	GuardPoll       time.Duration
	Now             func() time.Time
}

var _ CertificateUseCase = &IssuerUseCase{}

// NewIssuerUseCase Guard may be nil
func NewIssuerUseCase(
	Certificates CertificateRepository,
	Eligibility EligibilityEvaluator,
	Names NameResolver,
	Renderer DocumentRenderer,
	Guard IssueGuard,
) *IssuerUseCase {
	return &IssuerUseCase{
		Certificates:    Certificates,
		Eligibility:     Eligibility,
		Names:           Names,
		Renderer:        Renderer,
		Guard:           Guard,
		NumberGenerator: uuid.NewAlphabetGenerator(NumberAlphabet, NumberTokenLength),
		ProgramTitle:    DefaultProgramTitle,
		Signatories:     DefaultSignatories,
		NumberAttempts:  3,
		GuardWait:       2 * time.Second,
		GuardPoll:       100 * time.Millisecond,
		Now:             time.Now,
	}
}

// IssueOrGet return the account's certificate, issuing it on the first eligible call
func (iu *IssuerUseCase) IssueOrGet(ctx context.Context, accountID string) (*CertificateModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "IssuerUseCase.IssueOrGet", "service")
	defer apmSpan.End()

	existing, err := iu.Certificates.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	verdict, err := iu.Eligibility.Evaluate(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !verdict.Eligible {
		return nil, &NotEligibleError{Verdict: verdict}
	}

	if iu.Guard != nil {
		winner, release, err := iu.enterGuard(ctx, accountID)
		if err != nil {
			return nil, err
		}
		defer release()
		if winner != nil {
			return winner, nil
		}
	}

	name, err := iu.Names.DisplayName(ctx, accountID)
	if err != nil {
		return nil, err
	}

	attempts := iu.NumberAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		cert, retry, err := iu.issue(ctx, accountID, name)
		if err != nil || !retry {
			return cert, err
		}
		logging.ExtractLoggerFromContext(ctx).Warn("certificate number collision, regenerating",
			zap.String("account.id", accountID), zap.Int("attempt", i+1))
	}
	return nil, fmt.Errorf("%w: no unique certificate number after %d attempts", domain.ErrPersistenceUnavailable, attempts)
}

// issue render and insert one candidate, retry is set when only the number collided
func (iu *IssuerUseCase) issue(ctx context.Context, accountID, name string) (*CertificateModel, bool, error) {
	logger := logging.ExtractLoggerFromContext(ctx)
	now := iu.Now().UTC()

	number, err := iu.newNumber(now)
	if err != nil {
		return nil, false, err
	}

	ref, err := iu.Renderer.Render(ctx, &Payload{
		RecipientName:     name,
		CertificateNumber: number,
		IssuedAt:          now,
		ProgramTitle:      iu.ProgramTitle,
		Signatories:       iu.Signatories,
	})
	if err != nil {
		logger.Error("failed to render certificate", zap.String("account.id", accountID), zap.Error(err))
		return nil, false, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
	}

	cert := &CertificateModel{AccountID: accountID, Number: number, IssuedAt: now, DocumentRef: ref}
	err = iu.Certificates.Insert(ctx, cert)
	if err == nil {
		logger.Info("certificate issued", zap.String("account.id", accountID), zap.String("certificate.number", number))
		return cert, false, nil
	}

	iu.discard(ctx, ref)
	if !errors.Is(err, driver.ErrConflictOnUniqueKey) {
		return nil, false, err
	}

	winner, err := iu.Certificates.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		return nil, true, nil
	}
	logger.Info("certificate issued concurrently, returning existing one",
		zap.String("account.id", accountID), zap.String("certificate.number", winner.Number))
	return winner, false, nil
}

// enterGuard returns the winner's certificate when another request held the guard and finished in time.
//
// guard errors are logged and ignored, issuance then proceeds unguarded
func (iu *IssuerUseCase) enterGuard(ctx context.Context, accountID string) (*CertificateModel, func(), error) {
	noop := func() {}
	release, held, err := iu.Guard.Acquire(ctx, accountID)
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("issue guard unavailable", zap.String("account.id", accountID), zap.Error(err))
		return nil, noop, nil
	}
	if held {
		return nil, release, nil
	}

	deadline := time.NewTimer(iu.GuardWait)
	defer deadline.Stop()
	ticker := time.NewTicker(iu.GuardPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, noop, ctx.Err()
		case <-deadline.C:
			return nil, noop, nil
		case <-ticker.C:
			winner, err := iu.Certificates.FindByAccount(ctx, accountID)
			if err != nil {
				return nil, noop, err
			}
			if winner != nil {
				return winner, noop, nil
			}
		}
	}
}

func (iu *IssuerUseCase) newNumber(now time.Time) (string, error) {
	token, err := iu.NumberGenerator.Generate()
	if err != nil {
		return "", fmt.Errorf("generate certificate number: %w", err)
	}
	return fmt.Sprintf("CERT-%s-%s", now.Format("20060102"), token), nil
}

func (iu *IssuerUseCase) discard(ctx context.Context, ref string) {
	if err := iu.Renderer.Discard(ctx, ref); err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("failed to discard certificate document",
			zap.String("document.ref", ref), zap.Error(err))
	}
}

// GetCertificate fails with domain.ErrCertificateNotFound when nothing was issued
func (iu *IssuerUseCase) GetCertificate(ctx context.Context, accountID string) (*CertificateModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "IssuerUseCase.GetCertificate", "service")
	defer apmSpan.End()

	cert, err := iu.Certificates.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrCertificateNotFound
	}
	return cert, nil
}
