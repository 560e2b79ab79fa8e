package certificate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/course-certificate/internal/domain"
	"github.com/pot-code/course-certificate/internal/eligibility"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEvaluator struct {
	verdict eligibility.Verdict
}

func (f fixedEvaluator) Evaluate(ctx context.Context, accountID string) (eligibility.Verdict, error) {
	return f.verdict, nil
}

type staticNames struct{}

func (staticNames) DisplayName(ctx context.Context, accountID string) (string, error) {
	return "Learner " + accountID, nil
}

type memRenderer struct {
	mu        sync.Mutex
	rendered  []*Payload
	discarded []string
	err       error
	// barrier blocks every Render until arrivals calls have entered
	arrivals int
	entered  int
	release  chan struct{}
}

func (r *memRenderer) Render(ctx context.Context, payload *Payload) (string, error) {
	r.mu.Lock()
	r.rendered = append(r.rendered, payload)
	r.entered++
	if r.release != nil && r.entered == r.arrivals {
		close(r.release)
	}
	release, err := r.release, r.err
	r.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return "", err
	}
	return "doc/" + payload.CertificateNumber, nil
}

func (r *memRenderer) Discard(ctx context.Context, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded = append(r.discarded, ref)
	return nil
}

func (r *memRenderer) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rendered)
}

type sequenceGenerator struct {
	mu     sync.Mutex
	tokens []string
	n      int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.tokens) {
		return g.tokens[g.n-1], nil
	}
	return fmt.Sprintf("TOKEN%05d", g.n), nil
}

type stubGuard struct {
	held     bool
	err      error
	released int
}

func (g *stubGuard) Acquire(ctx context.Context, accountID string) (func(), bool, error) {
	return func() { g.released++ }, g.held, g.err
}

var eligible = eligibility.Evaluate(domain.LessonCount, domain.LessonCount, true)

func newIssuer(t *testing.T, verdict eligibility.Verdict) (*IssuerUseCase, *CertificateSQL, *memRenderer) {
	repo := NewCertificateRepository(drivertest.OpenSQLite(t))
	renderer := &memRenderer{}
	return NewIssuerUseCase(repo, fixedEvaluator{verdict}, staticNames{}, renderer, nil), repo, renderer
}

func countRows(t *testing.T, repo *CertificateSQL, accountID string) int {
	n, err := repo.CountByAccount(context.Background(), accountID)
	require.NoError(t, err)
	return n
}

func TestIssueOrGetRejectsIneligibleAccount(t *testing.T) {
	verdict := eligibility.Evaluate(6, domain.LessonCount, true)
	issuer, repo, renderer := newIssuer(t, verdict)

	_, err := issuer.IssueOrGet(context.Background(), "acc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotEligible))

	var notEligible *NotEligibleError
	require.True(t, errors.As(err, &notEligible))
	assert.Equal(t, verdict, notEligible.Verdict)
	assert.Equal(t, 0, countRows(t, repo, "acc-1"))
	assert.Zero(t, renderer.renderCount())
}

func TestIssueOrGetIsIdempotent(t *testing.T) {
	issuer, repo, renderer := newIssuer(t, eligible)
	ctx := context.Background()
	issuer.Now = func() time.Time { return time.Date(2026, time.May, 4, 9, 30, 0, 0, time.UTC) }

	first, err := issuer.IssueOrGet(ctx, "acc-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CERT-20260504-[0-9A-HJ-NP-Z]{10}$`), first.Number)

	second, err := issuer.IssueOrGet(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, first.DocumentRef, second.DocumentRef)
	assert.Equal(t, 1, renderer.renderCount())
	assert.Equal(t, 1, countRows(t, repo, "acc-1"))

	payload := renderer.rendered[0]
	assert.Equal(t, "Learner acc-1", payload.RecipientName)
	assert.Equal(t, DefaultProgramTitle, payload.ProgramTitle)
	assert.Len(t, payload.Signatories, 2)
}

func TestConcurrentIssueOrGetCreatesOneCertificate(t *testing.T) {
	const callers = 6
	issuer, repo, renderer := newIssuer(t, eligible)
	renderer.arrivals = callers
	renderer.release = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*CertificateModel, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = issuer.IssueOrGet(context.Background(), "acc-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Number, results[i].Number)
		assert.Equal(t, results[0].DocumentRef, results[i].DocumentRef)
	}
	assert.Equal(t, 1, countRows(t, repo, "acc-1"))
	assert.Equal(t, callers, renderer.renderCount())
	assert.Len(t, renderer.discarded, callers-1)
	assert.NotContains(t, renderer.discarded, results[0].DocumentRef)
}

func TestCertificateNumbersDifferAcrossAccounts(t *testing.T) {
	issuer, _, _ := newIssuer(t, eligible)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		cert, err := issuer.IssueOrGet(ctx, fmt.Sprintf("acc-%d", i))
		require.NoError(t, err)
		assert.False(t, seen[cert.Number], "duplicate number %s", cert.Number)
		seen[cert.Number] = true
	}
}

func TestNumberCollisionIsRetried(t *testing.T) {
	issuer, repo, renderer := newIssuer(t, eligible)
	ctx := context.Background()
	issuer.Now = func() time.Time { return time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC) }
	issuer.NumberGenerator = &sequenceGenerator{tokens: []string{"TAKEN00000", "TAKEN00000", "FRESH00000"}}

	_, err := issuer.IssueOrGet(ctx, "acc-2")
	require.NoError(t, err)

	cert, err := issuer.IssueOrGet(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "CERT-20260504-FRESH00000", cert.Number)
	assert.Equal(t, []string{"doc/CERT-20260504-TAKEN00000"}, renderer.discarded)
	assert.Equal(t, 1, countRows(t, repo, "acc-1"))
}

func TestNumberCollisionGivesUp(t *testing.T) {
	issuer, _, _ := newIssuer(t, eligible)
	ctx := context.Background()
	issuer.NumberGenerator = &sequenceGenerator{tokens: []string{"SAME000000", "SAME000000", "SAME000000", "SAME000000"}}
	issuer.NumberAttempts = 3

	_, err := issuer.IssueOrGet(ctx, "acc-2")
	require.NoError(t, err)

	_, err = issuer.IssueOrGet(ctx, "acc-1")
	assert.True(t, errors.Is(err, domain.ErrPersistenceUnavailable))
}

func TestRenderFailureLeavesNoCertificate(t *testing.T) {
	issuer, repo, renderer := newIssuer(t, eligible)
	renderer.err = context.DeadlineExceeded

	_, err := issuer.IssueOrGet(context.Background(), "acc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRenderFailure))
	assert.True(t, domain.Retryable(err))
	assert.Equal(t, 0, countRows(t, repo, "acc-1"))
}

func TestGetCertificate(t *testing.T) {
	issuer, _, _ := newIssuer(t, eligible)
	ctx := context.Background()

	_, err := issuer.GetCertificate(ctx, "acc-1")
	assert.True(t, errors.Is(err, domain.ErrCertificateNotFound))

	issued, err := issuer.IssueOrGet(ctx, "acc-1")
	require.NoError(t, err)
	got, err := issuer.GetCertificate(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, issued.Number, got.Number)
}

func TestHeldGuardWaitsForWinner(t *testing.T) {
	issuer, repo, renderer := newIssuer(t, eligible)
	ctx := context.Background()
	issuer.Guard = &stubGuard{held: false}
	issuer.GuardPoll = 5 * time.Millisecond
	issuer.GuardWait = 5 * time.Second

	winner := &CertificateModel{AccountID: "acc-1", Number: "CERT-20260504-WINNER0000", IssuedAt: time.Now(), DocumentRef: "doc/winner"}
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = repo.Insert(ctx, winner)
	}()

	cert, err := issuer.IssueOrGet(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, winner.Number, cert.Number)
	assert.Zero(t, renderer.renderCount())
}

func TestHeldGuardFallsBackAfterWait(t *testing.T) {
	issuer, repo, renderer := newIssuer(t, eligible)
	issuer.Guard = &stubGuard{held: false}
	issuer.GuardPoll = 5 * time.Millisecond
	issuer.GuardWait = 20 * time.Millisecond

	_, err := issuer.IssueOrGet(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.renderCount())
	assert.Equal(t, 1, countRows(t, repo, "acc-1"))
}

func TestGuardIsReleasedAndErrorsIgnored(t *testing.T) {
	issuer, _, _ := newIssuer(t, eligible)
	guard := &stubGuard{held: true}
	issuer.Guard = guard

	_, err := issuer.IssueOrGet(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, guard.released)

	issuer.Guard = &stubGuard{err: errors.New("kv down")}
	_, err = issuer.IssueOrGet(context.Background(), "acc-2")
	require.NoError(t, err)
}

func TestInsertReportsConflict(t *testing.T) {
	repo := NewCertificateRepository(drivertest.OpenSQLite(t))
	ctx := context.Background()
	cert := &CertificateModel{AccountID: "acc-1", Number: "CERT-1", IssuedAt: time.Now(), DocumentRef: "a"}
	require.NoError(t, repo.Insert(ctx, cert))

	err := repo.Insert(ctx, &CertificateModel{AccountID: "acc-1", Number: "CERT-2", IssuedAt: time.Now(), DocumentRef: "b"})
	assert.True(t, errors.Is(err, driver.ErrConflictOnUniqueKey))

	err = repo.Insert(ctx, &CertificateModel{AccountID: "acc-2", Number: "CERT-1", IssuedAt: time.Now(), DocumentRef: "c"})
	assert.True(t, errors.Is(err, driver.ErrConflictOnUniqueKey))
}
