package certificate

import (
	"context"
	"time"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/pot-code/course-certificate/internal/infrastructure/logging"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
	"go.uber.org/zap"
)

const guardKeyPrefix = "certificate:issue:"

// KVIssueGuard IssueGuard backed by SET NX on the kv store, the TTL bounds a crashed holder.
//
// each acquire stores its own token, release only deletes the key while that token is still there
type KVIssueGuard struct {
	KV             driver.KeyValueDB
	TTL            time.Duration
	TokenGenerator uuid.Generator
}

var _ IssueGuard = &KVIssueGuard{}

func NewKVIssueGuard(KV driver.KeyValueDB, TTL time.Duration) *KVIssueGuard {
	return &KVIssueGuard{KV, TTL, uuid.NewNanoIDGenerator(16)}
}

func (g *KVIssueGuard) Acquire(ctx context.Context, accountID string) (func(), bool, error) {
	token, err := g.TokenGenerator.Generate()
	if err != nil {
		return func() {}, false, err
	}
	key := guardKeyPrefix + accountID
	ok, err := g.KV.SetNX(ctx, key, token, g.TTL)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		// the request context may already be done
		if _, err := g.KV.DelIfValue(context.Background(), key, token); err != nil {
			logging.ExtractLoggerFromContext(ctx).Warn("failed to release issue guard",
				zap.String("account.id", accountID), zap.Error(err))
		}
	}, true, nil
}
