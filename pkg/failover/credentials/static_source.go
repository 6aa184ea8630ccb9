package credentials

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// StaticSource is a Source that mints deterministic, locally generated
// credentials. Used by the demo entrypoint and tests; it never talks to a
// real credential provider.
type StaticSource struct {
	// TTL is the validity window of minted credentials.
	TTL time.Duration
	// fetches counts upstream Assume calls, observable in tests.
	fetches atomic.Int64
}

// NewStaticSource creates a StaticSource with the given credential TTL.
func NewStaticSource(ttl time.Duration) *StaticSource {
	return &StaticSource{TTL: ttl}
}

// Assume mints a credential tied to the account and role reference.
func (s *StaticSource) Assume(ctx context.Context, account model.TargetAccount, roleRef string) (Credentials, error) {
	n := s.fetches.Add(1)
	return Credentials{
		AccountID:       account.ID,
		RoleRef:         roleRef,
		AccessKeyID:     fmt.Sprintf("AKIA-%s-%d", account.ID, n),
		SecretAccessKey: "local-secret",
		SessionToken:    fmt.Sprintf("session-%s-%d", account.ID, n),
		Expiration:      time.Now().Add(s.TTL),
	}, nil
}

// Fetches returns the number of upstream Assume calls made so far.
func (s *StaticSource) Fetches() int64 {
	return s.fetches.Load()
}

var _ Source = (*StaticSource)(nil)
