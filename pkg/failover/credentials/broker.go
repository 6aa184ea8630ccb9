// Package credentials brokers temporary, scoped credentials for cross-account
// recovery operations. Results are cached per account with an expiry slightly
// inside the credential's own validity window, and concurrent cache misses for
// the same account coalesce into a single upstream fetch.
package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

const moduleName = "credentials"

// Credentials are temporary, scoped credentials for one target account.
type Credentials struct {
	AccountID       string
	RoleRef         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Expired reports whether the credentials are past the given instant.
func (c Credentials) Expired(now time.Time) bool {
	return !c.Expiration.After(now)
}

// Source mints credentials for a role in a target account. It is the only
// seam to the actual credential provider (e.g., an STS-style assume-role
// call).
type Source interface {
	// Assume returns credentials for the given account and role reference.
	// Auth-class rejections must surface as permanent auth-failure errors.
	Assume(ctx context.Context, account model.TargetAccount, roleRef string) (Credentials, error)
}

// Broker resolves, caches, and coalesces credential fetches per account.
type Broker struct {
	source      Source
	skew        time.Duration
	defaultRole string

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]Credentials
}

// NewBroker creates a Broker over the given source using the configured
// expiry skew and default role name.
func NewBroker(source Source, cfg *config.EngineConfig) *Broker {
	return &Broker{
		source:      source,
		skew:        time.Duration(cfg.Credentials.ExpirySkewSeconds) * time.Second,
		defaultRole: cfg.Credentials.DefaultRoleName,
		cache:       make(map[string]Credentials),
	}
}

// ResolveRoleRef returns the role reference to assume for the account:
// the explicit RoleRef when present, the derived default otherwise. A
// caller-supplied RoleRef always wins and is never overwritten.
func (b *Broker) ResolveRoleRef(account model.TargetAccount) string {
	if account.RoleRef != "" {
		return account.RoleRef
	}
	return b.defaultRole
}

// GetCredentials returns valid credentials for the account, fetching through
// the source on a cache miss. Reads of a warm entry take only the read lock;
// concurrent misses for the same account id collapse into one upstream fetch.
func (b *Broker) GetCredentials(ctx context.Context, account model.TargetAccount) (Credentials, error) {
	if account.ID == "" {
		return Credentials{}, exception.NewValidation(moduleName, "target account has no id", nil)
	}

	if creds, ok := b.cached(account.ID); ok {
		return creds, nil
	}

	return b.fetch(ctx, account)
}

// Invalidate drops the cached entry for the account id. Called on auth-class
// failures from a downstream call made with a cached credential, so the next
// GetCredentials forces one re-fetch before the error is surfaced.
func (b *Broker) Invalidate(accountID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cache[accountID]; ok {
		logger.Infof("Invalidating cached credentials for account %s.", accountID)
		delete(b.cache, accountID)
	}
}

// Refresh invalidates and immediately re-fetches credentials for the account.
// Used after an auth-class failure to retry the failed operation once with
// fresh credentials.
func (b *Broker) Refresh(ctx context.Context, account model.TargetAccount) (Credentials, error) {
	b.Invalidate(account.ID)
	return b.fetch(ctx, account)
}

func (b *Broker) cached(accountID string) (Credentials, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	creds, ok := b.cache[accountID]
	if !ok {
		return Credentials{}, false
	}
	// The cache expires skew ahead of the credential itself.
	if creds.Expired(time.Now().Add(b.skew)) {
		return Credentials{}, false
	}
	return creds, true
}

func (b *Broker) fetch(ctx context.Context, account model.TargetAccount) (Credentials, error) {
	v, err, _ := b.group.Do(account.ID, func() (interface{}, error) {
		// Another caller may have filled the cache while we queued.
		if creds, ok := b.cached(account.ID); ok {
			return creds, nil
		}

		roleRef := b.ResolveRoleRef(account)
		logger.Debugf("Fetching credentials for account %s via %s.", account.ID, roleRef)

		start := time.Now()
		creds, err := b.source.Assume(ctx, account, roleRef)
		if err != nil {
			// Sources classify their own failures; anything unclassified is an
			// auth-class rejection of the assume call.
			if exception.KindOf(err) != exception.KindInternal {
				return Credentials{}, err
			}
			return Credentials{}, exception.NewPermanent(moduleName,
				fmt.Sprintf("failed to assume %s for account %s", roleRef, account.ID), err, true)
		}
		logger.Debugf("Fetched credentials for account %s in %s (expires %s).",
			account.ID, time.Since(start), creds.Expiration.Format(time.RFC3339))

		b.mu.Lock()
		b.cache[account.ID] = creds
		b.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		return Credentials{}, err
	}
	return v.(Credentials), nil
}
