package credentials_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
)

// blockingSource lets tests hold all Assume calls open until released, to
// force concurrent callers into the same cache-miss window.
type blockingSource struct {
	fetches atomic.Int64
	release chan struct{}
	ttl     time.Duration
	err     error
}

func (s *blockingSource) Assume(ctx context.Context, account model.TargetAccount, roleRef string) (credentials.Credentials, error) {
	s.fetches.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return credentials.Credentials{}, s.err
	}
	return credentials.Credentials{
		AccountID:  account.ID,
		RoleRef:    roleRef,
		Expiration: time.Now().Add(s.ttl),
	}, nil
}

func testEngineConfig() *config.EngineConfig {
	cfg := config.NewConfig()
	return &cfg.Seawall.Engine
}

func TestResolveRoleRef_ExplicitWins(t *testing.T) {
	broker := credentials.NewBroker(&blockingSource{ttl: time.Hour}, testEngineConfig())

	assert.Equal(t, "role/CustomRole",
		broker.ResolveRoleRef(model.TargetAccount{ID: "acct-1", RoleRef: "role/CustomRole"}))
	assert.Equal(t, "role/DRSOrchestrationRole",
		broker.ResolveRoleRef(model.TargetAccount{ID: "acct-2"}))
}

func TestGetCredentials_CachesPerAccount(t *testing.T) {
	source := &blockingSource{ttl: time.Hour}
	broker := credentials.NewBroker(source, testEngineConfig())

	ctx := context.Background()
	first, err := broker.GetCredentials(ctx, model.TargetAccount{ID: "acct-1"})
	require.NoError(t, err)

	second, err := broker.GetCredentials(ctx, model.TargetAccount{ID: "acct-1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, source.fetches.Load())

	// A different account is a separate cache entry.
	_, err = broker.GetCredentials(ctx, model.TargetAccount{ID: "acct-2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, source.fetches.Load())
}

func TestGetCredentials_ExpirySkewForcesRefetch(t *testing.T) {
	// Credential valid for 30s, but the default skew is 60s, so the cache
	// entry is already considered stale on the next read.
	source := &blockingSource{ttl: 30 * time.Second}
	broker := credentials.NewBroker(source, testEngineConfig())

	ctx := context.Background()
	_, err := broker.GetCredentials(ctx, model.TargetAccount{ID: "acct-1"})
	require.NoError(t, err)
	_, err = broker.GetCredentials(ctx, model.TargetAccount{ID: "acct-1"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, source.fetches.Load())
}

func TestGetCredentials_CoalescesConcurrentFetches(t *testing.T) {
	source := &blockingSource{ttl: time.Hour, release: make(chan struct{})}
	broker := credentials.NewBroker(source, testEngineConfig())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = broker.GetCredentials(context.Background(), model.TargetAccount{ID: "acct-1"})
		}(i)
	}

	// Let all callers reach the broker, then release the single in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, source.fetches.Load(), "concurrent misses must coalesce into one upstream fetch")
}

func TestInvalidateThenRefetch(t *testing.T) {
	source := &blockingSource{ttl: time.Hour}
	broker := credentials.NewBroker(source, testEngineConfig())

	ctx := context.Background()
	account := model.TargetAccount{ID: "acct-1"}

	_, err := broker.GetCredentials(ctx, account)
	require.NoError(t, err)

	broker.Invalidate(account.ID)

	_, err = broker.GetCredentials(ctx, account)
	require.NoError(t, err)
	assert.EqualValues(t, 2, source.fetches.Load())
}

func TestGetCredentials_SourceRejectionIsAuthFailure(t *testing.T) {
	source := &blockingSource{ttl: time.Hour, err: errors.New("access denied")}
	broker := credentials.NewBroker(source, testEngineConfig())

	_, err := broker.GetCredentials(context.Background(), model.TargetAccount{ID: "acct-1"})
	require.Error(t, err)
	assert.True(t, exception.IsPermanent(err))
	assert.True(t, exception.IsAuthFailure(err))
}
