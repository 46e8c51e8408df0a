package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	"github.com/aussiebroadwan/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("test-access-secret-0123456789abcdef")
	refreshSecret = []byte("test-refresh-secret-0123456789abcdef")
)

// clock is a settable time source shared by the codec and the service.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Now().UTC().Truncate(time.Second)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc   *service.AuthService
	store *sqlite.Store
	codec *jwtx.Codec
	clock *clock
	obs   *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clk := newClock()
	codec := jwtx.NewCodec(jwtx.Options{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Now:           clk.Now,
	})
	obs := &recordingObserver{}

	return &fixture{
		svc:   &service.AuthService{Store: st, Codec: codec, Observer: obs, Now: clk.Now},
		store: st,
		codec: codec,
		clock: clk,
		obs:   obs,
	}
}

func (f *fixture) register(t *testing.T, email string, role domain.Role) (domain.UserSummary, domain.TokenPair) {
	t.Helper()

	u, pair, err := f.svc.Register(context.Background(), service.RegisterInput{
		Email:       email,
		Password:    "secret1",
		DisplayName: "Test " + email,
		Role:        string(role),
	})
	require.NoError(t, err)
	return u, pair
}

// recordingObserver counts outcomes per operation.
type recordingObserver struct {
	mu        sync.Mutex
	ops       map[string]int
	auths     map[string]int
	conflicts int
}

func (o *recordingObserver) AuthOperation(op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ops == nil {
		o.ops = map[string]int{}
	}
	o.ops[op+"/"+outcome]++
}

func (o *recordingObserver) Authentication(method, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.auths == nil {
		o.auths = map[string]int{}
	}
	o.auths[method+"/"+outcome]++
}

func (o *recordingObserver) RefreshConflict() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts++
}

func (o *recordingObserver) op(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ops[key]
}

var errBackendDown = errors.New("backend down")

// failingRevocations fails every call, standing in for an unreachable backend.
type failingRevocations struct{}

func (failingRevocations) Get(context.Context, string) (domain.Revocation, error) {
	return domain.Revocation{}, errBackendDown
}
func (failingRevocations) Put(context.Context, domain.Revocation) error { return errBackendDown }
func (failingRevocations) Replace(context.Context, string, string, string) error {
	return errBackendDown
}
func (failingRevocations) Revoke(context.Context, string, string) error { return errBackendDown }
func (failingRevocations) Delete(context.Context, string) error         { return errBackendDown }
func (failingRevocations) DeleteStale(context.Context, time.Time) (int64, error) {
	return 0, errBackendDown
}

var _ store.Revocations = failingRevocations{}
