package steamauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csgo-seller/internal/models"
)

type fakeMobileClient struct {
	mu sync.Mutex

	loginErrs  []error // consumed one per Login call; nil once exhausted
	logins     int
	confs      []Confirmation
	confErr    error
	listCalls  int
	allowed    []Confirmation
	lastDevice string
}

func (f *fakeMobileClient) Login(ctx context.Context, creds models.SteamCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if len(f.loginErrs) == 0 {
		return nil
	}
	err := f.loginErrs[0]
	f.loginErrs = f.loginErrs[1:]
	return err
}

func (f *fakeMobileClient) SteamID() string { return testSteamID }

func (f *fakeMobileClient) Confirmations(ctx context.Context, identitySecret, deviceID string) ([]Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastDevice = deviceID
	if f.confErr != nil {
		return nil, f.confErr
	}
	confs := f.confs
	f.confs = nil
	return confs, nil
}

func (f *fakeMobileClient) AllowConfirmations(ctx context.Context, identitySecret, deviceID string, confs []Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed = append(f.allowed, confs...)
	return nil
}

func (f *fakeMobileClient) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeMobileClient) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func guardErr() error {
	return &LoginError{Reason: ReasonSteamGuardMobile}
}

func testMobileConfig() MobileConfig {
	return MobileConfig{
		Attempts:             3,
		RetryDelay:           10 * time.Millisecond,
		ConfirmationInterval: 10 * time.Millisecond,
	}
}

func TestMobileLoginBoundedRetry(t *testing.T) {
	// Fails three times, would succeed on the fourth attempt.
	client := &fakeMobileClient{loginErrs: []error{guardErr(), guardErr(), guardErr()}}
	m := NewMobileSession(client, testCreds(), testMobileConfig())

	err := m.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSteamGuardMobile)
	assert.Equal(t, 3, client.Logins())

	// No checker is running after a failed login.
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, client.ListCalls())
}

func TestMobileLoginSucceedsWithinBound(t *testing.T) {
	client := &fakeMobileClient{loginErrs: []error{guardErr(), guardErr()}}
	m := NewMobileSession(client, testCreds(), testMobileConfig())

	start := time.Now()
	require.NoError(t, m.Login(context.Background()))
	defer m.Stop()

	assert.Equal(t, 3, client.Logins())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.Eventually(t, func() bool { return client.ListCalls() > 0 }, time.Second, 5*time.Millisecond)
}

func TestMobileLoginOtherFailureAborts(t *testing.T) {
	client := &fakeMobileClient{loginErrs: []error{errors.New("invalid password")}}
	m := NewMobileSession(client, testCreds(), testMobileConfig())

	err := m.Login(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSteamGuardMobile)
	assert.Equal(t, 1, client.Logins())
}

func TestMobileLoginCancelledDuringRetry(t *testing.T) {
	client := &fakeMobileClient{loginErrs: []error{guardErr(), guardErr()}}
	cfg := testMobileConfig()
	cfg.RetryDelay = time.Hour
	m := NewMobileSession(client, testCreds(), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Login(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, client.Logins())
}

func TestConfirmationCheckerAllowsPending(t *testing.T) {
	client := &fakeMobileClient{confs: []Confirmation{{ID: "1", Nonce: "a"}, {ID: "2", Nonce: "b"}}}
	m := NewMobileSession(client, testCreds(), testMobileConfig())

	require.NoError(t, m.Login(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.allowed) == 2
	}, time.Second, 5*time.Millisecond)

	client.mu.Lock()
	assert.Equal(t, DeviceID(testSteamID), client.lastDevice)
	client.mu.Unlock()
}

func TestConfirmationCheckerReportsExpiry(t *testing.T) {
	client := &fakeMobileClient{confErr: ErrSessionExpired}
	m := NewMobileSession(client, testCreds(), testMobileConfig())

	require.NoError(t, m.Login(context.Background()))

	select {
	case err := <-m.Expired():
		assert.ErrorIs(t, err, ErrSessionExpired)
	case <-time.After(time.Second):
		t.Fatal("expiry not reported")
	}

	m.Stop()
	calls := client.ListCalls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, client.ListCalls())
}

func TestStopWithoutLogin(t *testing.T) {
	m := NewMobileSession(&fakeMobileClient{}, testCreds(), testMobileConfig())
	m.Stop()
}
