package steamauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/xerrors"

	"csgo-seller/internal/metrics"
	"csgo-seller/internal/models"
	"csgo-seller/internal/scheduler"
)

// MobileClient is the session the mobile manager drives. *Client implements it.
type MobileClient interface {
	Login(ctx context.Context, creds models.SteamCredentials) error
	SteamID() string
	Confirmations(ctx context.Context, identitySecret, deviceID string) ([]Confirmation, error)
	AllowConfirmations(ctx context.Context, identitySecret, deviceID string, confs []Confirmation) error
}

type MobileConfig struct {
	Attempts             int
	RetryDelay           time.Duration
	ConfirmationInterval time.Duration
}

// MobileSession is the secondary session used to approve confirmations.
type MobileSession struct {
	client MobileClient
	creds  models.SteamCredentials
	cfg    MobileConfig

	expired     chan error
	expiredOnce sync.Once

	mu       sync.Mutex
	deviceID string
	cancel   context.CancelFunc
	done     <-chan struct{}
}

func NewMobileSession(client MobileClient, creds models.SteamCredentials, cfg MobileConfig) *MobileSession {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &MobileSession{
		client:  client,
		creds:   creds,
		cfg:     cfg,
		expired: make(chan error, 1),
	}
}

// Login signs the mobile session in. A SteamGuardMobile rejection is retried
// after RetryDelay for at most Attempts attempts in total; any other failure
// is returned at once. On success the confirmation checker is started.
func (m *MobileSession) Login(ctx context.Context) error {
	b := &backoff.Backoff{Min: m.cfg.RetryDelay, Max: m.cfg.RetryDelay, Factor: 1}

	for {
		err := m.client.Login(ctx, m.creds)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSteamGuardMobile) {
			return xerrors.Errorf("mobile login: %w", err)
		}

		attempt := int(b.Attempt()) + 1
		if attempt >= m.cfg.Attempts {
			return xerrors.Errorf("mobile login failed after %d attempts: %w", attempt, err)
		}

		delay := b.Duration()
		log.Warnw("mobile login needs a fresh code, retrying", "attempt", attempt, "delay", delay)
		if err := scheduler.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	m.startChecker(ctx)
	log.Info("mobile service logged on")
	return nil
}

func (m *MobileSession) startChecker(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.deviceID = DeviceID(m.client.SteamID())

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = scheduler.Go(ctx, "mobile-confirmations", m.cfg.ConfirmationInterval, m.checkConfirmations)
}

func (m *MobileSession) checkConfirmations(ctx context.Context) error {
	m.mu.Lock()
	deviceID := m.deviceID
	m.mu.Unlock()

	confs, err := m.client.Confirmations(ctx, m.creds.IdentitySecret, deviceID)
	if err == nil && len(confs) > 0 {
		err = m.client.AllowConfirmations(ctx, m.creds.IdentitySecret, deviceID, confs)
		if err == nil {
			metrics.Confirmations.Add(float64(len(confs)))
			log.Infow("accepted confirmations", "count", len(confs))
		}
	}

	if errors.Is(err, ErrSessionExpired) {
		m.expiredOnce.Do(func() {
			m.expired <- err
		})
		m.mu.Lock()
		if m.cancel != nil {
			m.cancel()
		}
		m.mu.Unlock()
		return nil
	}
	return err
}

// Expired delivers the session expiry error once. The session does not
// log itself back in.
func (m *MobileSession) Expired() <-chan error {
	return m.expired
}

// Stop stops the confirmation checker and waits for it to exit.
func (m *MobileSession) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
