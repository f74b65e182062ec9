// Package steamauth holds the Steam community session: web login with a
// Steam Guard code, Web API key discovery and mobile confirmations.
package steamauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/models"
)

var log = logging.Logger("steamauth")

// Endpoints are the Steam web roots the session talks to.
type Endpoints struct {
	Store     string
	Community string
}

var DefaultEndpoints = Endpoints{
	Store:     "https://store.steampowered.com",
	Community: "https://steamcommunity.com",
}

// ReasonSteamGuardMobile is the login failure reason when Steam wants a
// fresh mobile authenticator code.
const ReasonSteamGuardMobile = "SteamGuardMobile"

// LoginError is a rejected login. Compare with errors.Is against
// ErrSteamGuardMobile.
type LoginError struct {
	Reason  string
	Message string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return e.Reason
	}
	if e.Reason == "" {
		return e.Message
	}
	return e.Reason + ": " + e.Message
}

func (e *LoginError) Is(target error) bool {
	t, ok := target.(*LoginError)
	return ok && t.Reason != "" && t.Reason == e.Reason
}

var (
	ErrSteamGuardMobile = &LoginError{Reason: ReasonSteamGuardMobile}
	ErrSessionExpired   = xerrors.New("steam session expired")
)

var apiKeyRe = regexp.MustCompile(`Key:\s*([0-9A-F]{32})`)

// Client is one Steam community web session with its own cookie jar.
type Client struct {
	http      *resty.Client
	jar       http.CookieJar
	endpoints Endpoints
	now       func() time.Time

	mu      sync.RWMutex
	steamID string
}

func NewClient(endpoints Endpoints, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, xerrors.Errorf("creating cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Linux; Android 9) csgo-seller")

	return &Client{
		http:      client,
		jar:       jar,
		endpoints: endpoints,
		now:       time.Now,
	}, nil
}

// SteamID returns the SteamID64 of the logged in account, or "".
func (c *Client) SteamID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.steamID
}

// Login signs in with the account password and a Steam Guard code
// generated from the shared secret.
func (c *Client) Login(ctx context.Context, creds models.SteamCredentials) error {
	// 1) RSA 公钥
	pub, ts, err := c.getRSAKey(ctx, creds.AccountName)
	if err != nil {
		return err
	}

	// 2) 加密密码
	encPwd, err := encryptPassword(creds.Password, pub)
	if err != nil {
		return err
	}

	// 3) 两步验证码
	code, err := GenerateAuthCode(creds.SharedSecret, c.now())
	if err != nil {
		return err
	}

	// 4) dologin
	steamID, err := c.doLogin(ctx, creds.AccountName, encPwd, code, ts)
	if err != nil {
		return err
	}

	if err := c.ensureSessionID(); err != nil {
		return err
	}

	c.mu.Lock()
	c.steamID = steamID
	c.mu.Unlock()

	log.Infow("logged on", "account", creds.AccountName, "steamid", steamID)
	return nil
}

func (c *Client) getRSAKey(ctx context.Context, username string) (*rsa.PublicKey, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"username": username}).
		Post(c.endpoints.Store + "/login/getrsakey/")
	if err != nil {
		return nil, "", xerrors.Errorf("getrsakey request: %w", err)
	}

	var res struct {
		Success      bool   `json:"success"`
		PublicKeyMod string `json:"publickey_mod"`
		PublicKeyExp string `json:"publickey_exp"`
		Timestamp    string `json:"timestamp"`
	}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return nil, "", xerrors.Errorf("decoding getrsakey response: %w", err)
	}
	if !res.Success {
		return nil, "", xerrors.New("getrsakey failed")
	}

	n, ok := new(big.Int).SetString(res.PublicKeyMod, 16)
	if !ok {
		return nil, "", xerrors.Errorf("bad rsa modulus %q", res.PublicKeyMod)
	}
	e, ok := new(big.Int).SetString(res.PublicKeyExp, 16)
	if !ok {
		return nil, "", xerrors.Errorf("bad rsa exponent %q", res.PublicKeyExp)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, res.Timestamp, nil
}

func encryptPassword(password string, pub *rsa.PublicKey) (string, error) {
	enc, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", xerrors.Errorf("encrypting password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

type loginResponse struct {
	Success           bool              `json:"success"`
	RequiresTwofactor bool              `json:"requires_twofactor"`
	CaptchaNeeded     bool              `json:"captcha_needed"`
	EmailAuthNeeded   bool              `json:"emailauth_needed"`
	Message           string            `json:"message"`
	TransferURLs      []string          `json:"transfer_urls"`
	TransferParams    map[string]string `json:"transfer_parameters"`
}

func (r *loginResponse) failure() *LoginError {
	switch {
	case r.RequiresTwofactor:
		return &LoginError{Reason: ReasonSteamGuardMobile, Message: r.Message}
	case r.CaptchaNeeded:
		return &LoginError{Reason: "CAPTCHA", Message: r.Message}
	case r.EmailAuthNeeded:
		return &LoginError{Reason: "SteamGuard", Message: r.Message}
	default:
		return &LoginError{Message: "login failed: " + r.Message}
	}
}

func (c *Client) doLogin(ctx context.Context, username, encPwd, twoFactor, ts string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":       username,
			"password":       encPwd,
			"twofactorcode":  twoFactor,
			"rsatimestamp":   ts,
			"remember_login": "true",
			"donotcache":     strconv.FormatInt(c.now().UnixNano()/int64(time.Millisecond), 10),
		}).
		Post(c.endpoints.Store + "/login/dologin/")
	if err != nil {
		return "", xerrors.Errorf("dologin request: %w", err)
	}

	var res loginResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return "", xerrors.Errorf("decoding dologin response: %w", err)
	}
	if !res.Success {
		return "", res.failure()
	}

	// Transfers set the login cookies on the other Steam domains.
	for _, u := range res.TransferURLs {
		if _, err := c.http.R().SetContext(ctx).SetFormData(res.TransferParams).Post(u); err != nil {
			log.Warnw("login transfer failed", "url", u, "err", err)
		}
	}
	return res.TransferParams["steamid"], nil
}

// ensureSessionID makes sure both web roots carry the same sessionid cookie.
func (c *Client) ensureSessionID() error {
	if c.SessionID() != "" {
		return nil
	}

	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return xerrors.Errorf("generating session id: %w", err)
	}
	cookie := &http.Cookie{Name: "sessionid", Value: hex.EncodeToString(b[:]), Path: "/"}

	for _, root := range []string{c.endpoints.Community, c.endpoints.Store} {
		u, err := url.Parse(root)
		if err != nil {
			return xerrors.Errorf("parsing %q: %w", root, err)
		}
		c.jar.SetCookies(u, []*http.Cookie{cookie})
	}
	return nil
}

// SessionID returns the community sessionid cookie, falling back to the store one.
func (c *Client) SessionID() string {
	for _, root := range []string{c.endpoints.Community, c.endpoints.Store} {
		u, err := url.Parse(root)
		if err != nil {
			continue
		}
		for _, ck := range c.jar.Cookies(u) {
			if ck.Name == "sessionid" {
				return ck.Value
			}
		}
	}
	return ""
}

// WebAPIKey returns the account's Web API key, registering one if the
// account has none yet.
func (c *Client) WebAPIKey(ctx context.Context) (string, error) {
	key, err := c.getWebAPIKey(ctx)
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}

	sessionID := c.SessionID()
	if sessionID == "" {
		return "", xerrors.New("missing sessionid cookie")
	}

	log.Info("registering web api key")
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"sessionid":    sessionID,
			"agreeToTerms": "agreed",
			"domain":       "localhost",
			"Submit":       "Register",
		}).
		Post(c.endpoints.Community + "/dev/registerkey")
	if err != nil {
		return "", xerrors.Errorf("registerkey request: %w", err)
	}
	if resp.IsError() {
		return "", xerrors.Errorf("registerkey: unexpected status %s", resp.Status())
	}

	key, err = c.getWebAPIKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", xerrors.New("web api key not found after registration")
	}
	return key, nil
}

func (c *Client) getWebAPIKey(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.endpoints.Community + "/dev/apikey")
	if err != nil {
		return "", xerrors.Errorf("apikey request: %w", err)
	}
	if resp.IsError() {
		return "", xerrors.Errorf("apikey: unexpected status %s", resp.Status())
	}
	if m := apiKeyRe.FindSubmatch(resp.Body()); len(m) >= 2 {
		return string(m[1]), nil
	}
	return "", nil
}
