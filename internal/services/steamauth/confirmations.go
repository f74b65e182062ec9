package steamauth

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"golang.org/x/xerrors"
)

// Confirmation is one pending mobile confirmation.
type Confirmation struct {
	ID        string `json:"id"`
	Nonce     string `json:"nonce"`
	Type      int    `json:"type"`
	CreatorID string `json:"creator_id"`
	Headline  string `json:"headline"`
}

type confListResponse struct {
	Success  bool           `json:"success"`
	NeedAuth bool           `json:"needauth"`
	Message  string         `json:"message"`
	Conf     []Confirmation `json:"conf"`
}

func (c *Client) confParams(identitySecret, deviceID, tag string) (url.Values, error) {
	steamID := c.SteamID()
	if steamID == "" {
		return nil, xerrors.New("not logged in")
	}

	now := c.now()
	key, err := ConfirmationKey(identitySecret, now, tag)
	if err != nil {
		return nil, err
	}

	return url.Values{
		"p":   {deviceID},
		"a":   {steamID},
		"k":   {key},
		"t":   {strconv.FormatInt(now.Unix(), 10)},
		"m":   {"react"},
		"tag": {tag},
	}, nil
}

// Confirmations lists the pending mobile confirmations. It returns
// ErrSessionExpired when Steam no longer accepts the session.
func (c *Client) Confirmations(ctx context.Context, identitySecret, deviceID string) ([]Confirmation, error) {
	params, err := c.confParams(identitySecret, deviceID, "list")
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(c.endpoints.Community + "/mobileconf/getlist")
	if err != nil {
		return nil, xerrors.Errorf("getlist request: %w", err)
	}

	var res confListResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return nil, xerrors.Errorf("decoding getlist response: %w", err)
	}
	if res.NeedAuth {
		return nil, ErrSessionExpired
	}
	if !res.Success {
		return nil, xerrors.Errorf("getlist failed: %s", res.Message)
	}
	return res.Conf, nil
}

// AllowConfirmations accepts confs in one request.
func (c *Client) AllowConfirmations(ctx context.Context, identitySecret, deviceID string, confs []Confirmation) error {
	if len(confs) == 0 {
		return nil
	}

	form, err := c.confParams(identitySecret, deviceID, "accept")
	if err != nil {
		return err
	}
	form.Set("op", "allow")
	for _, conf := range confs {
		form.Add("cid[]", conf.ID)
		form.Add("ck[]", conf.Nonce)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(c.endpoints.Community + "/mobileconf/multiajaxop")
	if err != nil {
		return xerrors.Errorf("multiajaxop request: %w", err)
	}

	var res struct {
		Success  bool `json:"success"`
		NeedAuth bool `json:"needauth"`
	}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return xerrors.Errorf("decoding multiajaxop response: %w", err)
	}
	if res.NeedAuth {
		return ErrSessionExpired
	}
	if !res.Success {
		return xerrors.Errorf("multiajaxop rejected %d confirmations", len(confs))
	}
	return nil
}
