package steamauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

const codeChars = "23456789BCDFGHJKMNPQRTVWXY"

// GenerateAuthCode returns the 5 character Steam Guard code for sharedSecret at t.
func GenerateAuthCode(sharedSecret string, t time.Time) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", xerrors.Errorf("decoding shared secret: %w", err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.Unix()/30))

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	h := mac.Sum(nil)

	offset := h[len(h)-1] & 0x0F
	code := binary.BigEndian.Uint32(h[offset:offset+4]) & 0x7FFFFFFF

	var out strings.Builder
	for i := 0; i < 5; i++ {
		out.WriteByte(codeChars[code%uint32(len(codeChars))])
		code /= uint32(len(codeChars))
	}
	return out.String(), nil
}

// ConfirmationKey signs a mobile confirmation request for tag at t.
func ConfirmationKey(identitySecret string, t time.Time, tag string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(identitySecret)
	if err != nil {
		return "", xerrors.Errorf("decoding identity secret: %w", err)
	}

	buf := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	buf = append(buf, tag...)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// DeviceID derives a stable mobile device id from a SteamID64.
func DeviceID(steamID string) string {
	return "android:" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(steamID)).String()
}
