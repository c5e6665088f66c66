package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

// Claims is the payload bound into a boarding-credential token.
type Claims struct {
	CredentialID string
	StudentID    string
	ExpiresAt    time.Time
}

// Codec signs and verifies boarding-credential tokens. The wire format is
// PREFIX|credentialID|studentID|expiryRFC3339|hexSignature with the HMAC-SHA256
// signature computed over credentialID|studentID|expiryRFC3339. Embedding the
// expiry in the signed payload lets verification reject replays without a
// storage lookup.
type Codec struct {
	secret []byte
	prefix string
}

// NewCodec constructs a codec with the process-wide signing secret.
func NewCodec(secret, prefix string) *Codec {
	if prefix == "" {
		prefix = "CTP"
	}
	return &Codec{secret: []byte(secret), prefix: prefix}
}

// Sign produces a token for the credential.
func (c *Codec) Sign(credentialID, studentID string, expiresAt time.Time) (string, error) {
	if credentialID == "" || studentID == "" {
		return "", fmt.Errorf("credentialID and studentID required")
	}
	if len(c.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	expiry := expiresAt.UTC().Format(time.RFC3339)
	payload := fmt.Sprintf("%s|%s|%s", credentialID, studentID, expiry)
	return strings.Join([]string{c.prefix, credentialID, studentID, expiry, c.sign(payload)}, "|"), nil
}

// Verify validates structure, signature and expiry, returning the embedded
// claims. now is the single authoritative instant of the calling operation.
func (c *Codec) Verify(raw string, now time.Time) (*Claims, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 5 {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "token must have 5 pipe-delimited fields")
	}
	if parts[0] != c.prefix {
		return nil, appErrors.Clonef(appErrors.ErrMalformedToken, "unknown token prefix %q", parts[0])
	}
	credentialID, studentID, expiry, signature := parts[1], parts[2], parts[3], parts[4]
	if credentialID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "token is missing identity fields")
	}

	payload := fmt.Sprintf("%s|%s|%s", credentialID, studentID, expiry)
	expected := c.sign(payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, appErrors.ErrBadSignature
	}

	expiresAt, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "token expiry is not RFC3339")
	}
	if now.After(expiresAt) {
		return nil, appErrors.Clonef(appErrors.ErrTokenExpired, "credential expired at %s", expiry)
	}

	return &Claims{CredentialID: credentialID, StudentID: studentID, ExpiresAt: expiresAt}, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
