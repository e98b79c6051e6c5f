// Package licenses issues and verifies offline license tokens. A token is
// base64url(payload).base64url(signature) where the payload is
// "id|product|version|expiryTimestamp" signed with ed25519, optionally
// wrapped in a base32 human-friendly form grouped by dashes.
package licenses

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base32"
	"encoding/base64"
	"encoding/pem"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DEFAULT_PRODUCT string = "GNOMAN"
	DEFAULT_VERSION string = "2.0.0"
	DEFAULT_DAYS    int    = 365

	humanGroupSize int = 5
)

var (
	ErrMalformedToken = errors.New("malformed license token")
	ErrBadSignature   = errors.New("license signature verification failed")
	ErrExpired        = errors.New("license expired")
	ErrWrongProduct   = errors.New("license issued for a different product or version")
)

type Claims struct {
	ID        string
	Product   string
	Version   string
	ExpiresAt time.Time
}

func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	return pub, priv, errors.Wrap(err, "generating license keypair")
}

func EncodePrivateKeyPEM(priv ed25519.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, errors.Wrap(err, "encoding license private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func EncodePublicKeyPEM(pub ed25519.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, errors.Wrap(err, "encoding license public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func ParsePrivateKeyPEM(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in license private key")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parsing license private key")
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("license private key is not ed25519")
	}
	return priv, nil
}

func ParsePublicKeyPEM(data []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in license public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parsing license public key")
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("license public key is not ed25519")
	}
	return pub, nil
}

// Issue signs a token for id valid for the given number of days from now.
func Issue(id, product, version string, days int, priv ed25519.PrivateKey) (string, error) {
	if id == "" {
		return "", errors.New("license id is required")
	}
	expiry := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	payload := strings.Join(
		[]string{id, product, version, strconv.FormatInt(expiry.Unix(), 10)},
		"|",
	)
	signature := ed25519.Sign(priv, []byte(payload))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) +
		"." +
		base64.RawURLEncoding.EncodeToString(signature), nil
}

var humanEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// HumanFormat renders a raw token as dash-grouped base32 for manual entry.
func HumanFormat(token string) string {
	encoded := humanEncoding.EncodeToString([]byte(token))
	groups := []string{}
	for i := 0; i < len(encoded); i += humanGroupSize {
		end := i + humanGroupSize
		if end > len(encoded) {
			end = len(encoded)
		}
		groups = append(groups, encoded[i:end])
	}
	return strings.Join(groups, "-")
}

// decodeHuman undoes HumanFormat. Returns ok=false when the input isn't
// base32, in which case the caller should treat it as a raw token.
func decodeHuman(human string) (string, bool) {
	normalized := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(human)))
	if normalized == "" {
		return "", false
	}
	decoded, err := humanEncoding.DecodeString(normalized)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// Verify accepts a raw or human-formatted token and returns its claims. The
// signature must check out, product and version must match the expected pair
// and the expiry must be in the future relative to now.
func Verify(token string, pub ed25519.PublicKey, expectedProduct, expectedVersion string, now time.Time) (Claims, error) {
	raw := token
	if decoded, ok := decodeHuman(token); ok {
		raw = decoded
	}

	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Claims{}, errors.Wrap(ErrMalformedToken, "missing signature separator")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, errors.Wrap(ErrMalformedToken, "payload is not base64url")
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, errors.Wrap(ErrMalformedToken, "signature is not base64url")
	}

	fields := strings.Split(string(payload), "|")
	if len(fields) != 4 {
		return Claims{}, errors.Wrap(ErrMalformedToken, "unexpected payload shape")
	}
	expiryTs, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Claims{}, errors.Wrap(ErrMalformedToken, "invalid expiry timestamp")
	}
	claims := Claims{
		ID:        fields[0],
		Product:   fields[1],
		Version:   fields[2],
		ExpiresAt: time.Unix(expiryTs, 0).UTC(),
	}

	if claims.Product != expectedProduct || claims.Version != expectedVersion {
		return Claims{}, errors.Wrapf(ErrWrongProduct, "token is for %s %s", claims.Product, claims.Version)
	}
	if now.After(claims.ExpiresAt) {
		return Claims{}, errors.Wrapf(ErrExpired, "at %s", claims.ExpiresAt.Format(time.RFC3339))
	}
	if !ed25519.Verify(pub, payload, signature) {
		return Claims{}, errors.WithStack(ErrBadSignature)
	}
	return claims, nil
}
