package licenses_test

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnomandev/gnoman/licenses"
)

func issueTestToken(t *testing.T) (string, ed25519.PublicKey, func(string, time.Time) (licenses.Claims, error)) {
	t.Helper()
	pub, priv, err := licenses.GenerateKeypair()
	require.NoError(t, err)
	token, err := licenses.Issue("customer-42", licenses.DEFAULT_PRODUCT, licenses.DEFAULT_VERSION, 30, priv)
	require.NoError(t, err)
	verify := func(tok string, now time.Time) (licenses.Claims, error) {
		return licenses.Verify(tok, pub, licenses.DEFAULT_PRODUCT, licenses.DEFAULT_VERSION, now)
	}
	return token, pub, verify
}

func TestIssueAndVerify(t *testing.T) {
	token, _, verify := issueTestToken(t)

	claims, err := verify(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "customer-42", claims.ID)
	assert.Equal(t, licenses.DEFAULT_PRODUCT, claims.Product)
	assert.Equal(t, licenses.DEFAULT_VERSION, claims.Version)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestVerifyAcceptsHumanFormat(t *testing.T) {
	token, _, verify := issueTestToken(t)

	human := licenses.HumanFormat(token)
	assert.Contains(t, human, "-")
	assert.NotEqual(t, token, human)

	claims, err := verify(human, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "customer-42", claims.ID)

	// Lowercase with stray spaces still decodes.
	sloppy := " " + strings.ToLower(human) + " "
	_, err = verify(sloppy, time.Now())
	assert.NoError(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	token, _, verify := issueTestToken(t)

	_, err := verify(token, time.Now().Add(31*24*time.Hour))
	assert.True(t, errors.Is(err, licenses.ErrExpired))
}

func TestVerifyWrongProduct(t *testing.T) {
	pub, priv, err := licenses.GenerateKeypair()
	require.NoError(t, err)
	token, err := licenses.Issue("id", "OTHER", "1.0.0", 30, priv)
	require.NoError(t, err)

	_, err = licenses.Verify(token, pub, licenses.DEFAULT_PRODUCT, licenses.DEFAULT_VERSION, time.Now())
	assert.True(t, errors.Is(err, licenses.ErrWrongProduct))
}

func TestVerifyTamperedToken(t *testing.T) {
	token, _, verify := issueTestToken(t)

	// Re-sign with a different key: same shape, wrong signature.
	_, otherPriv, err := licenses.GenerateKeypair()
	require.NoError(t, err)
	forged, err := licenses.Issue("customer-42", licenses.DEFAULT_PRODUCT, licenses.DEFAULT_VERSION, 30, otherPriv)
	require.NoError(t, err)

	_, err = verify(forged, time.Now())
	assert.True(t, errors.Is(err, licenses.ErrBadSignature))

	_, err = verify(token+"x", time.Now())
	assert.Error(t, err)
}

func TestVerifyMalformedTokens(t *testing.T) {
	_, _, verify := issueTestToken(t)

	for _, bad := range []string{"", "no-separator", ".", "a.", ".b", "!!!.???", "a|b.c"} {
		_, err := verify(bad, time.Now())
		assert.Error(t, err, "token %q must be rejected", bad)
	}
}

func TestKeypairPEMRoundTrip(t *testing.T) {
	pub, priv, err := licenses.GenerateKeypair()
	require.NoError(t, err)

	privPEM, err := licenses.EncodePrivateKeyPEM(priv)
	require.NoError(t, err)
	pubPEM, err := licenses.EncodePublicKeyPEM(pub)
	require.NoError(t, err)
	assert.Contains(t, string(privPEM), "PRIVATE KEY")
	assert.Contains(t, string(pubPEM), "PUBLIC KEY")

	parsedPriv, err := licenses.ParsePrivateKeyPEM(privPEM)
	require.NoError(t, err)
	parsedPub, err := licenses.ParsePublicKeyPEM(pubPEM)
	require.NoError(t, err)

	token, err := licenses.Issue("id", licenses.DEFAULT_PRODUCT, licenses.DEFAULT_VERSION, 1, parsedPriv)
	require.NoError(t, err)
	_, err = licenses.Verify(token, parsedPub, licenses.DEFAULT_PRODUCT, licenses.DEFAULT_VERSION, time.Now())
	assert.NoError(t, err)
}
