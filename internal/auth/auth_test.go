package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerEphemeralRoundTrip(t *testing.T) {
	mgr, err := NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	user := GoogleUser{Sub: "google-sub-123", Email: "ada@example.com", Name: "Ada"}
	token, exp, err := mgr.IssueSession(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-123", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "adforge", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTManagerRejectsExpired(t *testing.T) {
	mgr, err := NewJWTManager("", "", -time.Minute)
	require.NoError(t, err)

	token, _, err := mgr.IssueSession(GoogleUser{Sub: "s"})
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManagerRejectsForeignKey(t *testing.T) {
	a, err := NewJWTManager("", "", time.Hour)
	require.NoError(t, err)
	b, err := NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	token, _, err := a.IssueSession(GoogleUser{Sub: "s"})
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManagerRejectsWrongAlgorithm(t *testing.T) {
	mgr, err := NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "s",
		Issuer:    "adforge",
		Audience:  jwt.ClaimStrings{"adforge"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	forged, err := hs.SignedString([]byte("guessable"))
	require.NoError(t, err)

	_, err = mgr.ValidateToken(forged)
	assert.Error(t, err)
}

func TestJWTManagerGarbageToken(t *testing.T) {
	mgr, err := NewJWTManager("", "", time.Hour)
	require.NoError(t, err)
	_, err = mgr.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func writeKeyPair(t *testing.T) (privPath, pubPath string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath,
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600))
	require.NoError(t, os.WriteFile(pubPath,
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644))
	return privPath, pubPath
}

func TestJWTManagerFromPEMFiles(t *testing.T) {
	privPath, pubPath := writeKeyPair(t)

	mgr, err := NewJWTManager(privPath, pubPath, time.Hour)
	require.NoError(t, err)

	token, _, err := mgr.IssueSession(GoogleUser{Sub: "s", Email: "e@example.com"})
	require.NoError(t, err)
	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s", claims.Subject)
}

func TestJWTManagerMismatchedKeyPair(t *testing.T) {
	privPath, _ := writeKeyPair(t)
	_, otherPub := writeKeyPair(t)

	_, err := NewJWTManager(privPath, otherPub, time.Hour)
	assert.ErrorContains(t, err, "does not match")
}

func TestJWTManagerMissingKeyFile(t *testing.T) {
	_, err := NewJWTManager("/nonexistent/private.pem", "/nonexistent/public.pem", time.Hour)
	assert.Error(t, err)
}
