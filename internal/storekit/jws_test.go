package storekit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigningKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signTransaction(t *testing.T, key *ecdsa.PrivateKey, claims signedTransactionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func baseClaims() signedTransactionClaims {
	return signedTransactionClaims{
		TransactionID:  "tx-9000",
		ProductID:      "report.career.single",
		Quantity:       2,
		PurchaseDateMs: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "appstore",
			Audience: jwt.ClaimStrings{"astroledger"},
		},
	}
}

func TestVerifier_DecodeValidPayload(t *testing.T) {
	key, pemKey := newSigningKey(t)
	verifier, err := NewVerifier(pemKey, "appstore", "astroledger")
	require.NoError(t, err)

	tx, err := verifier.Decode(signTransaction(t, key, baseClaims()))
	require.NoError(t, err)
	assert.Equal(t, "tx-9000", tx.ID)
	assert.Equal(t, "report.career.single", tx.ProductID)
	assert.Equal(t, 2, tx.Quantity)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), tx.PurchasedAt)
}

func TestVerifier_TamperedPayloadFailsVerification(t *testing.T) {
	key, pemKey := newSigningKey(t)
	verifier, err := NewVerifier(pemKey, "appstore", "astroledger")
	require.NoError(t, err)

	signed := signTransaction(t, key, baseClaims())
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	// Swap the payload for the one from another token.
	other := baseClaims()
	other.TransactionID = "tx-forged"
	forged := strings.Split(signTransaction(t, key, other), ".")
	tampered := parts[0] + "." + forged[1] + "." + parts[2]

	_, err = verifier.Decode(tampered)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestVerifier_WrongKeyFailsVerification(t *testing.T) {
	key, _ := newSigningKey(t)
	_, otherPEM := newSigningKey(t)

	verifier, err := NewVerifier(otherPEM, "appstore", "astroledger")
	require.NoError(t, err)

	_, err = verifier.Decode(signTransaction(t, key, baseClaims()))
	assert.ErrorIs(t, err, ErrVerification)
}

func TestVerifier_IssuerAndAudienceChecked(t *testing.T) {
	key, pemKey := newSigningKey(t)
	verifier, err := NewVerifier(pemKey, "appstore", "astroledger")
	require.NoError(t, err)

	wrongIssuer := baseClaims()
	wrongIssuer.Issuer = "someone-else"
	_, err = verifier.Decode(signTransaction(t, key, wrongIssuer))
	assert.ErrorIs(t, err, ErrVerification)

	wrongAudience := baseClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other-app"}
	_, err = verifier.Decode(signTransaction(t, key, wrongAudience))
	assert.ErrorIs(t, err, ErrVerification)
}

func TestVerifier_IncompleteTransactionRejected(t *testing.T) {
	key, pemKey := newSigningKey(t)
	verifier, err := NewVerifier(pemKey, "appstore", "astroledger")
	require.NoError(t, err)

	missing := baseClaims()
	missing.TransactionID = ""
	_, err = verifier.Decode(signTransaction(t, key, missing))
	assert.ErrorIs(t, err, ErrVerification)
}

func TestVerifier_QuantityDefaultsToOne(t *testing.T) {
	key, pemKey := newSigningKey(t)
	verifier, err := NewVerifier(pemKey, "appstore", "astroledger")
	require.NoError(t, err)

	claims := baseClaims()
	claims.Quantity = 0
	tx, err := verifier.Decode(signTransaction(t, key, claims))
	require.NoError(t, err)
	assert.Equal(t, 1, tx.Quantity)
}
