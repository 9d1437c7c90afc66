package storekit

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signedTransactionClaims is the payload of a signed platform transaction.
type signedTransactionClaims struct {
	TransactionID  string `json:"transactionId"`
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	PurchaseDateMs int64  `json:"purchaseDate"`
	jwt.RegisteredClaims
}

// Verifier checks platform transaction signatures (ES256 JWS).
type Verifier struct {
	key      *ecdsa.PublicKey
	issuer   string
	audience string
}

// NewVerifier parses the PEM-encoded platform signing key.
func NewVerifier(publicKeyPEM, issuer, audience string) (*Verifier, error) {
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse store public key: %w", err)
	}
	return &Verifier{key: key, issuer: issuer, audience: audience}, nil
}

// Decode verifies the signed payload and extracts the transaction.
// Any signature, issuer or audience mismatch maps to ErrVerification.
func (v *Verifier) Decode(signedPayload string) (Transaction, error) {
	claims := &signedTransactionClaims{}
	_, err := jwt.ParseWithClaims(signedPayload, claims,
		func(token *jwt.Token) (interface{}, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	if strings.TrimSpace(claims.TransactionID) == "" || strings.TrimSpace(claims.ProductID) == "" {
		return Transaction{}, fmt.Errorf("%w: incomplete transaction payload", ErrVerification)
	}

	quantity := claims.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	return Transaction{
		ID:          claims.TransactionID,
		ProductID:   claims.ProductID,
		Quantity:    quantity,
		PurchasedAt: time.UnixMilli(claims.PurchaseDateMs).UTC(),
	}, nil
}
