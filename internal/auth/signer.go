package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"executor/internal/models"
)

// Signer computes request signatures over order parameters
type Signer interface {
	Sign(params *models.OrderParams, secret string) (string, error)
}

// HMACSigner handles HMAC-SHA256 signing for Binance API requests.
// It holds no state; the secret is passed on every call.
type HMACSigner struct{}

// NewHMACSigner creates a new signer
func NewHMACSigner() *HMACSigner {
	return &HMACSigner{}
}

// Sign generates the HMAC-SHA256 signature of the encoded parameters.
// The parameters are encoded in insertion order, the same string that is sent.
func (s *HMACSigner) Sign(params *models.OrderParams, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: signing secret is empty", models.ErrInvalidCredentials)
	}
	if params == nil {
		return "", fmt.Errorf("%w: no parameters to sign", models.ErrInvalidOrderIntent)
	}

	return signPayload(params.Encode(), secret), nil
}

// Verify checks a signature against the parameters in constant time
func (s *HMACSigner) Verify(params *models.OrderParams, secret, signature string) bool {
	expected, err := s.Sign(params, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyPayload checks a signature against an already encoded query string
func VerifyPayload(payload, secret, signature string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(signPayload(payload, secret)), []byte(signature))
}

func signPayload(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))

	return hex.EncodeToString(h.Sum(nil))
}
