package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "enablebanking.com"
	Audience = "api.enablebanking.com"
	TokenTTL = time.Hour
)

// GetJWT signs the application token used as the bearer credential. The key id
// header carries the application id.
func GetJWT(applicationID string, keyPath string, now time.Time) (string, error) {
	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return "", fmt.Errorf("parse private key %q: %w", keyPath, err)
	}
	return SignJWT(applicationID, key, now)
}

func SignJWT(applicationID string, key *rsa.PrivateKey, now time.Time) (string, error) {
	if applicationID == "" {
		return "", fmt.Errorf("application id is empty")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	})
	token.Header["kid"] = applicationID
	return token.SignedString(key)
}
