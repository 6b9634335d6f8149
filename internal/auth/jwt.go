package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token contract with the auth service: the caller id
// rides in user_id, with the registered subject as fallback.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTVerifier checks RS256 tokens against the auth service's public key.
type JWTVerifier struct {
	pub *rsa.PublicKey
}

func NewJWTVerifier(pubPath string) (*JWTVerifier, error) {
	b, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse jwt public key: %w", err)
	}
	return &JWTVerifier{pub: pub}, nil
}

// VerifyToken returns the caller id of a valid token. Only RS256 is
// accepted; alg confusion with HMAC variants is rejected up front.
func (j *JWTVerifier) VerifyToken(token string) (string, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return j.pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", errors.New("invalid token")
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", errors.New("token carries no caller id")
}
