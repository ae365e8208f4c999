// Package auth verifies the credentials presented at admission. Token
// issuance belongs to the surrounding system; the coordinator only checks
// signature and expiry and extracts the identity claims.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/courier/internal/domain"
)

var ErrEmptyUser = errors.New("token has no user id")

// Claims is the shape the issuing system puts into session tokens. group_id
// is empty for users outside any cooperative group.
type Claims struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 session tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(credential string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Identity{}, jwt.ErrSignatureInvalid
	}
	if claims.UserID == "" {
		return domain.Identity{}, ErrEmptyUser
	}
	return domain.Identity{
		User:  domain.UserID(claims.UserID),
		Group: domain.GroupID(claims.GroupID),
	}, nil
}
