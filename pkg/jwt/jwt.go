package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ripple/internal/entity"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

type Claims struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Parse extracts the identity claims from an access token issued by the
// backend. The client holds no signing key; the token is trusted because
// it arrived on the authenticated login response, so the signature is
// not verified here, only the shape and expiry.
func Parse(tokenString string) (*entity.TokenClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserId == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredToken
	}

	return &entity.TokenClaims{
		UserId: claims.UserId,
		Name:   claims.Name,
	}, nil
}

// ExpiresAt reports when the token lapses. Zero time means the token
// carries no expiry.
func ExpiresAt(tokenString string) (time.Time, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return time.Time{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
