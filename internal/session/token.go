package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoExpiry = errors.New("token carries no expiry")

// tokenExpiry reads the exp claim without checking the signature. Only the
// backend can verify a token; the client just avoids sending dead ones.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// expired compares at millisecond precision: a token whose exp equals now is dead.
func expired(exp, now time.Time) bool {
	return exp.UnixMilli() <= now.UnixMilli()
}
