package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// AccessTokenExpiry extracts the exp claim from an access token without
// verifying its signature. The client has no signing key; expiry is only
// used for renewal diagnostics, never for trust decisions.
func AccessTokenExpiry(accessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "[AccessTokenExpiry] ParseUnverified")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("[AccessTokenExpiry] token has no exp claim")
	}
	return exp.Time, nil
}
