package archiveapi

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nwp-consumer/core/ncerr"
)

// validateBearerToken checks that token is a well-formed, unexpired JWT
// signed with secret by an HMAC method (HS256, HS384 or HS512), so
// authenticate() can reject bad credentials before ever reaching the
// network.
func validateBearerToken(repo, token, secret string) error {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &ncerr.AuthError{Repo: repo, Msg: "unexpected signing method"}
		}
		return []byte(secret), nil
	})
	if err != nil {
		return &ncerr.AuthError{Repo: repo, Msg: "bearer token rejected: " + err.Error()}
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return &ncerr.AuthError{Repo: repo, Msg: "bearer token expired"}
	}
	return nil
}
