package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired reports whether a stored credential carries a JWT whose exp has
// passed at now. The credential is a cookie header value ("a=b; c=d") or a
// bare token. Opaque values are never considered expired since only the
// server can judge them.
func Expired(cred string, now time.Time) bool {
	parser := jwt.NewParser()
	for _, part := range strings.Split(cred, ";") {
		value := strings.TrimSpace(part)
		if _, v, ok := strings.Cut(value, "="); ok {
			value = v
		}
		if !looksLikeJWT(value) {
			continue
		}
		var claims jwt.RegisteredClaims
		if _, _, err := parser.ParseUnverified(value, &claims); err != nil {
			continue
		}
		if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2 && !strings.ContainsAny(s, "= \"")
}
