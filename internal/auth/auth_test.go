package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testKey = "test-signing-key"

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("user-1", "student1@email.com", "sideway", testKey, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if time.Until(tok.ExpiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", tok.ExpiresAt)
	}
	claims, err := Parse(tok.Value, testKey, "sideway")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "student1@email.com" || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	tok, err := Issue("user-1", "", "sideway", testKey, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := Parse(tok.Value, "other-key", "sideway"); err == nil {
		t.Fatal("expected signature error")
	}
	if _, err := Parse(tok.Value, testKey, "someone-else"); err == nil {
		t.Fatal("expected issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := Issue("user-1", "", "sideway", testKey, -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := Parse(tok.Value, testKey, "sideway"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestExpired(t *testing.T) {
	live, _ := Issue("u", "", "sideway", testKey, time.Hour)
	dead, _ := Issue("u", "", "sideway", testKey, -time.Hour)
	now := time.Now()

	cases := []struct {
		name string
		cred string
		want bool
	}{
		{"live cookie", CookieName + "=" + live.Value, false},
		{"expired cookie", CookieName + "=" + dead.Value, true},
		{"expired among others", "theme=dark; " + CookieName + "=" + dead.Value, true},
		{"bare expired token", dead.Value, true},
		{"opaque cookie", "JSESSIONID=8f2a1c", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Expired(tc.cred, now); got != tc.want {
				t.Fatalf("Expired(%q) = %v, want %v", tc.cred, got, tc.want)
			}
		})
	}
}

func TestCookieAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", CookieAuth(testKey, "sideway"), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Subject)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid cookie, got %d", rec.Code)
	}

	tok, _ := Issue("user-9", "", "sideway", testKey, time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok.Value})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "user-9" {
		t.Fatalf("expected 200 user-9, got %d %q", rec.Code, rec.Body.String())
	}
}
