package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
)

type keyVerifierStub struct {
	account *entities.Account
	key     *entities.ApiKey
	err     error
	got     string
}

func (s *keyVerifierStub) Verify(_ context.Context, rawToken string) (*entities.Account, *entities.ApiKey, error) {
	s.got = rawToken
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.account, s.key, nil
}

func keyAuthRouter(verifier *keyVerifierStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/renders", ApiKeyAuthMiddleware(verifier), func(c *gin.Context) {
		account, _ := GetAccount(c)
		key, _ := GetApiKey(c)
		c.JSON(http.StatusOK, gin.H{
			"accountId": account.ID,
			"keyId":     key.ID,
		})
	})
	return r
}

func TestApiKeyAuthMiddleware_ValidKey(t *testing.T) {
	account := &entities.Account{ID: uuid.New()}
	key := &entities.ApiKey{ID: uuid.New(), AccountID: account.ID}
	verifier := &keyVerifierStub{account: account, key: key}
	r := keyAuthRouter(verifier)

	req := httptest.NewRequest(http.MethodPost, "/renders", nil)
	req.Header.Set(AuthorizationHeader, BearerPrefix+"nx_live_aabbccddeeff.secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if verifier.got != "nx_live_aabbccddeeff.secret" {
		t.Fatalf("verifier saw %q", verifier.got)
	}
}

func TestApiKeyAuthMiddleware_FailuresAreIndistinguishable(t *testing.T) {
	type attempt struct {
		name   string
		header string
		err    error
	}
	attempts := []attempt{
		{name: "missing header", header: "", err: nil},
		{name: "wrong scheme", header: "Basic abc", err: nil},
		{name: "unknown key", header: BearerPrefix + "nx_live_unknown.x", err: domainerrors.Unauthorized("invalid api key")},
		{name: "wrong secret", header: BearerPrefix + "nx_live_aabbccddeeff.wrong", err: domainerrors.Unauthorized("invalid api key")},
		{name: "revoked key", header: BearerPrefix + "nx_live_aabbccddeeff.secret", err: domainerrors.Unauthorized("invalid api key")},
		{name: "store failure", header: BearerPrefix + "nx_live_aabbccddeeff.secret", err: errors.New("connection reset")},
	}

	var bodies []string
	for _, a := range attempts {
		r := keyAuthRouter(&keyVerifierStub{err: a.err})
		req := httptest.NewRequest(http.MethodPost, "/renders", nil)
		if a.header != "" {
			req.Header.Set(AuthorizationHeader, a.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", a.name, w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}

	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Fatalf("rejection bodies differ: %q vs %q", bodies[0], bodies[i])
		}
	}
}
