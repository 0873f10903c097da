package identity_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vaultline/vaultline/internal/identity"
	"go.uber.org/zap"
)

// setupGate builds a router with one protected route that echoes the injected
// identity and counts how often it is reached.
func setupGate(t *testing.T) (*gin.Engine, *identity.TokenIssuer, *atomic.Int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer := testIssuer(t, time.Hour)
	var handlerCalls atomic.Int64

	r := gin.New()
	r.POST("/protected", identity.RequireIdentity(issuer, zap.NewNop()), func(c *gin.Context) {
		handlerCalls.Add(1)
		id, ok := identity.IdentityFromCtx(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "no identity"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject_id": id.SubjectID, "display_name": id.DisplayName})
	})
	return r, issuer, &handlerCalls
}

func doProtected(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireIdentity_missingHeader_401(t *testing.T) {
	r, _, calls := setupGate(t)

	w := doProtected(r, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if calls.Load() != 0 {
		t.Errorf("handler was invoked %d times, want 0", calls.Load())
	}
}

func TestRequireIdentity_wrongScheme_401(t *testing.T) {
	r, _, calls := setupGate(t)

	for _, h := range []string{"Basic dXNlcjpwYXNz", "bearer lowercase", "Bearer", "Bearer "} {
		w := doProtected(r, h)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", h, w.Code)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("handler was invoked %d times, want 0", calls.Load())
	}
}

// All authentication failures must produce byte-identical response bodies:
// a caller probing the gate learns nothing about why it was rejected.
func TestRequireIdentity_failuresAreIndistinguishable(t *testing.T) {
	r, _, _ := setupGate(t)

	missing := doProtected(r, "")
	garbage := doProtected(r, "Bearer not-a-token")

	expiredIssuer := testIssuer(t, -time.Minute)
	expiredTok, err := expiredIssuer.Issue("u1", "U")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// Signed by a different key, so it is also a signature failure here.
	wrongKey := doProtected(r, "Bearer "+expiredTok)

	for name, w := range map[string]*httptest.ResponseRecorder{
		"missing": missing, "garbage": garbage, "wrong_key": wrongKey,
	} {
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, w.Code)
		}
		if w.Body.String() != missing.Body.String() {
			t.Errorf("%s: body %q differs from missing-credential body %q", name, w.Body.String(), missing.Body.String())
		}
	}
}

func TestRequireIdentity_expired_401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := testIssuer(t, -time.Minute)

	r := gin.New()
	called := false
	r.POST("/protected", identity.RequireIdentity(issuer, zap.NewNop()), func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	tok, err := issuer.Issue("u1", "U")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := doProtected(r, "Bearer "+tok)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if called {
		t.Error("handler must not run for an expired token")
	}
}

func TestRequireIdentity_valid_injectsIdentity(t *testing.T) {
	r, issuer, calls := setupGate(t)

	tok, err := issuer.Issue("alice", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := doProtected(r, "Bearer "+tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if calls.Load() != 1 {
		t.Errorf("handler was invoked %d times, want 1", calls.Load())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["subject_id"] != "alice" || resp["display_name"] != "Alice" {
		t.Errorf("identity = %v, want alice/Alice", resp)
	}
}

// Each concurrent request must observe its own token's identity — a shared
// identity slot would let one request's subject bleed into another's handler.
func TestRequireIdentity_concurrentIsolation(t *testing.T) {
	r, issuer, _ := setupGate(t)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		subject := fmt.Sprintf("user-%d", i)
		tok, err := issuer.Issue(subject, subject)
		if err != nil {
			t.Fatalf("issue %s: %v", subject, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doProtected(r, "Bearer "+tok)
			if w.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", subject, w.Code)
				return
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Errorf("%s: unmarshal: %v", subject, err)
				return
			}
			if resp["subject_id"] != subject {
				t.Errorf("identity bleed: got %q, want %q", resp["subject_id"], subject)
			}
		}()
	}
	wg.Wait()
}

func TestIdentityFromCtx_absentWithoutGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := identity.IdentityFromCtx(c); ok {
		t.Error("expected no identity on a context that never passed the gate")
	}
}
