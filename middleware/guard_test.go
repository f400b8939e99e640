package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tokenguard "github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/store"
)

// Minimal in-memory backing for an engine without Postgres or Redis.

type fakeIdentity struct {
	principal tokenguard.Principal
}

func (f *fakeIdentity) GetByID(context.Context, string) (tokenguard.Principal, error) {
	return f.principal, nil
}
func (f *fakeIdentity) IncrementEpoch(context.Context, string) error { return nil }
func (f *fakeIdentity) Verify(context.Context, string, string) (tokenguard.Principal, error) {
	return f.principal, nil
}

type fakeBlacklist struct {
	mu   sync.Mutex
	jtis map[string]struct{}
}

func (f *fakeBlacklist) Insert(_ context.Context, e tokenguard.BlacklistEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jtis[e.JTI]; ok {
		return false, nil
	}
	f.jtis[e.JTI] = struct{}{}
	return true, nil
}

func (f *fakeBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jtis[jti]
	return ok, nil
}

func (f *fakeBlacklist) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeSessions struct{}

func (fakeSessions) Create(context.Context, tokenguard.Session) error { return nil }
func (fakeSessions) AdvanceRotation(context.Context, string, string, string, time.Time) (tokenguard.Session, error) {
	return tokenguard.Session{}, store.ErrNotFound
}
func (fakeSessions) GetByID(context.Context, string) (tokenguard.Session, error) {
	return tokenguard.Session{}, store.ErrNotFound
}
func (fakeSessions) ListBySubject(context.Context, string) ([]tokenguard.Session, error) {
	return nil, nil
}
func (fakeSessions) DeleteByID(context.Context, string) error         { return nil }
func (fakeSessions) DeleteByRefreshJTI(context.Context, string) error { return nil }
func (fakeSessions) DeleteAllForSubject(context.Context, string) (int, error) {
	return 0, nil
}

type fakeLedger struct{}

func (fakeLedger) Record(context.Context, tokenguard.RotationRecord) (bool, error) {
	return true, nil
}

type fakeAttempts struct{}

func (fakeAttempts) Record(context.Context, tokenguard.LoginAttempt) error { return nil }

func guardTestEngine(t *testing.T) *tokenguard.Engine {
	t.Helper()

	identity := &fakeIdentity{
		principal: tokenguard.Principal{
			ID:          "user-1",
			Role:        "admin",
			Permissions: []string{"admin.panel"},
			Status:      tokenguard.AccountActive,
		},
	}

	cfg := tokenguard.DefaultConfig()
	cfg.Tokens.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.RateLimit.Enabled = false

	engine, err := tokenguard.New().
		WithConfig(cfg).
		WithPrincipalStore(identity).
		WithCredentialVerifier(identity).
		WithStores(&fakeBlacklist{jtis: map[string]struct{}{}}, fakeSessions{}, fakeLedger{}, fakeAttempts{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func protectedEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "no principal", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(principal.ID))
	})
}

func TestGuardRejectsMissingBearer(t *testing.T) {
	engine := guardTestEngine(t)
	handler := Guard(engine)(protectedEcho())

	for _, header := range []string{"", "Bearer ", "Basic abc", "token xyz"} {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine := guardTestEngine(t)

	pair, err := engine.Issue(context.Background(), tokenguard.Principal{
		ID: "user-1", Role: "admin", Status: tokenguard.AccountActive,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := Guard(engine)(protectedEcho())
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+pair.Access)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "user-1" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	engine := guardTestEngine(t)
	handler := Guard(engine)(protectedEcho())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireCapability(t *testing.T) {
	engine := guardTestEngine(t)

	pair, err := engine.Issue(context.Background(), tokenguard.Principal{
		ID: "user-1", Role: "admin", Status: tokenguard.AccountActive,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	allowed := Guard(engine)(RequireCapability("admin.panel")(protectedEcho()))
	denied := Guard(engine)(RequireCapability("billing.write")(protectedEcho()))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+pair.Access)

	w := httptest.NewRecorder()
	allowed.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("allowed status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	denied.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("denied status = %d, want 403", w.Code)
	}
}

func TestRequireCapabilityWithoutGuard(t *testing.T) {
	handler := RequireCapability("anything")(protectedEcho())
	r := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
