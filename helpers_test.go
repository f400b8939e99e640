package tokenguard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenguard/store"
)

// ---------------------------------------------------------------------------
// In-memory store fakes. The ledger fake enforces uniqueness under a mutex
// the way the Postgres constraint does, so concurrency tests are honest.
// ---------------------------------------------------------------------------

type memBlacklist struct {
	mu      sync.Mutex
	entries map[string]BlacklistEntry
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{entries: make(map[string]BlacklistEntry)}
}

func (m *memBlacklist) Insert(_ context.Context, entry BlacklistEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[entry.JTI]; exists {
		return false, nil
	}
	m.entries[entry.JTI] = entry
	return true, nil
}

func (m *memBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[jti]
	return ok, nil
}

func (m *memBlacklist) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, entry := range m.entries {
		if entry.ExpiresAt.Before(now) {
			delete(m.entries, jti)
			n++
		}
	}
	return n, nil
}

func (m *memBlacklist) entry(jti string) (BlacklistEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[jti]
	return e, ok
}

type memSessions struct {
	mu   sync.Mutex
	byID map[string]Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: make(map[string]Session)}
}

func (m *memSessions) Create(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[sess.SessionID] = sess
	return nil
}

func (m *memSessions) AdvanceRotation(_ context.Context, oldJTI, newJTI, ip string, now time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.byID {
		if sess.RefreshJTI == oldJTI {
			sess.RefreshJTI = newJTI
			sess.IPAddress = ip
			sess.LastSeenAt = now
			m.byID[id] = sess
			return sess, nil
		}
	}
	return Session{}, store.ErrNotFound
}

func (m *memSessions) GetByID(_ context.Context, sessionID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byID[sessionID]
	if !ok {
		return Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (m *memSessions) ListBySubject(_ context.Context, subjectID string) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, sess := range m.byID {
		if sess.SubjectID == subjectID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	return out, nil
}

func (m *memSessions) DeleteByID(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[sessionID]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, sessionID)
	return nil
}

func (m *memSessions) DeleteByRefreshJTI(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.byID {
		if sess.RefreshJTI == jti {
			delete(m.byID, id)
		}
	}
	return nil
}

func (m *memSessions) DeleteAllForSubject(_ context.Context, subjectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, sess := range m.byID {
		if sess.SubjectID == subjectID {
			delete(m.byID, id)
			count++
		}
	}
	return count, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memLedger struct {
	mu       sync.Mutex
	consumed map[string]string
}

func newMemLedger() *memLedger {
	return &memLedger{consumed: make(map[string]string)}
}

func (m *memLedger) Record(_ context.Context, rec RotationRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.consumed[rec.OldRefreshJTI]; exists {
		return false, nil
	}
	m.consumed[rec.OldRefreshJTI] = rec.NewRefreshJTI
	return true, nil
}

type memAttempts struct {
	mu   sync.Mutex
	rows []LoginAttempt
}

func (m *memAttempts) Record(_ context.Context, att LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, att)
	return nil
}

func (m *memAttempts) all() []LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LoginAttempt, len(m.rows))
	copy(out, m.rows)
	return out
}

// ---------------------------------------------------------------------------
// Identity fakes
// ---------------------------------------------------------------------------

type mockPrincipalStore struct {
	mu         sync.Mutex
	principals map[string]Principal
}

func newMockPrincipalStore(principals ...Principal) *mockPrincipalStore {
	s := &mockPrincipalStore{principals: make(map[string]Principal)}
	for _, p := range principals {
		s.principals[p.ID] = p
	}
	return s
}

func (s *mockPrincipalStore) GetByID(_ context.Context, id string) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return Principal{}, fmt.Errorf("principal %s not found", id)
	}
	return p, nil
}

func (s *mockPrincipalStore) IncrementEpoch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return fmt.Errorf("principal %s not found", id)
	}
	p.PasswordEpoch++
	s.principals[id] = p
	return nil
}

func (s *mockPrincipalStore) set(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID] = p
}

func (s *mockPrincipalStore) epoch(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principals[id].PasswordEpoch
}

type mockVerifier struct {
	store     *mockPrincipalStore
	passwords map[string]string // email -> password
	emailToID map[string]string
}

func newMockVerifier(store *mockPrincipalStore) *mockVerifier {
	v := &mockVerifier{
		store:     store,
		passwords: make(map[string]string),
		emailToID: make(map[string]string),
	}
	return v
}

func (v *mockVerifier) allow(email, password, id string) {
	v.passwords[email] = password
	v.emailToID[email] = id
}

func (v *mockVerifier) Verify(ctx context.Context, email, password string) (Principal, error) {
	want, ok := v.passwords[email]
	if !ok || want != password {
		return Principal{}, ErrInvalidCredentials
	}
	return v.store.GetByID(ctx, v.emailToID[email])
}

// ---------------------------------------------------------------------------
// Engine fixture
// ---------------------------------------------------------------------------

type testFixture struct {
	engine     *Engine
	blacklist  *memBlacklist
	sessions   *memSessions
	ledger     *memLedger
	attempts   *memAttempts
	principals *mockPrincipalStore
	verifier   *mockVerifier
	audit      *ChannelSink
}

var testPrincipal = Principal{
	ID:            "user-1",
	Email:         "alice@example.com",
	Role:          "admin",
	Permissions:   []string{"user.read", "user.write"},
	BranchID:      "branch-1",
	PasswordEpoch: 1,
	Status:        AccountActive,
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := defaultConfig()
	cfg.Tokens.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Tokens.AccessTTL = time.Minute
	cfg.Tokens.RefreshTTL = time.Hour
	cfg.Tokens.OneTimeTTL = 30 * time.Minute
	cfg.RateLimit.MaxAttempts = 5
	cfg.RateLimit.Window = 15 * time.Minute
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	for _, fn := range mutate {
		fn(&cfg)
	}

	f := &testFixture{
		blacklist:  newMemBlacklist(),
		sessions:   newMemSessions(),
		ledger:     newMemLedger(),
		attempts:   &memAttempts{},
		principals: newMockPrincipalStore(testPrincipal),
		audit:      NewChannelSink(256),
	}
	f.verifier = newMockVerifier(f.principals)
	f.verifier.allow(testPrincipal.Email, "correct-horse", testPrincipal.ID)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPrincipalStore(f.principals).
		WithCredentialVerifier(f.verifier).
		WithStores(f.blacklist, f.sessions, f.ledger, f.attempts).
		WithAuditSink(f.audit).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	f.engine = engine
	return f
}

func clientCtx(ip, fingerprint string) context.Context {
	ctx := WithClientIP(context.Background(), ip)
	if fingerprint != "" {
		ctx = WithDeviceFingerprint(ctx, fingerprint)
	}
	return ctx
}

// drainAudit collects audit events until the sink goes quiet. The
// dispatcher is async, so give it a moment.
func drainAudit(f *testFixture) []AuditEvent {
	var out []AuditEvent
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case ev := <-f.audit.Events():
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
}

func hasAuditEvent(events []AuditEvent, eventType string) bool {
	for _, ev := range events {
		if ev.EventType == eventType {
			return true
		}
	}
	return false
}
