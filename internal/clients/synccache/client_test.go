package synccache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/wavenote/wavenote-backend/internal/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newSyncServer(t *testing.T, status int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/sync" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing session token, got %q", r.Header.Get("Authorization"))
		}
		calls.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestEnsureSyncedNoCacheEntry(t *testing.T) {
	srv, calls := newSyncServer(t, http.StatusOK)
	kv := NewMemoryKV()
	client := NewClient(testLogger(), srv.Client(), srv.URL, kv)
	candidate := Payload{SubjectID: "u1", Email: "a@x.com", Name: "A B"}

	client.EnsureSynced(context.Background(), candidate, "tok")

	if got := calls.Load(); got != 1 {
		t.Fatalf("sync calls = %d, want 1", got)
	}
	stored, err := kv.Get(context.Background(), "identity_sync:u1")
	if err != nil {
		t.Fatalf("kv.Get: %v", err)
	}
	var remembered Payload
	if err := json.Unmarshal([]byte(stored), &remembered); err != nil {
		t.Fatalf("unmarshal stored payload: %v", err)
	}
	if remembered != candidate {
		t.Fatalf("stored payload = %+v, want %+v", remembered, candidate)
	}
}

func TestEnsureSyncedCleanCacheSkipsCall(t *testing.T) {
	srv, calls := newSyncServer(t, http.StatusOK)
	kv := NewMemoryKV()
	candidate := Payload{SubjectID: "u1", Email: "a@x.com", Name: "A B"}
	raw, _ := json.Marshal(candidate)
	_ = kv.Set(context.Background(), "identity_sync:u1", string(raw))

	client := NewClient(testLogger(), srv.Client(), srv.URL, kv)
	client.EnsureSynced(context.Background(), candidate, "tok")

	if got := calls.Load(); got != 0 {
		t.Fatalf("sync calls = %d, want 0", got)
	}
}

func TestEnsureSyncedDirtyOnFieldChange(t *testing.T) {
	srv, calls := newSyncServer(t, http.StatusOK)
	kv := NewMemoryKV()
	old := Payload{SubjectID: "u1", Email: "old@x.com", Name: "A B"}
	raw, _ := json.Marshal(old)
	_ = kv.Set(context.Background(), "identity_sync:u1", string(raw))

	client := NewClient(testLogger(), srv.Client(), srv.URL, kv)
	client.EnsureSynced(context.Background(), Payload{SubjectID: "u1", Email: "new@x.com", Name: "A B"}, "tok")

	if got := calls.Load(); got != 1 {
		t.Fatalf("sync calls = %d, want 1", got)
	}
}

func TestEnsureSyncedOncePerSession(t *testing.T) {
	srv, calls := newSyncServer(t, http.StatusInternalServerError)
	kv := NewMemoryKV()
	client := NewClient(testLogger(), srv.Client(), srv.URL, kv)
	candidate := Payload{SubjectID: "u1", Email: "a@x.com", Name: "A B"}

	// Failure is swallowed, the attempted flag still prevents re-render spam.
	client.EnsureSynced(context.Background(), candidate, "tok")
	client.EnsureSynced(context.Background(), candidate, "tok")

	if got := calls.Load(); got != 1 {
		t.Fatalf("sync calls = %d, want 1", got)
	}
	if _, err := kv.Get(context.Background(), "identity_sync:u1"); err != ErrNotFound {
		t.Fatalf("failed sync must not store payload, got err %v", err)
	}

	// A new session establishment gets a fresh attempt.
	client.ResetSession("u1")
	client.EnsureSynced(context.Background(), candidate, "tok")
	if got := calls.Load(); got != 2 {
		t.Fatalf("sync calls after reset = %d, want 2", got)
	}
}

func TestEnsureSyncedServerDown(t *testing.T) {
	kv := NewMemoryKV()
	client := NewClient(testLogger(), nil, "http://127.0.0.1:1", kv)

	// Must not panic or surface the error.
	client.EnsureSynced(context.Background(), Payload{SubjectID: "u1", Email: "a@x.com"}, "tok")

	if _, err := kv.Get(context.Background(), "identity_sync:u1"); err != ErrNotFound {
		t.Fatalf("failed sync must not store payload, got err %v", err)
	}
}

func TestEnsureSyncedIgnoresEmptySubject(t *testing.T) {
	srv, calls := newSyncServer(t, http.StatusOK)
	client := NewClient(testLogger(), srv.Client(), srv.URL, NewMemoryKV())

	client.EnsureSynced(context.Background(), Payload{}, "tok")

	if got := calls.Load(); got != 0 {
		t.Fatalf("sync calls = %d, want 0", got)
	}
}
