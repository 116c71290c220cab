package synccache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wavenote/wavenote-backend/internal/logger"
)

const keyPrefix = "identity_sync:"

// Payload is the last-known-synced identity for a subject. Used only as a
// dirty-check against the current principal; never authoritative.
type Payload struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Client drives the manual reconciliation fallback from the authenticated
// app's side: compare the remembered identity with the current one and hit
// the sync endpoint at most once per session establishment when they differ.
type Client struct {
	log        *logger.Logger
	httpClient *http.Client
	baseURL    string
	kv         KV

	mu        sync.Mutex
	attempted map[string]bool
}

func NewClient(log *logger.Logger, httpClient *http.Client, baseURL string, kv KV) *Client {
	clientLog := log.With("client", "SyncCacheClient")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		log:        clientLog,
		httpClient: httpClient,
		baseURL:    baseURL,
		kv:         kv,
		attempted:  make(map[string]bool),
	}
}

// EnsureSynced runs the dirty-check for one session establishment. Failures
// are logged and swallowed: this path is a convenience accelerator, the
// async webhook path is the eventual-consistency backstop.
func (sc *Client) EnsureSynced(ctx context.Context, candidate Payload, sessionToken string) {
	if candidate.SubjectID == "" {
		return
	}
	if !sc.isDirty(ctx, candidate) {
		return
	}

	sc.mu.Lock()
	if sc.attempted[candidate.SubjectID] {
		sc.mu.Unlock()
		return
	}
	sc.attempted[candidate.SubjectID] = true
	sc.mu.Unlock()

	if err := sc.postSync(ctx, candidate, sessionToken); err != nil {
		sc.log.Warn("Identity sync deferred", "subject_id", candidate.SubjectID, "error", err)
		return
	}

	raw, err := json.Marshal(candidate)
	if err != nil {
		return
	}
	if err := sc.kv.Set(ctx, keyPrefix+candidate.SubjectID, string(raw)); err != nil {
		sc.log.Warn("Failed to store synced payload", "subject_id", candidate.SubjectID, "error", err)
	}
}

// ResetSession clears the attempted flags; call it when a new session is
// established for the subject.
func (sc *Client) ResetSession(subjectID string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.attempted, subjectID)
}

func (sc *Client) isDirty(ctx context.Context, candidate Payload) bool {
	stored, err := sc.kv.Get(ctx, keyPrefix+candidate.SubjectID)
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if err != nil {
		sc.log.Warn("Sync cache read failed, treating as dirty", "subject_id", candidate.SubjectID, "error", err)
		return true
	}
	var remembered Payload
	if err := json.Unmarshal([]byte(stored), &remembered); err != nil {
		return true
	}
	return remembered != candidate
}

func (sc *Client) postSync(ctx context.Context, candidate Payload, sessionToken string) error {
	body, err := json.Marshal(map[string]string{
		"email": candidate.Email,
		"name":  candidate.Name,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.baseURL+"/api/auth/sync", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken)

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
