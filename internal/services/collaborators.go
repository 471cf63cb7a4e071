package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"giveaway/internal/models"
)

// EngagementVerifier checks whether an identity satisfies the required
// external engagement conditions (e.g. channel subscriptions).
type EngagementVerifier interface {
	VerifyEngagement(ctx context.Context, identity string) (bool, error)
}

// ArtifactStore persists proof uploads and returns an opaque reference.
type ArtifactStore interface {
	StoreProofArtifact(ctx context.Context, identity string, payload []byte) (string, error)
}

// OperatorNotifier forwards a new submission to an operational channel.
// Best effort: callers ignore failures beyond logging them.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, p *models.Participant)
}

// AllowAllVerifier treats every identity as engaged. Used when no verifier
// endpoint is configured.
type AllowAllVerifier struct{}

// VerifyEngagement always reports verified.
func (AllowAllVerifier) VerifyEngagement(ctx context.Context, identity string) (bool, error) {
	return true, nil
}

// HTTPVerifier queries a verification endpoint with a bounded timeout.
// FailOpen controls the policy when the endpoint itself is unreachable: the
// default (false) treats the participant as not verified.
type HTTPVerifier struct {
	Endpoint string
	Timeout  time.Duration
	FailOpen bool
	Client   *http.Client
}

// VerifyEngagement calls the endpoint with the identity as a query parameter
// and expects a JSON body {"verified": bool}.
func (v *HTTPVerifier) VerifyEngagement(ctx context.Context, identity string) (bool, error) {
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := v.Endpoint + "?identity=" + url.QueryEscape(identity)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return v.FailOpen, fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return v.FailOpen, fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return v.FailOpen, fmt.Errorf("%w: verifier returned %d", ErrExternalUnavailable, resp.StatusCode)
	}

	var body struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return v.FailOpen, fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
	}
	return body.Verified, nil
}

// FileArtifactStore writes proof uploads under a directory, one file per
// upload, and returns the generated filename as the reference.
type FileArtifactStore struct {
	Dir string
}

// StoreProofArtifact saves the payload as <identity>_<uuid>.jpg.
func (f *FileArtifactStore) StoreProofArtifact(ctx context.Context, identity string, payload []byte) (string, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	name := fmt.Sprintf("%s_%s.jpg", identity, uuid.NewString())
	if err := os.WriteFile(filepath.Join(f.Dir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return name, nil
}

// WebhookNotifier POSTs a participant snapshot to a webhook URL. An empty URL
// disables notifications.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NotifyOperator sends the snapshot. Failures are logged and dropped; a dead
// webhook must never fail the participant's transition.
func (n *WebhookNotifier) NotifyOperator(ctx context.Context, p *models.Participant) {
	if n.URL == "" {
		return
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	payload, err := json.Marshal(p)
	if err != nil {
		logger.Errorf("notify operator: marshal snapshot: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		logger.Errorf("notify operator: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		logger.Errorf("notify operator: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Errorf("notify operator: webhook returned %d", resp.StatusCode)
	}
}
