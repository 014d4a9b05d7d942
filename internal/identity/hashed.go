package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLookupURL = "https://ipapi.co/json/"
	defaultIPTTL     = 30 * time.Minute
)

// Hashed fingerprints the process by its public IP and a user agent. When
// the IP cannot be resolved it falls back to a random session token that
// lives as long as the Hashed value, so a restart after a failed lookup
// yields a new identity.
type Hashed struct {
	lookupURL string
	userAgent string
	client    *http.Client
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu        sync.RWMutex
	ip        string
	fetchedAt time.Time

	sessionOnce sync.Once
	session     string
}

type HashedOption func(*Hashed)

func WithHTTPClient(c *http.Client) HashedOption {
	return func(h *Hashed) { h.client = c }
}

// WithTTL sets how long a resolved IP is reused before looking it up again.
func WithTTL(d time.Duration) HashedOption {
	return func(h *Hashed) { h.ttl = d }
}

func WithClock(now func() time.Time) HashedOption {
	return func(h *Hashed) { h.now = now }
}

func WithLogger(logger *slog.Logger) HashedOption {
	return func(h *Hashed) { h.logger = logger }
}

func NewHashed(lookupURL, userAgent string, opts ...HashedOption) *Hashed {
	if lookupURL == "" {
		lookupURL = DefaultLookupURL
	}
	h := &Hashed{
		lookupURL: lookupURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 5 * time.Second},
		ttl:       defaultIPTTL,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hashed) Identity(ctx context.Context) (string, error) {
	ip, err := h.publicIP(ctx)
	if err != nil {
		h.logger.Debug("ip lookup failed, using session token", "error", err)
		return h.sessionToken(), nil
	}
	return Fingerprint(ip, h.userAgent), nil
}

func (h *Hashed) sessionToken() string {
	h.sessionOnce.Do(func() {
		h.session = "session-" + uuid.NewString()
	})
	return h.session
}

func (h *Hashed) publicIP(ctx context.Context) (string, error) {
	h.mu.RLock()
	if h.ip != "" && h.now().Sub(h.fetchedAt) < h.ttl {
		ip := h.ip
		h.mu.RUnlock()
		return ip, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ip != "" && h.now().Sub(h.fetchedAt) < h.ttl {
		return h.ip, nil
	}

	ip, err := h.lookup(ctx)
	if err != nil {
		// A previously resolved address is still the best answer.
		if h.ip != "" {
			return h.ip, nil
		}
		return "", err
	}
	h.ip = ip
	h.fetchedAt = h.now()
	return ip, nil
}

type lookupResponse struct {
	IP string `json:"ip"`
}

func (h *Hashed) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("create ip lookup request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode ip lookup response: %w", err)
	}
	if body.IP == "" {
		return "", fmt.Errorf("ip lookup response has no ip")
	}
	return body.IP, nil
}
