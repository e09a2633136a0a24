package store

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/keepsakeapp/keepsake/internal/errors"
	"golang.org/x/time/rate"
)

// Remote is a Backend that syncs documents against the hosted sync service
// over HTTPS. Requests are rate limited so a misbehaving save loop cannot
// hammer the service.
type Remote struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// Compile-time interface check.
var _ Backend = (*Remote)(nil)

// NewRemote creates a Remote backend.
// Rate limited to 1 request per second with a burst of 5, which comfortably
// covers the debounced save cadence.
func NewRemote(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Remote {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Remote{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:      logger,
	}
}

// Close releases resources. Currently a no-op but included for interface consistency.
func (r *Remote) Close() error {
	return nil
}

// documentURL builds the per-user document endpoint.
func (r *Remote) documentURL(userID string) string {
	return fmt.Sprintf("%s/v1/users/%s/books", r.baseURL, userID)
}

// LoadDocument implements Backend.
func (r *Remote) LoadDocument(ctx context.Context, userID string) (*Document, error) {
	if err := r.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeRemoteFault, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.documentURL(userID), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build request")
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRemoteFault, "fetch document")
	}
	defer resp.Body.Close() //nolint:errcheck // Defer close, nothing we can do about errors here

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrDocNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Unauthorized("sync service rejected credentials")
	case resp.StatusCode != http.StatusOK:
		return nil, errors.RemoteFault(fmt.Sprintf("sync service returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRemoteFault, "read document body")
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeDataIntegrity, "decode document")
	}

	r.logger.Debug("loaded remote document",
		"user_id", userID,
		"books", len(doc.Books),
		"bytes", len(body),
	)
	return &doc, nil
}

// SaveDocument implements Backend.
func (r *Remote) SaveDocument(ctx context.Context, userID string, doc *Document) error {
	if err := r.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, errors.CodeRemoteFault, "rate limit wait")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode document")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.documentURL(userID), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build request")
	}
	r.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeRemoteFault, "store document")
	}
	defer resp.Body.Close() //nolint:errcheck // Defer close, nothing we can do about errors here

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Unauthorized("sync service rejected credentials")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.RemoteFault(fmt.Sprintf("sync service returned %d", resp.StatusCode))
	}

	r.logger.Debug("saved remote document",
		"user_id", userID,
		"books", len(doc.Books),
		"bytes", len(payload),
	)
	return nil
}

func (r *Remote) setHeaders(req *http.Request) {
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}
