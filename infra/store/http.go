package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/conformance/auth"
	"github.com/kilianp07/conformance/core/model"
)

// HTTPConfig configures the HTTP result publisher.
type HTTPConfig struct {
	URL     string            `json:"url"`
	Timeout time.Duration     `json:"timeout"`
	Headers map[string]string `json:"headers"`
	Auth    auth.Conf         `json:"auth"`
}

// HTTPStore posts each result as JSON to a remote endpoint.
type HTTPStore struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPStore returns a publisher for cfg. Requests carry an OAuth2 bearer
// token when cfg.Auth is enabled.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("http: empty url")
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStore{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  cfg.Auth.Client(context.Background(), &http.Client{Timeout: timeout}),
	}, nil
}

func (s *HTTPStore) Put(ctx context.Context, res model.FitnessResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", res.Key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("post %s: unexpected status %s", res.Key, resp.Status)
	}
	return nil
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
