package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/taxlookup/internal/model"
	"github.com/nao1215/taxlookup/internal/transport"
)

// Session issues the requests of one attempt. It shares a single cookie
// jar across requests and is discarded when the attempt ends.
type Session struct {
	client      *transport.Client
	maxBodySize int64
	logger      *slog.Logger

	// CSRFToken is set after a successful homepage bootstrap.
	CSRFToken string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxBodySize limits how many bytes of each body are read.
func WithMaxBodySize(size int64) SessionOption {
	return func(s *Session) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession wraps client.
func NewSession(client *transport.Client, opts ...SessionOption) *Session {
	s := &Session{
		client:      client,
		maxBodySize: model.MaxPageSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the session's transport client.
func (s *Session) Client() *transport.Client {
	return s.client
}

// Fetch GETs pageURL with headers. Any HTTP status is returned as a Page;
// only transport failures are errors. The body is decoded to UTF-8 using
// the declared or sniffed charset.
func (s *Session) Fetch(ctx context.Context, pageURL string, headers http.Header) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range headers {
		req.Header[key] = append([]string(nil), values...)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	limited := io.LimitReader(resp.Body, s.maxBodySize)

	body, err := charset.NewReader(limited, contentType)
	if err != nil {
		// Unknown charset: keep the raw bytes.
		s.logger.Debug("charset detection failed", "url", pageURL, "error", err)
		body = limited
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	page := &model.Page{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: contentType,
		Raw:         raw,
	}
	page.ComputeHash()

	s.logger.Debug("page fetched",
		"url", pageURL,
		"final_url", page.FinalURL,
		"status", page.StatusCode,
		"bytes", page.Size(),
	)
	return page, nil
}
