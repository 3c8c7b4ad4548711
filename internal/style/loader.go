package style

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxStyleBytes bounds the style document size.
const maxStyleBytes = 8 << 20

// Status is the observable state of a style task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplied   Status = "applied"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Loader fetches style documents over HTTP.
type Loader struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// NewLoader creates a loader whose requests time out after timeout.
func NewLoader(timeout time.Duration, log zerolog.Logger) *Loader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "style").Logger(),
	}
}

// Fetch downloads and parses the style document at rawURL.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building style request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		// transport errors quote the URL, key included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redact(uerr.URL)
		}
		return nil, fmt.Errorf("style request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStyleBytes))
	if err != nil {
		return nil, fmt.Errorf("reading style body: %w", err)
	}
	return Parse(data)
}

// Task is one asynchronous fetch-and-apply of a style document.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
	doc    *Document
	err    error
}

// Start fetches rawURL in the background and hands the document to apply. The
// task finishes as applied, failed or cancelled; it never retries.
func (l *Loader) Start(ctx context.Context, rawURL string, apply func(*Document) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
		status: StatusPending,
	}

	go func() {
		defer close(t.done)
		defer cancel()

		doc, err := l.Fetch(ctx, rawURL)
		if err == nil && apply != nil {
			err = apply(doc)
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		switch {
		case err != nil && errors.Is(ctx.Err(), context.Canceled):
			t.status = StatusCancelled
			t.err = ctx.Err()
			l.log.Debug().Str("url", redact(rawURL)).Msg("style task cancelled")
		case err != nil:
			t.status = StatusFailed
			t.err = err
			l.log.Warn().Err(err).Str("url", redact(rawURL)).Msg("style not applied")
		default:
			t.status = StatusApplied
			t.doc = doc
			l.log.Info().Str("url", redact(rawURL)).Int("layers", len(doc.Layers)).Msg("style applied")
		}
	}()

	return t
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel stops a pending fetch. It does not wait for the task to finish.
func (t *Task) Cancel() { t.cancel() }

// Status reports the current task state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the applied document or the failure cause. Both are nil
// while the task is pending.
func (t *Task) Result() (*Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc, t.err
}

// redact drops the query string so access keys stay out of logs and errors.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		base, _, _ := strings.Cut(raw, "?")
		return base
	}
	u.RawQuery = ""
	u.ForceQuery = false
	return u.String()
}
