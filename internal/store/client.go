// Package store implements the per-list event store: remote fetch,
// remote append, optimistic local append, durable fallback, and
// sync-status signaling.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/everlist/everlist/internal/changelog"
)

// Client talks to the remote log service.
//
// The service exposes two operations per list:
//
//	GET  {base}/lists/{id}/events            perpetual log
//	GET  {base}/lists/{id}/events/{date}     dated partition
//	POST {base}/lists/{id}/events[/{date}]?… append one event
//
// Appends flatten every event field into query parameters; non-scalar
// values are JSON-stringified before encoding.
type Client struct {
	base   string
	http   *http.Client
	logger *log.Logger
}

// NewClient creates a log service client for the given base URL.
// If logger is nil, a default stderr logger is used.
func NewClient(base string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// statusError reports a response the server produced but the client
// cannot use. Transport failures stay *url.Error so the store can tell
// "offline" apart from "error".
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Offline reports whether err looks like a transport-level failure
// (connection refused, DNS, timeout) rather than a server-side one.
func Offline(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Client) eventsURL(listID, date string) string {
	u := c.base + "/lists/" + url.PathEscape(listID) + "/events"
	if date != "" {
		u += "/" + url.PathEscape(date)
	}
	return u
}

// FetchEvents retrieves the full changelog for one list partition.
// An empty date addresses the perpetual log.
func (c *Client) FetchEvents(ctx context.Context, listID, date string) ([]changelog.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventsURL(listID, date), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch changelog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch changelog: %w", &statusError{code: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read changelog body: %w", err)
	}
	events, err := changelog.DecodeEvents(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode changelog: %w", err)
	}
	return events, nil
}

// AppendEvent posts one event to a list partition. Fire-once: no retry
// lives here or anywhere above.
func (c *Client) AppendEvent(ctx context.Context, listID, date string, ev changelog.Event) error {
	values, err := ev.QueryValues()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	u := c.eventsURL(listID, date) + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build append request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to post event: %w", &statusError{code: resp.StatusCode})
	}
	return nil
}
