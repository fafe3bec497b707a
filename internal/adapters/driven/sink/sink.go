// Package sink delivers change records and account notifications as JSON
// Lines, one envelope per line.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure JSONLSink implements the sink ports.
var (
	_ driven.EventSink          = (*JSONLSink)(nil)
	_ driven.DisconnectNotifier = (*JSONLSink)(nil)
)

// Envelope is one line of output.
type Envelope struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	UserID     string         `json:"userId"`
	CalendarID string         `json:"calendarId,omitempty"`
	ItemID     string         `json:"itemId,omitempty"`
	Change     string         `json:"change,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// JSONLSink writes envelopes to a writer. Writes are serialised.
type JSONLSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
	newID  func() string
}

// New creates a sink that writes to w.
func New(w io.Writer) *JSONLSink {
	return &JSONLSink{
		w:     w,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// OpenFile creates a sink appending to path, creating parent directories.
func OpenFile(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating sink directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening sink file: %w", err)
	}
	s := New(f)
	s.closer = f
	return s, nil
}

// Close releases the underlying file, if any.
func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Dispatch writes one change record.
func (s *JSONLSink) Dispatch(ctx context.Context, kind string, record domain.ChangeRecord, userID string) error {
	if kind == "" || userID == "" {
		return fmt.Errorf("%w: kind and user are required", domain.ErrInvalidInput)
	}
	return s.write(ctx, Envelope{
		Kind:       kind,
		UserID:     userID,
		CalendarID: record.CalendarID,
		ItemID:     record.ItemID,
		Change:     string(record.Kind),
		Data:       record.Event.Fields(),
	})
}

// NotifyDisconnected writes a userDisconnected envelope.
func (s *JSONLSink) NotifyDisconnected(ctx context.Context, userID, reason string) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	return s.write(ctx, Envelope{
		Kind:   domain.EventKindDisconnected,
		UserID: userID,
		Reason: reason,
	})
}

func (s *JSONLSink) write(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env.ID = s.newID()
	env.Timestamp = s.now().UTC()

	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", env.Kind, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("writing %s envelope: %w", env.Kind, err)
	}
	return nil
}
