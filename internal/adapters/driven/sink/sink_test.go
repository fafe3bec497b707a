package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

func newTestSink(buf *bytes.Buffer) *JSONLSink {
	s := New(buf)
	s.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "00000000-0000-0000-0000-000000000001" }
	return s
}

func decodeLines(t *testing.T, data []byte) []Envelope {
	t.Helper()
	var out []Envelope
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var env Envelope
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &env))
		out = append(out, env)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJSONLSink_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSink(&buf)

	record := domain.ClassifyChange("C1", domain.Event{ID: "e1", CalendarID: "C1", Status: "confirmed", Summary: "Standup"})
	require.NoError(t, s.Dispatch(context.Background(), record.Kind.EventKind(), record, "U1"))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	env := lines[0]
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", env.ID)
	assert.Equal(t, domain.EventKindUpdated, env.Kind)
	assert.Equal(t, "U1", env.UserID)
	assert.Equal(t, "C1", env.CalendarID)
	assert.Equal(t, "e1", env.ItemID)
	assert.Equal(t, "UPSERTED", env.Change)
	assert.Equal(t, "Standup", env.Data["summary"])
	assert.Equal(t, time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), env.Timestamp)
}

func TestJSONLSink_DispatchDeleted(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSink(&buf)

	record := domain.ClassifyChange("C1", domain.Event{ID: "e2", Status: "Cancelled"})
	require.NoError(t, s.Dispatch(context.Background(), record.Kind.EventKind(), record, "U1"))

	env := decodeLines(t, buf.Bytes())[0]
	assert.Equal(t, domain.EventKindDeleted, env.Kind)
	assert.Equal(t, "DELETED", env.Change)
}

func TestJSONLSink_DispatchValidation(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSink(&buf)

	err := s.Dispatch(context.Background(), "", domain.ChangeRecord{}, "U1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = s.Dispatch(context.Background(), domain.EventKindUpdated, domain.ChangeRecord{}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, buf.Len())
}

func TestJSONLSink_NotifyDisconnected(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSink(&buf)

	require.NoError(t, s.NotifyDisconnected(context.Background(), "U1", "refresh token revoked"))

	env := decodeLines(t, buf.Bytes())[0]
	assert.Equal(t, domain.EventKindDisconnected, env.Kind)
	assert.Equal(t, "U1", env.UserID)
	assert.Equal(t, "refresh token revoked", env.Reason)
	assert.Empty(t, env.Data)
}

func TestJSONLSink_CancelledContext(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSink(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.NotifyDisconnected(ctx, "U1", "gone")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestJSONLSink_WriteError(t *testing.T) {
	s := New(failingWriter{})

	err := s.NotifyDisconnected(context.Background(), "U1", "gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestOpenFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")

	first, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, first.NotifyDisconnected(context.Background(), "U1", "a"))
	require.NoError(t, first.Close())

	second, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, second.NotifyDisconnected(context.Background(), "U2", "b"))
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := decodeLines(t, data)
	require.Len(t, lines, 2)
	assert.Equal(t, "U1", lines[0].UserID)
	assert.Equal(t, "U2", lines[1].UserID)
	assert.NotEqual(t, lines[0].ID, lines[1].ID)
}

func TestNew_CloseWithoutFile(t *testing.T) {
	assert.NoError(t, New(&bytes.Buffer{}).Close())
}
