package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.calsync/data/calsync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".calsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "calsync.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// UserStore returns a UserStore interface backed by this store.
func (s *Store) UserStore() driven.UserStore {
	return &userStore{store: s}
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// CycleStore returns a CycleStore interface backed by this store.
func (s *Store) CycleStore() driven.CycleStore {
	return &cycleStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== User Store ====================

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// Get retrieves a user's configuration.
func (s *userStore) Get(ctx context.Context, userID string) (domain.UserConfig, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT config FROM user_configs WHERE user_id = ?", userID)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user config: %w", err)
	}

	return decodeUserConfig(raw)
}

// Merge writes fields into the user's configuration in one transaction.
func (s *userStore) Merge(ctx context.Context, userID string, fields domain.UserConfig) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	config := domain.UserConfig{}
	var raw string
	err = tx.QueryRowContext(ctx, "SELECT config FROM user_configs WHERE user_id = ?", userID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("scanning user config: %w", err)
	default:
		if config, err = decodeUserConfig(raw); err != nil {
			return err
		}
	}

	for k, v := range fields {
		config[k] = v
	}

	encoded, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshalling user config: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_configs (user_id, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at
	`, userID, string(encoded), s.store.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving user config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user config: %w", err)
	}
	return nil
}

// Delete removes the user's configuration.
func (s *userStore) Delete(ctx context.Context, userID string) error {
	result, err := s.store.db.ExecContext(ctx, "DELETE FROM user_configs WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting user config: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all user IDs ordered by ID.
func (s *userStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT user_id FROM user_configs ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return ids, nil
}

func decodeUserConfig(raw string) (domain.UserConfig, error) {
	config := domain.UserConfig{}
	if raw == "" {
		return config, nil
	}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("unmarshalling user config: %w", err)
	}
	if config == nil {
		config = domain.UserConfig{}
	}
	return config, nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or replaces a user's sync state, refreshing its TTL.
// Calendar IDs are escaped with domain.CalendarKey before encoding.
func (s *syncStateStore) Save(ctx context.Context, state *domain.UserSyncState) error {
	if state == nil || state.UserID == "" {
		return domain.ErrInvalidInput
	}

	calendars := make(map[string]string, len(state.CalendarCursors))
	for id, cursor := range state.CalendarCursors {
		calendars[domain.CalendarKey(id)] = cursor
	}
	encoded, err := json.Marshal(calendars)
	if err != nil {
		return fmt.Errorf("marshalling calendars: %w", err)
	}

	ttl := state.ExpiresAfter
	if ttl <= 0 {
		ttl = domain.DefaultStateTTL
	}
	now := s.store.now()
	lastSync := state.LastSync
	if lastSync.IsZero() {
		lastSync = now
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (user_id, calendars, last_sync, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			calendars = excluded.calendars,
			last_sync = excluded.last_sync,
			expires_at = excluded.expires_at
	`, state.UserID, string(encoded), lastSync.UTC().Format(time.RFC3339Nano), now.Add(ttl).UnixMilli())

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Load retrieves sync state for a user.
// Returns nil and no error if absent or expired.
func (s *syncStateStore) Load(ctx context.Context, userID string) (*domain.UserSyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT calendars, last_sync, expires_at
		FROM sync_states WHERE user_id = ? AND expires_at > ?
	`, userID, s.store.now().UnixMilli())

	var raw, lastSync string
	var expiresAt int64
	if err := row.Scan(&raw, &lastSync, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	var calendars map[string]string
	if err := json.Unmarshal([]byte(raw), &calendars); err != nil {
		return nil, fmt.Errorf("unmarshalling calendars: %w", err)
	}

	state := domain.NewUserSyncState(userID)
	for key, cursor := range calendars {
		state.CalendarCursors[domain.CalendarIDFromKey(key)] = cursor
	}
	if t, err := time.Parse(time.RFC3339Nano, lastSync); err == nil {
		state.LastSync = t
		state.ExpiresAfter = time.UnixMilli(expiresAt).Sub(t)
	}

	return state, nil
}

// Delete removes sync state for a user.
func (s *syncStateStore) Delete(ctx context.Context, userID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_states WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// PurgeExpired removes states whose TTL has passed.
func (s *syncStateStore) PurgeExpired(ctx context.Context) (int, error) {
	result, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_states WHERE expires_at <= ?", s.store.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging sync states: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged sync states: %w", err)
	}
	return int(n), nil
}
