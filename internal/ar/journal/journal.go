// Package journal persists AR lifecycle events (trackables appearing,
// disappearing and being selected, anchors being created) to sqlite so a
// session can be inspected after the fact with cmd/arjournal.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/arlayer/internal/monitoring"
	"github.com/banshee-data/arlayer/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Kind classifies a journal event.
type Kind string

const (
	KindTrackableAdded         Kind = "trackable_added"
	KindTrackableRemoved       Kind = "trackable_removed"
	KindTrackableSelected      Kind = "trackable_selected"
	KindAnchorCreated          Kind = "anchor_created"
	KindSelectionAnchorRebound Kind = "selection_anchor_rebound"
)

// Event is one journal row.
type Event struct {
	ID         string
	SessionID  string
	Generation uint64
	Kind       Kind
	Handle     string
	Index      int
	Detail     map[string]any
	RecordedAt time.Time
}

// SessionSummary describes one recorded session.
type SessionSummary struct {
	SessionID string
	Events    int
	First     time.Time
	Last      time.Time
}

// Store is a sqlite-backed event journal.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the journal database at path and
// migrates it to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure journal: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database and applies pending migrations.
func NewStore(db *sql.DB) (*Store, error) {
	if err := migrateUp(db); err != nil {
		return nil, err
	}
	return &Store{db: db, clock: timeutil.RealClock{}}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	// m is not closed: that would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[journal] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// SetClock replaces the clock used to stamp events.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts ev, assigning an ID and timestamp when they are unset,
// and returns the stored event.
func (s *Store) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.SessionID == "" {
		return ev, errors.New("journal event needs a session id")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = s.clock.Now()
	}

	var detail []byte
	if len(ev.Detail) > 0 {
		st, err := structpb.NewStruct(ev.Detail)
		if err != nil {
			return ev, fmt.Errorf("encode %s detail: %w", ev.Kind, err)
		}
		if detail, err = proto.Marshal(st); err != nil {
			return ev, fmt.Errorf("marshal %s detail: %w", ev.Kind, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ar_events (event_id, session_id, generation, kind, handle, idx, detail, recorded_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, int64(ev.Generation), string(ev.Kind), ev.Handle, ev.Index, detail, ev.RecordedAt.UnixNano())
	if err != nil {
		return ev, fmt.Errorf("insert %s event: %w", ev.Kind, err)
	}
	return ev, nil
}

// ListBySession returns a session's events in recording order. A
// non-empty kind restricts the result to that kind.
func (s *Store) ListBySession(ctx context.Context, sessionID string, kind Kind) ([]Event, error) {
	query := `SELECT event_id, session_id, generation, kind, handle, idx, detail, recorded_unix_nanos
		FROM ar_events WHERE session_id = ?`
	args := []any{sessionID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev     Event
			gen    int64
			kind   string
			detail []byte
			nanos  int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &gen, &kind, &ev.Handle, &ev.Index, &detail, &nanos); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Generation = uint64(gen)
		ev.Kind = Kind(kind)
		ev.RecordedAt = time.Unix(0, nanos)
		if len(detail) > 0 {
			var st structpb.Struct
			if err := proto.Unmarshal(detail, &st); err != nil {
				return nil, fmt.Errorf("decode detail of %s: %w", ev.ID, err)
			}
			ev.Detail = st.AsMap()
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByKind returns the number of events of each kind in a session.
func (s *Store) CountByKind(ctx context.Context, sessionID string) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM ar_events WHERE session_id = ? GROUP BY kind`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Kind(kind)] = n
	}
	return counts, rows.Err()
}

// Sessions lists recorded sessions, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MIN(recorded_unix_nanos), MAX(recorded_unix_nanos)
		FROM ar_events GROUP BY session_id ORDER BY MAX(recorded_unix_nanos) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum         SessionSummary
			first, last int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Events, &first, &last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.First = time.Unix(0, first)
		sum.Last = time.Unix(0, last)
		out = append(out, sum)
	}
	return out, rows.Err()
}
