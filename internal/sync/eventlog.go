// Package syncx keeps an append-only log of domain events so that other
// sites or reporting jobs can replay what happened.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeDocumentProcessed = "DocumentProcessed"
	TypeQuizGenerated     = "QuizGenerated"
	TypeAttemptCompleted  = "AttemptCompleted"
	TypePointsAwarded     = "PointsAwarded"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Recorder is what producers depend on.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	return r.append(ctx, r.db, e)
}

// AppendTx writes the event inside the caller's transaction.
func (r *EventRepo) AppendTx(ctx context.Context, tx *sql.Tx, e Event) error {
	return r.append(ctx, tx, e)
}

func (r *EventRepo) append(ctx context.Context, x execer, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := x.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record marshals data to JSON and appends it.
func (r *EventRepo) Record(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(buf)})
}

// Since lists events with seq > after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, string, string, any) error { return nil }
