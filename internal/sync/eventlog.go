package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mind-engage/quizd/internal/db"
)

const TypeAttemptScored = "AttemptScored"

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct {
	db     *sql.DB
	driver db.Driver
	siteID string
}

func NewEventRepo(conn *sql.DB, driver db.Driver, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: conn, driver: driver, siteID: siteID}
}

// Append writes e through x, which may be the DB or an open transaction.
func (r *EventRepo) Append(ctx context.Context, x execer, e Event) error {
	if x == nil {
		x = r.db
	}
	site := e.SiteID
	if site == "" {
		site = r.siteID
	}
	data := string(e.Data)
	if data == "" {
		data = "{}"
	}
	_, err := x.ExecContext(ctx, db.Rebind(r.driver,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES (?,?,?,?,?)`),
		site, e.Type, e.Key, data, time.Now().UnixMilli())
	return err
}

// List returns events with seq > after in ascending order.
func (r *EventRepo) List(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, db.Rebind(r.driver,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > ? ORDER BY seq ASC LIMIT ?`), after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
