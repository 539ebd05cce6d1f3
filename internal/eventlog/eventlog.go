package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event is one append-only audit record, e.g. a completed session.
type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type Repo struct {
	db     *sql.DB
	siteID string
}

func NewRepo(db *sql.DB, siteID string) *Repo {
	if siteID == "" {
		siteID = "local"
	}
	return &Repo{db: db, siteID: siteID}
}

func (r *Repo) Append(ctx context.Context, e Event) error {
	site := e.SiteID
	if site == "" {
		site = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		site, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record marshals the payload and appends it, satisfying the session
// engine's EventRecorder port.
func (r *Repo) Record(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(buf)})
}
