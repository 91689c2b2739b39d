package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/followthefloww9/gold-digger/internal/events"
)

// InsertSystemEvent appends one SystemEvent row. Every error and
// every trade lifecycle transition produces one of these.
func (db *DB) InsertSystemEvent(ctx context.Context, ev events.Event) error {
	if db.Pool == nil {
		return nil
	}

	detailsJSON, err := json.Marshal(ev.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO system_events (at, kind, severity, message, details)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.At, string(ev.Kind), string(ev.Severity), ev.Message, detailsJSON)
	if err != nil {
		return fmt.Errorf("persistence: insert system event: %w", err)
	}
	return nil
}
