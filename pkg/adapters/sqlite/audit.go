package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/google/uuid"
)

// RecordTurn appends an entry to the turn log.
func (s *Store) RecordTurn(ctx context.Context, rec ports.TurnRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = s.now()
	}
	trace, err := json.Marshal(rec.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO turn_log(id, user_id, turn, intent, outcome, state_trace, request, response, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.UserID, rec.Turn, string(rec.Intent), rec.Outcome, string(trace), rec.Request, rec.Response, rec.Duration.Milliseconds(), ts(rec.At))
	if err != nil {
		return fmt.Errorf("insert turn log: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turn records for userID, newest first.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]ports.TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, turn, intent, outcome, state_trace, request, response, created_at
FROM turn_log WHERE user_id = ? ORDER BY created_at DESC, turn DESC LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turn log: %w", err)
	}
	defer rows.Close()

	var out []ports.TurnRecord
	for rows.Next() {
		var rec ports.TurnRecord
		var intent, trace, created string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Turn, &intent, &rec.Outcome, &trace, &rec.Request, &rec.Response, &created); err != nil {
			return nil, fmt.Errorf("scan turn log: %w", err)
		}
		rec.Intent = domain.Intent(intent)
		if err := json.Unmarshal([]byte(trace), &rec.Trace); err != nil {
			return nil, fmt.Errorf("decode trace: %w", err)
		}
		if rec.At, err = parseTS(created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
