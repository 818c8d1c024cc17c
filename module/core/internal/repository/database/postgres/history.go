package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/database"
)

var _ database.HistoryRepository = (*HistoryRepo)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS beacon_scans (
	id          UUID PRIMARY KEY,
	beacon_id   TEXT NOT NULL,
	event_mask  INTEGER NOT NULL,
	event_time  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	sent_at     TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS beacon_actions (
	id                UUID PRIMARY KEY,
	action_id         UUID NOT NULL,
	beacon_id         TEXT NOT NULL,
	trigger           INTEGER NOT NULL,
	presentation_time TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	sent_at           TIMESTAMPTZ
);`

type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// EnsureSchema creates the history tables when they are missing.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *HistoryRepo) InsertScan(ctx context.Context, rec *domain.ScanRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO beacon_scans (id, beacon_id, event_mask, event_time, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.BeaconID, int(rec.EventMask), rec.EventTime, rec.CreatedAt,
	)
	return err
}

func (r *HistoryRepo) InsertAction(ctx context.Context, rec *domain.ActionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO beacon_actions (id, action_id, beacon_id, trigger, presentation_time, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ActionID, rec.BeaconID, int(rec.Trigger), rec.PresentationTime, rec.CreatedAt,
	)
	return err
}

func (r *HistoryRepo) NotSentScans(ctx context.Context) ([]domain.ScanRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, beacon_id, event_mask, event_time, created_at FROM beacon_scans WHERE sent_at IS NULL ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		var mask int
		if err := rows.Scan(&rec.ID, &rec.BeaconID, &mask, &rec.EventTime, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.EventMask = domain.ScanEventType(mask)
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *HistoryRepo) NotSentActions(ctx context.Context) ([]domain.ActionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action_id, beacon_id, trigger, presentation_time, created_at FROM beacon_actions WHERE sent_at IS NULL ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.ActionRecord
	for rows.Next() {
		var rec domain.ActionRecord
		var trigger int
		if err := rows.Scan(&rec.ID, &rec.ActionID, &rec.BeaconID, &trigger, &rec.PresentationTime, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Trigger = domain.ScanEventType(trigger)
		results = append(results, rec)
	}
	return results, rows.Err()
}

// MarkSent stamps both record sets in a single transaction so a batch is
// either fully marked or not at all.
func (r *HistoryRepo) MarkSent(ctx context.Context, scanIDs, actionIDs []string, sentAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(scanIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE beacon_scans SET sent_at = $1 WHERE id = ANY($2)`,
			sentAt, pq.Array(scanIDs),
		); err != nil {
			return fmt.Errorf("mark scans sent: %w", err)
		}
	}
	if len(actionIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE beacon_actions SET sent_at = $1 WHERE id = ANY($2)`,
			sentAt, pq.Array(actionIDs),
		); err != nil {
			return fmt.Errorf("mark actions sent: %w", err)
		}
	}
	return tx.Commit()
}

func (r *HistoryRepo) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"beacon_scans", "beacon_actions"} {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE sent_at IS NOT NULL AND created_at < $1`,
			before,
		)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
