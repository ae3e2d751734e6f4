package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/event"
	"github.com/redline-cms/redline/internal/cms/meta"
)

// Store provides CRUD and lifecycle operations for content records.
//
// Mutations publish events on the bus after the database write succeeds, so
// subscribers always observe committed state. There is no event for plain
// reads.
type Store struct {
	db     *sql.DB
	bus    *event.Bus
	meta   *meta.Store
	types  *Types
	logger *zap.Logger
}

// NewStore creates a record store.
func NewStore(db *sql.DB, bus *event.Bus, metaStore *meta.Store, types *Types, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, bus: bus, meta: metaStore, types: types, logger: logger}
}

// Types returns the content type registry.
func (s *Store) Types() *Types { return s.types }

// Meta returns the metadata store backing this record store.
func (s *Store) Meta() *meta.Store { return s.meta }

const recordColumns = "id, guid, type, status, slug, title, body, parent_id, created_at, updated_at"

func scanRecord(row interface{ Scan(...interface{}) error }) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.GUID, &r.Type, &r.Status, &r.Slug, &r.Title, &r.Body,
		&r.ParentID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &r, nil
}

// Get retrieves a record by id. Returns ErrNotFound for missing ids.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, id)
	return scanRecord(row)
}

// Create inserts a new record, assigning GUID and timestamps, and returns its
// id. Fires RecordSaved.
func (s *Store) Create(ctx context.Context, r *Record) (int64, error) {
	now := time.Now().UTC()
	r.GUID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (guid, type, status, slug, title, body, parent_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.GUID, r.Type, r.Status, r.Slug, r.Title, r.Body, r.ParentID, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", ConvertDBError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		// The pgx stdlib driver does not support LastInsertId; fall back to
		// looking the row up by guid.
		row := s.db.QueryRowContext(ctx, `SELECT id FROM records WHERE guid = $1`, r.GUID)
		if scanErr := row.Scan(&id); scanErr != nil {
			return 0, fmt.Errorf("failed to resolve inserted record id: %w", ConvertDBError(scanErr))
		}
	}
	r.ID = id

	s.publish(ctx, event.RecordSavedEvent{RecordID: id, RecordType: r.Type, Status: r.Status})
	return id, nil
}

// Update writes the record's mutable fields. When the status changed, a
// StatusTransition event fires before RecordSaved, mirroring the host save
// pipeline ordering the shadow publish flow depends on.
func (s *Store) Update(ctx context.Context, r *Record) error {
	old, err := s.Get(ctx, r.ID)
	if err != nil {
		return err
	}

	r.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE records SET type = $1, status = $2, slug = $3, title = $4, body = $5,
		 parent_id = $6, updated_at = $7 WHERE id = $8`,
		r.Type, r.Status, r.Slug, r.Title, r.Body, r.ParentID, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", r.ID, ConvertDBError(err))
	}

	if old.Status != r.Status {
		s.publish(ctx, event.StatusTransitionEvent{
			RecordID:   r.ID,
			RecordType: r.Type,
			OldStatus:  old.Status,
			NewStatus:  r.Status,
		})
	}
	s.publish(ctx, event.RecordSavedEvent{RecordID: r.ID, RecordType: r.Type, Status: r.Status})
	return nil
}

// Delete permanently removes a record, its metadata, and its snapshots.
// Fires BeforeDelete prior to any removal so subscribers can still read the
// record and its metadata.
func (s *Store) Delete(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.publish(ctx, event.BeforeDeleteEvent{RecordID: id, RecordType: r.Type})

	// Snapshots cannot outlive the record they capture.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM records WHERE parent_id = $1 AND type = $2`, id, TypeRevision)
	if err != nil {
		return fmt.Errorf("failed to list snapshots of record %d: %w", id, ConvertDBError(err))
	}
	var snapshotIDs []int64
	for rows.Next() {
		var sid int64
		if err := rows.Scan(&sid); err != nil {
			rows.Close()
			return ConvertDBError(err)
		}
		snapshotIDs = append(snapshotIDs, sid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to list snapshots of record %d: %w", id, ConvertDBError(err))
	}
	rows.Close()
	for _, sid := range snapshotIDs {
		if err := s.meta.DeleteAllForRecord(ctx, sid); err != nil {
			s.logger.Warn("failed to delete snapshot metadata", zap.Int64("snapshot", sid), zap.Error(err))
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, sid); err != nil {
			s.logger.Warn("failed to delete snapshot", zap.Int64("snapshot", sid), zap.Error(err))
		}
	}

	if err := s.meta.DeleteAllForRecord(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, ConvertDBError(err))
	}
	return nil
}

// Trash moves a record to the trash, remembering its prior status so Untrash
// can restore it. Fires Trashed. Trashing a trashed record is a no-op.
func (s *Store) Trash(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status == StatusTrash {
		return nil
	}

	if err := s.meta.Set(ctx, id, meta.KeyTrashPriorStatus, r.Status); err != nil {
		return err
	}
	if err := s.setStatus(ctx, id, StatusTrash); err != nil {
		return err
	}

	s.publish(ctx, event.TrashedEvent{RecordID: id})
	return nil
}

// Untrash restores a trashed record to its prior status (draft when the
// bookkeeping entry is missing). Fires Untrashed.
func (s *Store) Untrash(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != StatusTrash {
		return nil
	}

	prior := StatusDraft
	if v, ok, err := s.meta.Get(ctx, id, meta.KeyTrashPriorStatus); err == nil && ok {
		if str, isStr := v.(string); isStr && str != "" {
			prior = str
		}
	}
	if err := s.meta.Delete(ctx, id, meta.KeyTrashPriorStatus); err != nil {
		s.logger.Warn("failed to clear trash bookkeeping", zap.Int64("record", id), zap.Error(err))
	}
	if err := s.setStatus(ctx, id, prior); err != nil {
		return err
	}

	s.publish(ctx, event.UntrashedEvent{RecordID: id})
	return nil
}

func (s *Store) setStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE records SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set status on record %d: %w", id, ConvertDBError(err))
	}
	return nil
}

// ListQuery filters List results.
type ListQuery struct {
	Type     string
	Status   string
	ParentID int64
	// MetaKey restricts results to records carrying the key.
	MetaKey string
	// IncludeShadows lifts the default filter that hides shadow records.
	// Querying MetaKey for the shadow pointer key implies inclusion.
	IncludeShadows bool
}

// List returns records matching the query, newest first. Shadow records
// (those carrying a parent pointer) are hidden unless the query opts in or
// explicitly asks for the pointer key.
func (s *Store) List(ctx context.Context, q ListQuery) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE 1=1`
	var args []interface{}
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}

	if q.Type != "" {
		query += ` AND type = ` + next()
		args = append(args, q.Type)
	}
	if q.Status != "" {
		query += ` AND status = ` + next()
		args = append(args, q.Status)
	}
	if q.ParentID != 0 {
		query += ` AND parent_id = ` + next()
		args = append(args, q.ParentID)
	}
	if q.MetaKey != "" {
		query += ` AND EXISTS (SELECT 1 FROM record_meta m WHERE m.record_id = records.id AND m.key = ` + next() + `)`
		args = append(args, q.MetaKey)
	}
	if !q.IncludeShadows && q.MetaKey != meta.KeyShadowOf {
		query += ` AND NOT EXISTS (SELECT 1 FROM record_meta m WHERE m.record_id = records.id AND m.key = ` + next() + `)`
		args = append(args, meta.KeyShadowOf)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", ConvertDBError(err))
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) publish(ctx context.Context, ev event.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, ev)
	}
}
