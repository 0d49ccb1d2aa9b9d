package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

// saveColumns must match the scan order in scanSave.
const saveColumns = `id, saver_type, saver_id, saveable_type, saveable_id, collection_id,
	metadata, order_column, created_at, updated_at`

func scanSave(scanner interface{ Scan(dest ...any) error }) (*domain.Save, error) {
	var (
		sv           domain.Save
		collectionID sql.NullString
		metadata     sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&sv.ID,
		&sv.Saver.Type,
		&sv.Saver.ID,
		&sv.Saveable.Type,
		&sv.Saveable.ID,
		&collectionID,
		&metadata,
		&sv.OrderPosition,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sv.CollectionID = stringPtr(collectionID)
	if sv.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, fmt.Errorf("save %s: %w", sv.ID, err)
	}
	if sv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sv, nil
}

func encodeMetadata(m domain.Metadata) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeMetadata(ns sql.NullString) (domain.Metadata, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var m domain.Metadata
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

func (s *Store) getSave(ctx context.Context, q querier, saver, saveable domain.EntityRef) (*domain.Save, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+saveColumns+` FROM `+s.saves+`
		WHERE saver_type = ? AND saver_id = ? AND saveable_type = ? AND saveable_id = ?`,
		saver.Type, saver.ID, saveable.Type, saveable.ID)

	sv, err := scanSave(row)
	if err != nil {
		return nil, notFound(err, "save not found")
	}
	return sv, nil
}

// GetSave returns store.ErrNotFound when the pair has not been saved.
func (s *Store) GetSave(ctx context.Context, saver, saveable domain.EntityRef) (*domain.Save, error) {
	return s.getSave(ctx, s.db, saver, saveable)
}

// nextPosition returns 1 + max(order_column) within (saver, collection),
// or 0 when auto ordering is off.
func (s *Store) nextPosition(ctx context.Context, q querier, saver domain.EntityRef, collectionID *string) (int, error) {
	if !s.cfg.AutoOrdering {
		return 0, nil
	}
	var maxPos sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT MAX(order_column) FROM `+s.saves+`
		WHERE saver_type = ? AND saver_id = ? AND collection_id IS ?`,
		saver.Type, saver.ID, nullableString(collectionID),
	).Scan(&maxPos)
	if err != nil {
		return 0, fmt.Errorf("max order position: %w", err)
	}
	if !maxPos.Valid {
		return 1, nil
	}
	return int(maxPos.Int64) + 1, nil
}

func (s *Store) insertSave(ctx context.Context, tx *sql.Tx, sv *domain.Save) (bool, error) {
	_, err := s.getSave(ctx, tx, sv.Saver, sv.Saveable)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	pos, err := s.nextPosition(ctx, tx, sv.Saver, sv.CollectionID)
	if err != nil {
		return false, err
	}

	metadata, err := encodeMetadata(sv.Metadata)
	if err != nil {
		return false, err
	}

	now := s.now()
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = now
	}
	sv.UpdatedAt = sv.CreatedAt

	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+s.saves+` (
			id, saver_type, saver_id, saveable_type, saveable_id, collection_id,
			metadata, order_column, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.ID,
		sv.Saver.Type,
		sv.Saver.ID,
		sv.Saveable.Type,
		sv.Saveable.ID,
		nullableString(sv.CollectionID),
		metadata,
		pos,
		formatTime(sv.CreatedAt),
		formatTime(sv.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, store.ErrDuplicateSave.WithCause(err)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return false, store.ErrNotFound.WithMessage("collection not found").WithCause(err)
		}
		return false, fmt.Errorf("insert save: %w", err)
	}

	sv.OrderPosition = pos
	return true, nil
}

// InsertSave stores sv unless the pair already exists.
func (s *Store) InsertSave(ctx context.Context, sv *domain.Save) (bool, error) {
	var created bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.insertSave(ctx, tx, sv)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// ToggleSave deletes the pair if present, otherwise inserts sv.
func (s *Store) ToggleSave(ctx context.Context, sv *domain.Save) (bool, error) {
	var nowSaved bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		removed, err := s.deleteSave(ctx, tx, sv.Saver, sv.Saveable)
		if err != nil || removed {
			return err
		}
		nowSaved, err = s.insertSave(ctx, tx, sv)
		return err
	})
	if err != nil {
		return false, err
	}
	return nowSaved, nil
}

func (s *Store) deleteSave(ctx context.Context, q querier, saver, saveable domain.EntityRef) (bool, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM `+s.saves+`
		WHERE saver_type = ? AND saver_id = ? AND saveable_type = ? AND saveable_id = ?`,
		saver.Type, saver.ID, saveable.Type, saveable.ID)
	if err != nil {
		return false, fmt.Errorf("delete save: %w", err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

// DeleteSave removes the pair. Returns false when nothing was saved.
func (s *Store) DeleteSave(ctx context.Context, saver, saveable domain.EntityRef) (bool, error) {
	return s.deleteSave(ctx, s.db, saver, saveable)
}

// MoveSave sets the collection of an existing save. The order position is
// kept as is.
func (s *Store) MoveSave(ctx context.Context, saver, saveable domain.EntityRef, collectionID *string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.saves+` SET collection_id = ?, updated_at = ?
		WHERE saver_type = ? AND saver_id = ? AND saveable_type = ? AND saveable_id = ?`,
		nullableString(collectionID), formatTime(s.now()),
		saver.Type, saver.ID, saveable.Type, saveable.ID)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return false, store.ErrNotFound.WithMessage("collection not found").WithCause(err)
		}
		return false, fmt.Errorf("move save: %w", err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

// MergeSaveMetadata shallow-merges patch into the stored metadata.
func (s *Store) MergeSaveMetadata(ctx context.Context, saver, saveable domain.EntityRef, patch domain.Metadata) (bool, error) {
	var updated bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sv, err := s.getSave(ctx, tx, saver, saveable)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		metadata, err := encodeMetadata(sv.Metadata.Merge(patch))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+s.saves+` SET metadata = ?, updated_at = ? WHERE id = ?`,
			metadata, formatTime(s.now()), sv.ID); err != nil {
			return fmt.Errorf("update metadata: %w", err)
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (s *Store) saveWhere(f store.SaveFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Saver != nil {
		conds = append(conds, "saver_type = ? AND saver_id = ?")
		args = append(args, f.Saver.Type, f.Saver.ID)
	}
	if f.Saveable != nil {
		conds = append(conds, "saveable_type = ? AND saveable_id = ?")
		args = append(args, f.Saveable.Type, f.Saveable.ID)
	}
	if f.SaverType != "" {
		conds = append(conds, "saver_type = ?")
		args = append(args, f.SaverType)
	}
	if f.SaveableType != "" {
		conds = append(conds, "saveable_type = ?")
		args = append(args, f.SaveableType)
	}
	switch {
	case f.Unsorted:
		conds = append(conds, "collection_id IS NULL")
	case f.CollectionID != nil:
		conds = append(conds, "collection_id = ?")
		args = append(args, *f.CollectionID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSaves returns saves matching f in the requested order. Ties on the
// timestamp fall back to insertion order, newest first.
func (s *Store) ListSaves(ctx context.Context, f store.SaveFilter) ([]*domain.Save, error) {
	where, args := s.saveWhere(f)

	order := " ORDER BY order_column ASC, created_at DESC, rowid DESC"
	if f.Order == store.OrderByNewest {
		order = " ORDER BY created_at DESC, rowid DESC"
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+saveColumns+` FROM `+s.saves+where+order, args...)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	saves := []*domain.Save{}
	for rows.Next() {
		sv, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		saves = append(saves, sv)
	}
	return saves, rows.Err()
}

// CountSaves counts saves matching f.
func (s *Store) CountSaves(ctx context.Context, f store.SaveFilter) (int, error) {
	where, args := s.saveWhere(f)

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.saves+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count saves: %w", err)
	}
	return n, nil
}
