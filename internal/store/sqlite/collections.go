package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

// collectionColumns must match the scan order in scanCollection.
const collectionColumns = `id, owner_type, owner_id, name, description, parent_id, created_at, updated_at`

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	var (
		c           domain.Collection
		description sql.NullString
		parentID    sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&c.ID,
		&c.Owner.Type,
		&c.Owner.ID,
		&c.Name,
		&description,
		&parentID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		c.Description = description.String
	}
	c.ParentID = stringPtr(parentID)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) getCollection(ctx context.Context, q querier, id string) (*domain.Collection, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM `+s.collections+` WHERE id = ?`, id)
	c, err := scanCollection(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("collection %s not found", id))
	}
	return c, nil
}

// GetCollection returns store.ErrNotFound if the collection does not exist.
func (s *Store) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	return s.getCollection(ctx, s.db, id)
}

// depthOf counts the collections on the path from id up to its root,
// inclusive. Reaching stopAt reports a cycle. The walk never exceeds the
// configured maximum depth.
func (s *Store) depthOf(ctx context.Context, q querier, id, stopAt string) (int, bool, error) {
	depth := 0
	cur := id
	for cur != "" {
		if cur == stopAt {
			return depth, true, nil
		}
		depth++
		if depth > s.cfg.MaxCollectionDepth {
			return depth, false, nil
		}

		var parent sql.NullString
		err := q.QueryRowContext(ctx,
			`SELECT parent_id FROM `+s.collections+` WHERE id = ?`, cur).Scan(&parent)
		if err != nil {
			return 0, false, notFound(err, fmt.Sprintf("collection %s not found", cur))
		}
		cur = parent.String
	}
	return depth, false, nil
}

// validateParent checks that parentID may receive a subtree of the given
// height owned by owner.
func (s *Store) validateParent(ctx context.Context, q querier, childID, parentID string, owner domain.EntityRef, height int) error {
	parent, err := s.getCollection(ctx, q, parentID)
	if err != nil {
		return err
	}
	if !parent.OwnedBy(owner) {
		return store.ErrInvalidInput.WithMessage("parent collection belongs to another owner")
	}

	depth, cycle, err := s.depthOf(ctx, q, parentID, childID)
	if err != nil {
		return err
	}
	if cycle {
		return store.ErrInvalidInput.WithMessage("collection cannot be moved under itself or its descendants")
	}
	if depth+height > s.cfg.MaxCollectionDepth {
		return store.ErrInvalidInput.WithMessage(
			fmt.Sprintf("collection tree would exceed maximum depth %d", s.cfg.MaxCollectionDepth))
	}
	return nil
}

// CreateCollection inserts c after validating its parent.
func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if c.ParentID != nil {
			if err := s.validateParent(ctx, tx, c.ID, *c.ParentID, c.Owner, 1); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+s.collections+` (
				id, owner_type, owner_id, name, description, parent_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID,
			c.Owner.Type,
			c.Owner.ID,
			c.Name,
			nullString(c.Description),
			nullableString(c.ParentID),
			formatTime(c.CreatedAt),
			formatTime(c.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrAlreadyExists
			}
			return fmt.Errorf("insert collection: %w", err)
		}
		return nil
	})
}

// UpdateCollection updates name and description.
func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.collections+` SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Name, nullString(c.Description), formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("collection %s not found", c.ID))
	}
	return nil
}

// SetCollectionParent re-parents id. A nil parent makes it a root.
func (s *Store) SetCollectionParent(ctx context.Context, id string, parentID *string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := s.getCollection(ctx, tx, id)
		if err != nil {
			return err
		}

		if parentID != nil {
			if *parentID == id {
				return store.ErrInvalidInput.WithMessage("collection cannot be its own parent")
			}
			_, levels, err := s.descendants(ctx, tx, []string{id})
			if err != nil {
				return err
			}
			if err := s.validateParent(ctx, tx, id, *parentID, c.Owner, levels); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE `+s.collections+` SET parent_id = ?, updated_at = ? WHERE id = ?`,
			nullableString(parentID), formatTime(s.now()), id)
		if err != nil {
			return fmt.Errorf("set collection parent: %w", err)
		}
		return nil
	})
}

// ListCollections returns collections matching f, oldest first.
func (s *Store) ListCollections(ctx context.Context, f store.CollectionFilter) ([]*domain.Collection, error) {
	var (
		conds []string
		args  []any
	)
	if f.Owner != nil {
		conds = append(conds, "owner_type = ? AND owner_id = ?")
		args = append(args, f.Owner.Type, f.Owner.ID)
	}
	switch {
	case f.RootOnly:
		conds = append(conds, "parent_id IS NULL")
	case f.ParentID != nil:
		conds = append(conds, "parent_id = ?")
		args = append(args, *f.ParentID)
	}

	query := `SELECT ` + collectionColumns + ` FROM ` + s.collections
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	out := []*domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// descendants walks the tree breadth-first from roots and returns every
// collection reached, roots included, plus the number of levels walked.
// The visited set keeps a corrupt cycle from looping.
func (s *Store) descendants(ctx context.Context, q querier, roots []string) ([]string, int, error) {
	visited := make(map[string]bool, len(roots))
	var all []string
	frontier := make([]string, 0, len(roots))
	for _, id := range roots {
		if !visited[id] {
			visited[id] = true
			all = append(all, id)
			frontier = append(frontier, id)
		}
	}

	levels := 0
	for len(frontier) > 0 {
		levels++
		var next []string
		for _, batch := range chunks(frontier) {
			rows, err := q.QueryContext(ctx,
				`SELECT id FROM `+s.collections+` WHERE parent_id IN (`+placeholders(len(batch))+`)`,
				toArgs(nil, batch)...)
			if err != nil {
				return nil, 0, fmt.Errorf("load child collections: %w", err)
			}
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return nil, 0, err
				}
				if !visited[id] {
					visited[id] = true
					all = append(all, id)
					next = append(next, id)
				}
			}
			if err := closeRows(rows); err != nil {
				return nil, 0, err
			}
		}
		frontier = next
	}
	return all, levels, nil
}

// removeCollections unlinks saves from ids and deletes the collection rows.
func (s *Store) removeCollections(ctx context.Context, tx *sql.Tx, ids []string) (domain.CascadeResult, error) {
	var result domain.CascadeResult
	now := formatTime(s.now())

	for _, batch := range chunks(ids) {
		in := placeholders(len(batch))

		res, err := tx.ExecContext(ctx,
			`UPDATE `+s.saves+` SET collection_id = NULL, updated_at = ? WHERE collection_id IN (`+in+`)`,
			toArgs([]any{now}, batch)...)
		if err != nil {
			return result, fmt.Errorf("unlink saves: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return result, err
		}
		result.SavesUnlinked += n
	}

	for _, batch := range chunks(ids) {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM `+s.collections+` WHERE id IN (`+placeholders(len(batch))+`)`,
			toArgs(nil, batch)...)
		if err != nil {
			return result, fmt.Errorf("delete collections: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return result, err
		}
		result.CollectionsDeleted += n
	}
	return result, nil
}

// DeleteCollection removes id with all descendants and unlinks their saves.
// Returns store.ErrNotFound if id does not exist.
func (s *Store) DeleteCollection(ctx context.Context, id string) (domain.CascadeResult, error) {
	var result domain.CascadeResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getCollection(ctx, tx, id); err != nil {
			return err
		}
		ids, _, err := s.descendants(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		result, err = s.removeCollections(ctx, tx, ids)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CascadeResult{}, err
		}
		return domain.CascadeResult{}, fmt.Errorf("delete collection %s: %w", id, err)
	}

	s.logger.Debug("collection deleted",
		"collection_id", id,
		"collections_deleted", result.CollectionsDeleted,
		"saves_unlinked", result.SavesUnlinked,
	)
	return result, nil
}
