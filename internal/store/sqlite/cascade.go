package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/saveable/internal/domain"
)

// Cascade applies the removal rules for c.Ref in one transaction: its saves
// as saver, its saves as saveable, then every collection it owns together
// with their descendants.
func (s *Store) Cascade(ctx context.Context, c domain.Cascade) (domain.CascadeResult, error) {
	var result domain.CascadeResult
	if c.IsNoop() {
		return result, nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if c.AsSaver {
			n, err := s.deleteSavesWhere(ctx, tx, "saver_type = ? AND saver_id = ?", c.Ref)
			if err != nil {
				return err
			}
			result.SavesDeleted += n
		}

		if c.AsSaveable {
			n, err := s.deleteSavesWhere(ctx, tx, "saveable_type = ? AND saveable_id = ?", c.Ref)
			if err != nil {
				return err
			}
			result.SavesDeleted += n
		}

		if c.AsOwner {
			owned, err := s.ownedCollectionIDs(ctx, tx, c.Ref)
			if err != nil {
				return err
			}
			if len(owned) == 0 {
				return nil
			}
			ids, _, err := s.descendants(ctx, tx, owned)
			if err != nil {
				return err
			}
			removed, err := s.removeCollections(ctx, tx, ids)
			if err != nil {
				return err
			}
			result.Add(removed)
		}
		return nil
	})
	if err != nil {
		return domain.CascadeResult{}, fmt.Errorf("cascade %s: %w", c.Ref, err)
	}

	s.logger.Debug("cascade applied",
		"entity", c.Ref.String(),
		"saves_deleted", result.SavesDeleted,
		"saves_unlinked", result.SavesUnlinked,
		"collections_deleted", result.CollectionsDeleted,
	)
	return result, nil
}

func (s *Store) deleteSavesWhere(ctx context.Context, tx *sql.Tx, cond string, ref domain.EntityRef) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM `+s.saves+` WHERE `+cond, ref.Type, ref.ID)
	if err != nil {
		return 0, fmt.Errorf("delete saves: %w", err)
	}
	return rowsAffected(res)
}

func (s *Store) ownedCollectionIDs(ctx context.Context, tx *sql.Tx, owner domain.EntityRef) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM `+s.collections+` WHERE owner_type = ? AND owner_id = ?`,
		owner.Type, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("load owned collections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
