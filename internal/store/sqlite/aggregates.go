package sqlite

import (
	"context"
	"fmt"

	"github.com/listenupapp/saveable/internal/domain"
)

// CountSavesBySaveable counts savers per saveable ID. IDs nobody saved are
// absent from the map.
func (s *Store) CountSavesBySaveable(ctx context.Context, saveableType string, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))

	for _, batch := range chunks(ids) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT saveable_id, COUNT(*) FROM `+s.saves+`
			WHERE saveable_type = ? AND saveable_id IN (`+placeholders(len(batch))+`)
			GROUP BY saveable_id`,
			toArgs([]any{saveableType}, batch)...)
		if err != nil {
			return nil, fmt.Errorf("count saves by saveable: %w", err)
		}
		for rows.Next() {
			var (
				id string
				n  int
			)
			if err := rows.Scan(&id, &n); err != nil {
				rows.Close()
				return nil, err
			}
			counts[id] = n
		}
		if err := closeRows(rows); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

// SavesOfSaverFor returns saver's saves among ids, keyed by saveable ID.
// The pair is unique, so each ID maps to at most one save.
func (s *Store) SavesOfSaverFor(ctx context.Context, saver domain.EntityRef, saveableType string, ids []string) (map[string]*domain.Save, error) {
	out := make(map[string]*domain.Save, len(ids))

	for _, batch := range chunks(ids) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+saveColumns+` FROM `+s.saves+`
			WHERE saver_type = ? AND saver_id = ? AND saveable_type = ?
			AND saveable_id IN (`+placeholders(len(batch))+`)`,
			toArgs([]any{saver.Type, saver.ID, saveableType}, batch)...)
		if err != nil {
			return nil, fmt.Errorf("saves of saver: %w", err)
		}
		for rows.Next() {
			sv, err := scanSave(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan save: %w", err)
			}
			out[sv.Saveable.ID] = sv
		}
		if err := closeRows(rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}
