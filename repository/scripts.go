package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedScript inserts a script and its items if they do not already exist.
// Used for the shipped reference corpora; calling it repeatedly at startup
// is safe.
func (s *Store) SeedScript(ctx context.Context, script Script, items []ScriptItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO scripts (id, name, description, tags, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			script.ID, script.Name, nullable(script.Description),
			nullable(script.Tags), formatTime(time.Now()),
		)
		if err != nil {
			return wrapWriteError(err)
		}

		for _, item := range items {
			lang := item.Lang
			if lang == "" {
				lang = "en-US"
			}
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO script_items (id, script_id, text, lang, tags)
				 VALUES (?, ?, ?, ?, ?)`,
				item.ID, script.ID, item.Text, lang, nullable(item.Tags),
			)
			if err != nil {
				return wrapWriteError(err)
			}
		}
		return nil
	})
}

// ListScripts returns all scripts with their item counts.
func (s *Store) ListScripts(ctx context.Context) ([]Script, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sc.id, sc.name, COALESCE(sc.description, ''), COALESCE(sc.tags, ''),
		        COUNT(si.id)
		 FROM scripts sc
		 LEFT JOIN script_items si ON si.script_id = sc.id
		 GROUP BY sc.id
		 ORDER BY sc.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scripts []Script
	for rows.Next() {
		var sc Script
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Tags, &sc.ItemCount); err != nil {
			return nil, err
		}
		scripts = append(scripts, sc)
	}
	return scripts, rows.Err()
}

// ScriptItems returns a script's items in insertion order.
func (s *Store) ScriptItems(ctx context.Context, scriptID string) ([]ScriptItem, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scripts WHERE id = ?`, scriptID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("script %s: %w", scriptID, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, script_id, text, COALESCE(lang, ''), COALESCE(tags, '')
		 FROM script_items WHERE script_id = ? ORDER BY rowid`, scriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ScriptItem
	for rows.Next() {
		var item ScriptItem
		if err := rows.Scan(&item.ID, &item.ScriptID, &item.Text, &item.Lang, &item.Tags); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
