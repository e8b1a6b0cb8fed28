package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Category is a prompt category shown in the wizard and library.
type Category struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CategoryStore reads the seeded category list.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore creates a category store from a base store.
func NewCategoryStore(store *Store) *CategoryStore {
	if store == nil {
		return nil
	}
	return &CategoryStore{db: store.DB()}
}

// List returns categories in display order.
func (cs *CategoryStore) List(ctx context.Context) ([]Category, error) {
	rows, err := cs.db.QueryContext(ctx, `SELECT name, label, description FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Name, &c.Label, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Exists reports whether name is a known category.
func (cs *CategoryStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := cs.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}
