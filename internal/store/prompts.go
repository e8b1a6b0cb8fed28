package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewPrompt is the payload handed over when a finished prompt is saved.
type NewPrompt struct {
	UserID      string   `json:"-"`
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	Category    string   `json:"category"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

// Prompt is a saved prompt as seen by a viewer.
type Prompt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	Tags        []string  `json:"tags"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scope narrows which prompts a listing covers.
type Scope string

const (
	ScopeVisible Scope = ""       // own prompts plus public ones
	ScopeMine    Scope = "mine"   // own prompts only
	ScopePublic  Scope = "public" // public prompts only
)

// ListOptions filters, sorts and paginates prompt listings.
type ListOptions struct {
	ViewerID      string
	Scope         Scope
	Category      string
	Tag           string
	Search        string
	FavoritesOnly bool
	SortBy        string // created_at (default), updated_at, title
	Ascending     bool
	Limit         int // default 20, max 100
	Offset        int
}

// ListResult is one page of prompts plus the unpaginated total.
type ListResult struct {
	Prompts []Prompt `json:"prompts"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// PromptStore handles saved prompts, tags and favorites.
type PromptStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPromptStore creates a prompt store from a base store.
func NewPromptStore(store *Store) *PromptStore {
	if store == nil {
		return nil
	}
	return &PromptStore{db: store.DB(), now: time.Now}
}

// Create saves a prompt and returns it.
func (ps *PromptStore) Create(ctx context.Context, p NewPrompt) (*Prompt, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" || strings.TrimSpace(p.Text) == "" || strings.TrimSpace(p.UserID) == "" {
		return nil, fmt.Errorf("%w prompt: title, text and user are required", ErrInvalid)
	}

	now := ps.now()
	id := uuid.NewString()
	tags := normalizeTags(p.Tags)

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO prompts (id, user_id, title, text, category, description, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.UserID, p.Title, p.Text, p.Category, p.Description, p.IsPublic, unixMilli(now), unixMilli(now))
	if err != nil {
		return nil, fmt.Errorf("insert prompt: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO prompt_tags (prompt_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return nil, fmt.Errorf("insert tag: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Prompt{
		ID:          id,
		UserID:      p.UserID,
		Title:       p.Title,
		Text:        p.Text,
		Category:    p.Category,
		Description: p.Description,
		IsPublic:    p.IsPublic,
		Tags:        tags,
		CreatedAt:   fromUnixMilli(unixMilli(now)),
		UpdatedAt:   fromUnixMilli(unixMilli(now)),
	}, nil
}

const promptColumns = `p.id, p.user_id, p.title, p.text, p.category, p.description, p.is_public, p.created_at, p.updated_at,
	COALESCE((SELECT group_concat(tag, ',') FROM (SELECT tag FROM prompt_tags WHERE prompt_id = p.id ORDER BY tag)), ''),
	EXISTS (SELECT 1 FROM favorites f WHERE f.prompt_id = p.id AND f.user_id = ?)`

// Get returns a prompt visible to viewerID.
func (ps *PromptStore) Get(ctx context.Context, viewerID, id string) (*Prompt, error) {
	row := ps.db.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts p WHERE p.id = ? AND (p.user_id = ? OR p.is_public = 1)`,
		viewerID, id, viewerID)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns one page of prompts matching opts.
func (ps *PromptStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	where, args := listWhere(opts)

	var total int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count prompts: %w", err)
	}

	order := "DESC"
	if opts.Ascending {
		order = "ASC"
	}
	query := `SELECT ` + promptColumns + ` FROM prompts p WHERE ` + where +
		fmt.Sprintf(` ORDER BY %s %s, p.id ASC LIMIT ? OFFSET ?`, sortColumn(opts.SortBy), order)

	queryArgs := append([]any{opts.ViewerID}, args...)
	queryArgs = append(queryArgs, opts.Limit, opts.Offset)

	rows, err := ps.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	result := &ListResult{Prompts: []Prompt{}, Total: total, Limit: opts.Limit, Offset: opts.Offset}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		result.Prompts = append(result.Prompts, *p)
	}
	return result, rows.Err()
}

// Delete removes a prompt owned by userID.
func (ps *PromptStore) Delete(ctx context.Context, userID, id string) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM prompts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prompt_tags WHERE prompt_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE prompt_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SetFavorite marks or unmarks a visible prompt as a favorite of userID.
func (ps *PromptStore) SetFavorite(ctx context.Context, userID, promptID string, favorite bool) error {
	if !favorite {
		_, err := ps.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND prompt_id = ?`, userID, promptID)
		return err
	}
	if _, err := ps.Get(ctx, userID, promptID); err != nil {
		return err
	}
	_, err := ps.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (user_id, prompt_id, created_at) VALUES (?, ?, ?)`,
		userID, promptID, unixMilli(ps.now()))
	return err
}

func listWhere(opts ListOptions) (string, []any) {
	var clauses []string
	var args []any

	switch opts.Scope {
	case ScopeMine:
		clauses = append(clauses, "p.user_id = ?")
		args = append(args, opts.ViewerID)
	case ScopePublic:
		clauses = append(clauses, "p.is_public = 1")
	default:
		clauses = append(clauses, "(p.user_id = ? OR p.is_public = 1)")
		args = append(args, opts.ViewerID)
	}
	if opts.Category != "" {
		clauses = append(clauses, "p.category = ?")
		args = append(args, opts.Category)
	}
	if tag := normalizeTag(opts.Tag); tag != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM prompt_tags t WHERE t.prompt_id = p.id AND t.tag = ?)")
		args = append(args, tag)
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		clauses = append(clauses, "(lower(p.title) LIKE ? OR lower(p.text) LIKE ? OR lower(p.description) LIKE ?)")
		args = append(args, like, like, like)
	}
	if opts.FavoritesOnly {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM favorites f2 WHERE f2.prompt_id = p.id AND f2.user_id = ?)")
		args = append(args, opts.ViewerID)
	}
	return strings.Join(clauses, " AND "), args
}

func sortColumn(s string) string {
	switch s {
	case "title":
		return "lower(p.title)"
	case "updated_at":
		return "p.updated_at"
	default:
		return "p.created_at"
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrompt(s scanner) (*Prompt, error) {
	var (
		p                    Prompt
		created, updated     int64
		tags                 string
		isPublic, isFavorite bool
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Text, &p.Category, &p.Description, &isPublic,
		&created, &updated, &tags, &isFavorite)
	if err != nil {
		return nil, err
	}
	p.IsPublic = isPublic
	p.IsFavorite = isFavorite
	p.CreatedAt = fromUnixMilli(created)
	p.UpdatedAt = fromUnixMilli(updated)
	p.Tags = []string{}
	if tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	return &p, nil
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return strings.ReplaceAll(tag, ",", "")
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
