package llmcall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store reads and writes call records in the llm_calls table.
type Store struct {
	db *sql.DB
}

// NewStore creates a call store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	UserID    string
	Operation Operation
	Provider  string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

const callColumns = `id, timestamp, latency_ms, user_id, operation, step, provider, model, success, error_kind, error, response_chars`

// Insert writes calls in a single transaction.
func (s *Store) Insert(ctx context.Context, calls ...*Call) error {
	if len(calls) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO llm_calls (`+callColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range calls {
		if c == nil {
			continue
		}
		var step any
		if c.Step != nil {
			step = *c.Step
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Timestamp.UnixMilli(), c.LatencyMs, c.UserID,
			string(c.Operation), step, c.Provider, c.Model, c.Success, c.ErrorKind, c.Error, c.ResponseSize); err != nil {
			return fmt.Errorf("insert call %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Get retrieves a single call by ID. Returns nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM llm_calls WHERE id = ?`, id)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// List retrieves calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	var conditions []string
	var args []any

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, string(filter.Operation))
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.After != nil {
		conditions = append(conditions, "timestamp > ?")
		args = append(args, filter.After.UnixMilli())
	}
	if filter.Before != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.Before.UnixMilli())
	}

	query := `SELECT ` + callColumns + ` FROM llm_calls`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *c)
	}
	return calls, rows.Err()
}

// CountByProvider returns call counts grouped by provider and outcome.
func (s *Store) CountByProvider(ctx context.Context) (map[string]ProviderCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, SUM(success), COUNT(*) - SUM(success) FROM llm_calls GROUP BY provider`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]ProviderCounts)
	for rows.Next() {
		var name string
		var pc ProviderCounts
		if err := rows.Scan(&name, &pc.Succeeded, &pc.Failed); err != nil {
			return nil, err
		}
		counts[name] = pc
	}
	return counts, rows.Err()
}

// ProviderCounts summarizes outcomes for one provider.
type ProviderCounts struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(r rowScanner) (*Call, error) {
	var (
		c       Call
		ts      int64
		op      string
		step    sql.NullInt64
		success bool
	)
	if err := r.Scan(&c.ID, &ts, &c.LatencyMs, &c.UserID, &op, &step, &c.Provider, &c.Model,
		&success, &c.ErrorKind, &c.Error, &c.ResponseSize); err != nil {
		return nil, err
	}
	c.Timestamp = time.UnixMilli(ts).UTC()
	c.Operation = Operation(op)
	c.Success = success
	if step.Valid {
		v := int(step.Int64)
		c.Step = &v
	}
	return &c, nil
}
