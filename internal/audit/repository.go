// Package audit provides access to the validation_history table for
// querying past validation calls.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one persisted validation call. Only findings metadata is
// stored; the document itself is kept as a hash so history never
// leaks automation contents.
type Record struct {
	ID           string        `json:"id"`
	DocumentHash string        `json:"document_hash"`
	Valid        bool          `json:"valid"`
	Score        float64       `json:"score"`
	ErrorCount   int           `json:"error_count"`
	WarningCount int           `json:"warning_count"`
	FixCount     int           `json:"fix_count"`
	Mode         string        `json:"mode"`
	Summary      string        `json:"summary"`
	Duration     time.Duration `json:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at"`
}

// HashDocument computes the stable hash used to correlate repeat
// validations of the same document text.
func HashDocument(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Filter controls which history records to return.
type Filter struct {
	DocumentHash string // optional: only records for one document
	OnlyFailed   bool   // optional: only records with errors
	Limit        int    // default 50, max 200
	Offset       int    // pagination offset
}

// ListResult contains the paginated history results.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the interface for validation history operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores validation history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new validation history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new history record. The ID and CreatedAt are
// generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "val-" + uuid.NewString()[:8]
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO validation_history
		 (id, document_hash, valid, score, error_count, warning_count, fix_count, mode, summary, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentHash, boolToInt(rec.Valid), rec.Score,
		rec.ErrorCount, rec.WarningCount, rec.FixCount,
		rec.Mode, rec.Summary, rec.Duration.Milliseconds(),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting validation record: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// List returns history records matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for history queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.DocumentHash != "" {
		conditions = append(conditions, "document_hash = ?")
		args = append(args, filter.DocumentHash)
	}
	if filter.OnlyFailed {
		conditions = append(conditions, "valid = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM validation_history %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting validation records: %w", err)
	}

	// Get paginated results.
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, document_hash, valid, score, error_count, warning_count, fix_count, mode, summary, duration_ms, created_at
		 FROM validation_history %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying validation records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var valid int
		var durationMS int64
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.DocumentHash, &valid, &rec.Score,
			&rec.ErrorCount, &rec.WarningCount, &rec.FixCount,
			&rec.Mode, &rec.Summary, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning validation record: %w", err)
		}

		rec.Valid = valid != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing record timestamp %q: %w", createdAt, err)
		}
		rec.CreatedAt = t

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating validation records: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
