package audit

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the history schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "audit-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE validation_history (
			id            TEXT PRIMARY KEY,
			document_hash TEXT NOT NULL,
			valid         INTEGER NOT NULL,
			score         REAL NOT NULL,
			error_count   INTEGER NOT NULL,
			warning_count INTEGER NOT NULL,
			fix_count     INTEGER NOT NULL DEFAULT 0,
			mode          TEXT NOT NULL,
			summary       TEXT NOT NULL,
			duration_ms   INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	rec := &Record{
		DocumentHash: HashDocument("alias: Test\n"),
		Valid:        true,
		Score:        100,
		Mode:         "moderate",
		Summary:      "passed, no issues",
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if rec.ID == "" {
		t.Error("Create() did not generate an ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}
}

func TestList_OrderAndPagination(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &Record{
			DocumentHash: HashDocument("doc"),
			Valid:        i%2 == 0,
			Score:        float64(100 - i*10),
			ErrorCount:   i % 2,
			Mode:         "moderate",
			Summary:      "test",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}
	if len(result.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(result.Records))
	}
	// Most recent first
	if result.Records[0].Score != 60 {
		t.Errorf("Records[0].Score = %v, want 60 (newest)", result.Records[0].Score)
	}

	page2, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page2.Records) != 2 || page2.Records[0].Score != 80 {
		t.Errorf("page 2 = %+v, want scores 80, 90", page2.Records)
	}
}

func TestList_Filters(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	records := []*Record{
		{DocumentHash: "aaa", Valid: true, Score: 100, Mode: "moderate", Summary: "ok"},
		{DocumentHash: "aaa", Valid: false, Score: 70, ErrorCount: 1, Mode: "moderate", Summary: "failed"},
		{DocumentHash: "bbb", Valid: true, Score: 96, WarningCount: 2, Mode: "strict", Summary: "warned"},
	}
	for _, rec := range records {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	byHash, err := repo.List(ctx, Filter{DocumentHash: "aaa"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if byHash.Total != 2 {
		t.Errorf("hash filter Total = %d, want 2", byHash.Total)
	}

	failed, err := repo.List(ctx, Filter{OnlyFailed: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if failed.Total != 1 || failed.Records[0].Valid {
		t.Errorf("OnlyFailed = %+v, want the single failed record", failed.Records)
	}
}

func TestList_EmptyTable(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 0 || len(result.Records) != 0 {
		t.Errorf("List() on empty table = %+v", result)
	}
	if result.Records == nil {
		t.Error("Records must be an empty slice, not nil")
	}
}

func TestHashDocument_Stable(t *testing.T) {
	a := HashDocument("alias: Test\n")
	b := HashDocument("alias: Test\n")
	c := HashDocument("alias: Other\n")

	if a != b {
		t.Error("HashDocument() is not stable for identical input")
	}
	if a == c {
		t.Error("HashDocument() collides for different input")
	}
	if len(a) != 64 {
		t.Errorf("HashDocument() length = %d, want 64 hex chars", len(a))
	}
}
