package db

import (
	"context"
	"strings"
	"testing"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	dbh, err := Open(ctx, DriverSQLite, "file:connect_test?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer dbh.Close()

	for _, table := range []string{"users", "documents", "quizzes", "questions", "flashcards", "quiz_attempts", "user_answers", "event_log"} {
		var name string
		err := dbh.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// schema is idempotent
	if err := ensureSchema(ctx, dbh, DriverSQLite); err != nil {
		t.Fatalf("re-apply schema: %v", err)
	}
}

func TestActiveAttemptIndexIsPartial(t *testing.T) {
	ctx := context.Background()
	dbh, err := Open(ctx, DriverSQLite, "file:connect_partial?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer dbh.Close()

	if _, err := dbh.Exec(`INSERT INTO quizzes (id,title,created_at) VALUES ('q1','Quiz',0)`); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	ins := `INSERT INTO quiz_attempts (id,quiz_id,student_id,status,started_at) VALUES ($1,'q1','s1',$2,0)`
	if _, err := dbh.Exec(ins, "a1", "completed"); err != nil {
		t.Fatalf("completed #1: %v", err)
	}
	if _, err := dbh.Exec(ins, "a2", "completed"); err != nil {
		t.Fatalf("completed #2: %v", err)
	}
	if _, err := dbh.Exec(ins, "a3", "in_progress"); err != nil {
		t.Fatalf("in_progress #1: %v", err)
	}
	_, err = dbh.Exec(ins, "a4", "in_progress")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("oracle"), "")
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("err=%v", err)
	}
}
