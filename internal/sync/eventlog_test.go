package syncx

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
)

func TestRecordAndSince(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, db.MemoryDSN("eventlog"))
	if err != nil {
		t.Fatal(err)
	}
	defer dbh.Close()

	repo := NewEventRepo(dbh, "")
	if err := repo.Record(ctx, TypeQuizGenerated, "quiz-1", map[string]any{"used_fallback": true}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	tx, err := dbh.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendTx(ctx, tx, Event{Type: TypeAttemptCompleted, Key: "att-1", DataJSON: `{}`}); err != nil {
		t.Fatalf("AppendTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	events, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events=%+v", events)
	}
	if events[0].Type != TypeQuizGenerated || events[0].SiteID != "local" || events[0].DataJSON != `{"used_fallback":true}` {
		t.Fatalf("event 0: %+v", events[0])
	}
	if events[1].Seq <= events[0].Seq {
		t.Fatal("seq must increase")
	}

	rest, err := repo.Since(ctx, events[0].Seq, 10)
	if err != nil || len(rest) != 1 || rest[0].Key != "att-1" {
		t.Fatalf("Since(after first): %+v err=%v", rest, err)
	}
}
