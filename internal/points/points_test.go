package points

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
)

func TestAddPointsUpdatesTotalAndLevel(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, db.MemoryDSN("points"))
	if err != nil {
		t.Fatal(err)
	}
	defer dbh.Close()
	if _, err := dbh.Exec(`INSERT INTO users (id, username, total_points, level, created_at) VALUES ('u1','alice',95,1,0)`); err != nil {
		t.Fatal(err)
	}

	a := NewSQLAwarder(dbh)
	if err := a.AddPoints(ctx, "u1", 10); err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	p, err := a.Progress(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalPoints != 105 || p.Level != 2 {
		t.Fatalf("progress=%+v", p)
	}

	if err := a.AddPoints(ctx, "u1", 0); err != nil {
		t.Fatalf("zero points should be a no-op: %v", err)
	}
	if err := a.AddPoints(ctx, "ghost", 5); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}
