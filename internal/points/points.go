// Package points credits students with the points earned on passed quizzes.
package points

import (
	"context"
	"database/sql"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

const pointsPerLevel = 100

type Progress struct {
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	Level       int    `json:"level"`
}

type SQLAwarder struct {
	db *sql.DB
}

func NewSQLAwarder(db *sql.DB) *SQLAwarder {
	return &SQLAwarder{db: db}
}

// AddPoints adds pts to the user's total and recomputes the level
// (one level per 100 points, starting at 1). Non-positive pts is a no-op.
func (a *SQLAwarder) AddPoints(ctx context.Context, userID string, pts int) error {
	if pts <= 0 {
		return nil
	}
	res, err := a.db.ExecContext(ctx,
		`UPDATE users SET total_points = total_points + $1, level = (total_points + $1) / $2 + 1 WHERE id = $3`,
		pts, pointsPerLevel, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (a *SQLAwarder) Progress(ctx context.Context, userID string) (Progress, error) {
	p := Progress{UserID: userID}
	err := a.db.QueryRowContext(ctx, `SELECT total_points, level FROM users WHERE id=$1`, userID).Scan(&p.TotalPoints, &p.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, ErrUserNotFound
	}
	return p, err
}
