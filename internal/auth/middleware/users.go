package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
	"github.com/mind-engage/mindengage-quizgen/internal/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrBadRole            = errors.New("role must be student or teacher")
)

const bcryptCost = 12

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	TotalPoints int    `json:"total_points"`
	Level       int    `json:"level"`
}

type UserStore struct {
	db   *sql.DB
	cost int
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, cost: bcryptCost}
}

// Create registers a student or teacher with a bcrypt password hash.
func (s *UserStore) Create(ctx context.Context, username, password, role string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	if role != "student" && role != "teacher" {
		return User{}, ErrBadRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Username: username, Role: role, Level: 1}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (id,username,password_hash,role,created_at)
		VALUES ($1,$2,$3,$4,$5)`, u.ID, u.Username, string(hash), u.Role, time.Now().Unix())
	if db.IsUniqueViolation(err) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id,username,role,total_points,level,password_hash FROM users WHERE username=$1`,
		strings.TrimSpace(username)).Scan(&u.ID, &u.Username, &u.Role, &u.TotalPoints, &u.Level, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserStore) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidCredentials
	}
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	nh, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(nh), userID)
	return err
}

// SeedDevUsers creates teacher/teacher and student/student when the users
// table is empty. Offline mode only.
func (s *UserStore) SeedDevUsers(ctx context.Context, log *logger.Logger) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, role := range []string{"teacher", "student"} {
		if _, err := s.Create(ctx, role, role, role); err != nil && !errors.Is(err, ErrUsernameTaken) {
			return err
		}
	}
	logger.OrNop(log).Warn("seeded development users", "users", "teacher,student")
	return nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// LoginHandler: POST /auth/login {"username","password"}.
func LoginHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		u, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		issueToken(w, a, u, http.StatusOK)
	}
}

// RegisterHandler: POST /auth/register {"username","password","role"}.
func RegisterHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.Role == "" {
			req.Role = "student"
		}
		u, err := users.Create(r.Context(), req.Username, req.Password, req.Role)
		switch {
		case errors.Is(err, ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, ErrBadRole), errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "register failed")
			return
		}
		issueToken(w, a, u, http.StatusCreated)
	}
}

func issueToken(w http.ResponseWriter, a *AuthService, u User, code int) {
	tok, err := a.IssueJWT(u.ID, u.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, User: u})
}
