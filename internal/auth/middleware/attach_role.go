package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
)

// AttachRoleFromDB replaces the token's role claim with the role stored for
// the subject, so demotions take effect before the token expires. Unknown
// subjects keep their claim only when allowClaimFallback is set (offline/dev).
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, SubjectFromContext(ctx)).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case (err == nil || errors.Is(err, sql.ErrNoRows)) && allowClaimFallback && rbac.RoleFromContext(ctx) != "":
				next.ServeHTTP(w, r)
			case err != nil && !errors.Is(err, sql.ErrNoRows):
				writeError(w, http.StatusInternalServerError, "role lookup failed")
			default:
				writeError(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}
