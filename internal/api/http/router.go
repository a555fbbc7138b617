package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authmw "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

const maxUploadBytes = 50 << 20

type Deps struct {
	DB          *sql.DB
	Log         *logger.Logger
	Auth        *authmw.AuthService
	Users       *authmw.UserStore
	Blobs       storage.BlobStore
	Documents   DocumentService
	Generator   QuizGenerator
	Quizzes     QuizStore
	Attempts    AttemptEngine
	Progress    ProgressReader
	Events      EventReader
	CORSOrigins []string
	LocalAuth   bool
	// ClaimFallback keeps the token role for subjects missing from users.
	ClaimFallback bool
}

// NewRouter mounts every route. Generation can take minutes, so only the
// cheap routes get a request timeout.
func NewRouter(d Deps) chi.Router {
	log := logger.OrNop(d.Log)
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	if d.LocalAuth && d.Users != nil {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users))
		r.Post("/auth/register", authmw.RegisterHandler(d.Auth, d.Users))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		if d.DB != nil {
			pr.Use(authmw.AttachRoleFromDB(d.DB, d.ClaimFallback))
		}

		// generation and extraction run in the request
		pr.With(rbac.Require(rbac.PermQuizGenerate)).
			Post("/quizzes/generate", GenerateQuizHandler(d.Generator))
		pr.With(rbac.Require(rbac.PermDocumentUpload)).
			Post("/documents", UploadDocumentHandler(d.Documents, maxUploadBytes))
		pr.With(rbac.Require(rbac.PermDocumentProcess)).
			Post("/documents/{documentID}/process", ProcessDocumentHandler(d.Documents))
		pr.With(rbac.Require(rbac.PermDocumentProcess)).
			Post("/documents/process", ProcessDocumentsHandler(d.Documents))

		pr.Group(func(tr chi.Router) {
			tr.Use(middleware.Timeout(30 * time.Second))

			tr.With(rbac.Require(rbac.PermDocumentView)).
				Get("/documents", ListDocumentsHandler(d.Documents))
			tr.With(rbac.Require(rbac.PermDocumentView)).
				Get("/documents/{documentID}", GetDocumentHandler(d.Documents))
			tr.With(rbac.Require(rbac.PermDocumentView)).
				Get("/documents/{documentID}/file", DownloadDocumentHandler(d.Documents, d.Blobs))
			tr.With(rbac.Require(rbac.PermDocumentUpload)).
				Delete("/documents/{documentID}", DeleteDocumentHandler(d.Documents))

			tr.With(rbac.Require(rbac.PermQuizView)).
				Get("/quizzes", ListQuizzesHandler(d.Quizzes))
			tr.With(rbac.Require(rbac.PermQuizView)).
				Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes))
			tr.With(rbac.Require(rbac.PermQuizView)).
				Get("/quizzes/{quizID}/flashcards", FlashcardsHandler(d.Quizzes))
			tr.With(rbac.Require(rbac.PermQuizManage)).
				Post("/quizzes/{quizID}/publish", PublishQuizHandler(d.Quizzes))
			tr.With(rbac.Require(rbac.PermQuizManage)).
				Post("/quizzes/{quizID}/archive", ArchiveQuizHandler(d.Quizzes))
			tr.With(rbac.Require(rbac.PermQuizManage)).
				Delete("/quizzes/{quizID}", DeleteQuizHandler(d.Quizzes))

			tr.With(rbac.Require(rbac.PermAttemptTake)).
				Post("/quizzes/{quizID}/start", StartAttemptHandler(d.Attempts, d.Quizzes))
			tr.With(rbac.Require(rbac.PermAttemptTake)).
				Post("/quizzes/{quizID}/submit", SubmitActiveHandler(d.Attempts))
			tr.With(rbac.Require(rbac.PermAttemptTake)).
				Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Attempts))
			tr.With(rbac.Require(rbac.PermAttemptViewOwn)).
				Get("/attempts/mine", MyAttemptsHandler(d.Attempts))
			tr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
				Get("/attempts/{attemptID}", GetAttemptHandler(d.Attempts))

			if d.Users != nil {
				tr.With(rbac.Require(rbac.PermPasswordChange)).
					Post("/users/change-password", ChangePasswordHandler(d.Users))
			}
			if d.Progress != nil {
				tr.With(rbac.Require(rbac.PermProgressView)).
					Get("/me/progress", ProgressHandler(d.Progress))
			}
			if d.Events != nil {
				tr.With(rbac.Require(rbac.PermEventsRead)).
					Get("/events", ListEventsHandler(d.Events))
			}
		})
	})
	return r
}

// RequestLogger logs one line per request through zap.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Error("request", kv...)
				return
			}
			log.Debug("request", kv...)
		})
	}
}
