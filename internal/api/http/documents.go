package http

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/document"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

// DocumentService is implemented by *document.Service.
type DocumentService interface {
	Upload(ctx context.Context, in document.UploadInput) (document.Document, error)
	Process(ctx context.Context, id string) (document.Document, error)
	Reprocess(ctx context.Context, id string) (document.Document, error)
	ProcessAll(ctx context.Context, ids []string) ([]document.Document, []error)
	Get(ctx context.Context, id string) (document.Document, error)
	ListByCourse(ctx context.Context, courseID string) ([]document.Document, error)
	Delete(ctx context.Context, id string) error
}

// POST /documents (multipart: file, course_id, title?, format?, process?)
// The document is processed in the request when process=true.
func UploadDocumentHandler(svc DocumentService, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "multipart form required")
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file required")
			return
		}
		defer f.Close()
		courseID := strings.TrimSpace(r.FormValue("course_id"))
		if courseID == "" {
			writeError(w, http.StatusBadRequest, "course_id required")
			return
		}

		d, err := svc.Upload(r.Context(), document.UploadInput{
			CourseID:   courseID,
			Title:      r.FormValue("title"),
			Filename:   hdr.Filename,
			Format:     r.FormValue("format"),
			UploadedBy: authmw.SubjectFromContext(r.Context()),
			Body:       f,
		})
		if err != nil {
			fail(w, err)
			return
		}
		if r.FormValue("process") == "true" {
			// a failed extraction is recorded on the document; the upload itself succeeded
			if pd, _ := svc.Process(r.Context(), d.ID); pd.ID != "" {
				d = pd
			}
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

// GET /documents?course_id=...
func ListDocumentsHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
		if courseID == "" {
			writeError(w, http.StatusBadRequest, "course_id required")
			return
		}
		docs, err := svc.ListByCourse(r.Context(), courseID)
		if err != nil {
			fail(w, err)
			return
		}
		if docs == nil {
			docs = []document.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// GET /documents/{documentID}
func GetDocumentHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Get(r.Context(), chi.URLParam(r, "documentID"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// POST /documents/{documentID}/process
// Extraction failures are returned with their status and also stored on the
// document.
func ProcessDocumentHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Reprocess(r.Context(), chi.URLParam(r, "documentID"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

type batchResult struct {
	Document document.Document `json:"document"`
	Error    string            `json:"error,omitempty"`
}

// POST /documents/process {"document_ids": [...]}
func ProcessDocumentsHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DocumentIDs []string `json:"document_ids"`
		}
		if err := decodeJSON(r, &req); err != nil || len(req.DocumentIDs) == 0 {
			writeError(w, http.StatusBadRequest, "document_ids required")
			return
		}
		docs, errs := svc.ProcessAll(r.Context(), req.DocumentIDs)
		out := make([]batchResult, len(docs))
		for i := range docs {
			out[i].Document = docs[i]
			if docs[i].ID == "" {
				out[i].Document.ID = req.DocumentIDs[i]
			}
			if errs[i] != nil {
				out[i].Error = errs[i].Error()
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /documents/{documentID}
func DeleteDocumentHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "documentID")); err != nil {
			fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /documents/{documentID}/file streams the stored upload.
func DownloadDocumentHandler(svc DocumentService, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Get(r.Context(), chi.URLParam(r, "documentID"))
		if err != nil {
			fail(w, err)
			return
		}
		rc, err := bs.Get(d.StorageKey)
		if err != nil {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	}
}
