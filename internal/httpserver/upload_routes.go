package httpserver

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chatserver/internal/config"
	"chatserver/internal/domain"
)

const maxUploadBytes = 50 << 20 // 50MB

// UploadRoutes returns a sub-router mounted at /api/uploads.
// POST / accepts a multipart form with a "file" field and returns an
// attachment descriptor the client embeds in a message; GET /{filename}
// serves stored files.
func UploadRoutes(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "failed to parse multipart form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := filepath.Ext(header.Filename)
		if ext == "" {
			http.Error(w, "file must have an extension", http.StatusBadRequest)
			return
		}

		filename := strconv.FormatInt(time.Now().UnixNano(), 10) + ext
		destPath := filepath.Join(cfg.UploadDir, filename)

		out, err := os.Create(destPath)
		if err != nil {
			http.Error(w, "could not create file", http.StatusInternalServerError)
			return
		}
		defer out.Close()

		size, err := io.Copy(out, file)
		if err != nil {
			http.Error(w, "could not save file", http.StatusInternalServerError)
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = mime.TypeByExtension(ext)
		}

		writeJSON(w, http.StatusCreated, domain.Attachment{
			Filename:     filename,
			OriginalName: header.Filename,
			MimeType:     mimeType,
			Size:         size,
			URL:          "/api/uploads/" + filename,
			Kind:         attachmentKind(mimeType),
		})
	})

	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			http.Error(w, "missing filename", http.StatusBadRequest)
			return
		}
		// Prevent path traversal by rejecting anything with separators.
		if filepath.Base(filename) != filename {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.UploadDir, filename))
	})

	return r
}

func attachmentKind(mimeType string) domain.AttachmentKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return domain.AttachmentImage
	case strings.HasPrefix(mimeType, "video/"):
		return domain.AttachmentVideo
	default:
		return domain.AttachmentFile
	}
}
