package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/linguagate/linguagate/internal/rbac"
	"github.com/linguagate/linguagate/internal/storage"
)

// MountAssets serves question media (audio prompts, images). Uploads are
// admin-only; the returned key is what authors place in Question.MediaRef.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	// POST /assets/{questionID}  (multipart "file")
	r.With(rbac.Require("asset:write")).Post("/{questionID}", func(w http.ResponseWriter, r *http.Request) {
		questionID := chi.URLParam(r, "questionID")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := "media.bin"
		if hdr != nil && hdr.Filename != "" {
			name = hdr.Filename
		}
		key := "questions/" + questionID + "/" + name
		if _, err := bs.Put(key, f); err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"key": key})
	})

	// GET /assets/*  -> returns the blob at whatever follows /assets/
	r.With(rbac.Require("asset:view")).Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		key = strings.TrimPrefix(key, "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found: "+err.Error(), http.StatusNotFound)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
