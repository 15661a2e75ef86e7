package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/coursegrades/internal/courseware"
	"github.com/mind-engage/coursegrades/internal/storage"
)

// BlobCourses serves courses out of manifest blobs, one JSON export per
// course id.
type BlobCourses struct {
	Store storage.BlobStore
}

func (b *BlobCourses) Course(_ context.Context, courseID string) (*courseware.Course, error) {
	return courseware.LoadFromStore(b.Store, courseID)
}

// PUT /courses/{courseID}/manifest
// Validates the manifest body before storing, and rejects a body whose
// course_id disagrees with the URL.
func UploadManifestHandler(store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))
		if courseID == "" {
			http.Error(w, "courseID required", http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
		if err != nil {
			http.Error(w, "read manifest: "+err.Error(), http.StatusBadRequest)
			return
		}
		course, err := courseware.Load(bytes.NewReader(body))
		if err != nil {
			http.Error(w, "invalid manifest: "+err.Error(), http.StatusBadRequest)
			return
		}
		if course.ID != courseID {
			http.Error(w, "manifest course_id does not match URL", http.StatusBadRequest)
			return
		}
		key, err := store.Put(courseID+".json", bytes.NewReader(body))
		if err != nil {
			http.Error(w, "store manifest: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"course_id": course.ID, "key": key})
	}
}

// GET /courses/{courseID}/manifest
func GetManifestHandler(store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))
		rc, err := store.Get(courseID + ".json")
		if err != nil {
			http.Error(w, "manifest not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.Copy(w, rc)
	}
}
