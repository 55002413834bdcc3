package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/util"
)

const defaultMaxBodySize = 1024 * 1024 // 1MB

// BodySizeLimit restricts request bodies to maxSize (e.g. "64KB", "1MB").
// A declared Content-Length over the limit is refused with 413 before the
// handler runs; undeclared bodies are cut off by http.MaxBytesReader.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				appErr := apperrors.InvalidInput("body", "request body too large")
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_ = json.NewEncoder(w).Encode(appErr.ToResponse())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
