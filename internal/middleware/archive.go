package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/aoi01/fridgesnap/internal/compress"
)

// ArchiveTypeMiddleware replaces the request body, a zip or tar archive, with
// the first CSV file inside it. The archive type comes from the archiveType
// query parameter and defaults to zip.
func ArchiveTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		archiveType := r.URL.Query().Get("archiveType")
		if archiveType != "tar" && archiveType != "zip" {
			archiveType = "zip"
		}

		body := http.MaxBytesReader(w, r.Body, compress.MaxArchiveBytes)
		cr, err := compress.OpenCSV(archiveType, body)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "ERR_VALIDATION",
				"message": "cannot read " + archiveType + " archive: " + err.Error(),
			})
			return
		}
		defer cr.Close()

		r.Body = cr
		next.ServeHTTP(w, r)
	})
}
