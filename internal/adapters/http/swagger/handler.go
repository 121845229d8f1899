// Package swagger serves the OpenAPI description of the scoreboard API.
package swagger

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"net/http"
)

// OpenAPI is the embedded OpenAPI 3 document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// etag is a strong validator for OpenAPI; the document only changes with the binary.
var etag = func() string {
	sum := sha256.Sum256(OpenAPI)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

// Register attaches the documentation routes to mux:
//
//	GET /api-docs      ReDoc page
//	GET /openapi.yaml  embedded document, revalidated by ETag
func Register(mux *http.ServeMux) {
	if mux == nil {
		panic("swagger: nil mux")
	}
	mux.HandleFunc("/api-docs", readOnly(serveDocs))
	mux.HandleFunc("/openapi.yaml", readOnly(serveDocument))
}

func serveDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

func serveDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}

func readOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Scoreboard API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc spec-url="/openapi.yaml"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
  </body>
</html>`
