package swagger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func serve(mux *http.ServeMux, method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestDocumentation(t *testing.T) {
	Convey("Given the documentation routes on a mux", t, func() {
		mux := http.NewServeMux()
		Register(mux)

		Convey("When the OpenAPI document is fetched", func() {
			w := serve(mux, http.MethodGet, "/openapi.yaml")

			Convey("Then it should describe every public route", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
				for _, path := range []string{"/scoreboard/top", "/scoreboard/new", "/score/new", "/healthz", "/stats", "/metrics"} {
					So(w.Body.String(), ShouldContainSubstring, path+":")
				}
			})

			Convey("Then a revalidation with its ETag should return 304", func() {
				tag := w.Header().Get("ETag")
				So(tag, ShouldNotBeEmpty)

				again := serve(mux, http.MethodGet, "/openapi.yaml", "If-None-Match", tag)
				So(again.Code, ShouldEqual, http.StatusNotModified)
				So(again.Body.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the docs page is fetched", func() {
			w := serve(mux, http.MethodGet, "/api-docs")

			Convey("Then it should point ReDoc at the document", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
				So(w.Body.String(), ShouldContainSubstring, `spec-url="/openapi.yaml"`)
			})
		})

		Convey("When a write is attempted", func() {
			w := serve(mux, http.MethodPost, "/openapi.yaml")

			Convey("Then it should be refused", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
			})
		})
	})
}

func TestRegisterNilMux(t *testing.T) {
	Convey("Registering on a nil mux should panic", t, func() {
		So(func() { Register(nil) }, ShouldPanic)
	})
}
