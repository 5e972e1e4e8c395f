package viewer

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRouter(t *testing.T) {
	Convey("Given a router built with a no-op ws handler", t, func() {
		called := false
		router := NewRouter(func(w http.ResponseWriter, r *http.Request) { called = true })

		Convey("GET /healthz returns 200 without touching the ws handler", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(called, ShouldBeFalse)
		})

		Convey("GET /ws reaches the registered handler", func() {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			So(called, ShouldBeTrue)
		})
	})
}
