package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		for _, tc := range []struct {
			a, b string
			want int
		}{
			{"0.39.0", "0.38.2", 1},
			{"3.0.20", "3.0.21", -1},
			{"v1.2.3", "1.2.3", 0},
			{"0.39", "0.39.0", 0},
			{"3.0.21-rc1", "3.0.20", 1},
		} {
			got, err := Compare(tc.a, tc.b)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, tc.want)
		}

		for _, bad := range []string{"latest", "1..2", "1.2.3.4", ""} {
			_, err := Compare(bad, "1.0.0")
			So(err, ShouldNotBeNil)
		}
	})
}

func TestFetchLatest(t *testing.T) {
	Convey("Given a release endpoint", t, func() {
		var body string
		status := http.StatusOK
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		defer server.Close()

		Convey("The tag prefix should be stripped", func() {
			body = `{"tag_name": "v0.4.1"}`
			v, err := fetchLatest(context.Background(), server.Client(), server.URL)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "0.4.1")
		})

		Convey("An empty tag should fail", func() {
			body = `{}`
			_, err := fetchLatest(context.Background(), server.Client(), server.URL)
			So(err, ShouldNotBeNil)
		})

		Convey("A non-200 answer should fail", func() {
			status = http.StatusForbidden
			_, err := fetchLatest(context.Background(), server.Client(), server.URL)
			So(err, ShouldNotBeNil)
		})
	})
}
