package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	router := gin.New()
	router.Use(requestLogger(zerolog.New(&buf)))
	router.GET("/ok", func(c *gin.Context) {
		if c.GetString("request_id") == "" {
			t.Error("request_id not set on context")
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/missing", func(c *gin.Context) { apiError(c, http.StatusNotFound, "nope") })

	cases := []struct {
		path      string
		reqID     string
		wantLevel string
		wantCode  int
	}{
		{"/ok", "", "info", http.StatusNoContent},
		{"/ok", "abc-123", "info", http.StatusNoContent},
		{"/missing", "", "warn", http.StatusNotFound},
	}
	for _, tc := range cases {
		buf.Reset()
		req := httptest.NewRequest("GET", tc.path, nil)
		if tc.reqID != "" {
			req.Header.Set(requestIDHeader, tc.reqID)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("%s: log line not JSON: %v (%q)", tc.path, err, buf.String())
		}
		if entry["level"] != tc.wantLevel {
			t.Errorf("%s: level = %v, want %s", tc.path, entry["level"], tc.wantLevel)
		}
		if int(entry["status"].(float64)) != tc.wantCode || entry["path"] != tc.path {
			t.Errorf("%s: entry = %v", tc.path, entry)
		}
		rid := w.Header().Get(requestIDHeader)
		if rid == "" || entry["request_id"] != rid {
			t.Errorf("%s: response id %q, logged %v", tc.path, rid, entry["request_id"])
		}
		if tc.reqID != "" && rid != tc.reqID {
			t.Errorf("incoming id not reused: %q", rid)
		}
	}
}
