package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/go-petr/sca-bank/pkg/web"
)

func TestHealthDatabaseUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	conn, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open returned error: %v", err)
	}
	conn.Close()

	engine := gin.New()
	s := &Server{DB: conn, Engine: engine}
	engine.GET("/health", s.Health)

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	if err != nil {
		t.Fatalf("http.NewRequest returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	s.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health status = %d, want %d", recorder.Code, http.StatusServiceUnavailable)
	}

	var got web.Response
	if err := json.NewDecoder(recorder.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if got.Error != ErrDatabaseUnavailable.Error() {
		t.Errorf("GET /health error = %q, want %q", got.Error, ErrDatabaseUnavailable)
	}
}
