package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/factrank/internal/model"
)

func TestNew_DisabledWithoutURL(t *testing.T) {
	if c := New(model.RerankConfig{}); c != nil {
		t.Errorf("New() = %v, want nil", c)
	}
}

func TestClient_Rerank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Query != "what is go" || len(req.Documents) != 3 {
			t.Errorf("Unexpected request: %+v", req)
		}
		if req.Model != "ms-marco" {
			t.Errorf("Expected model ms-marco, got %s", req.Model)
		}

		_, _ = w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.9},
			{"index":0,"relevance_score":0.1},
			{"index":1,"relevance_score":0.5}
		]}`))
	}))
	defer server.Close()

	c := New(model.RerankConfig{URL: server.URL, Model: "ms-marco", Timeout: 5})
	scores, err := c.Rerank(context.Background(), "what is go", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	want := []float64{0.1, 0.5, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestClient_RerankErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"bad json", http.StatusOK, "{"},
		{"missing scores", http.StatusOK, `{"results":[{"index":0,"relevance_score":1}]}`},
		{"bad index", http.StatusOK, `{"results":[{"index":5,"relevance_score":1},{"index":0,"relevance_score":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(model.RerankConfig{URL: server.URL})
			if _, err := c.Rerank(context.Background(), "q", []string{"a", "b"}); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestClient_RerankEmpty(t *testing.T) {
	c := New(model.RerankConfig{URL: "http://127.0.0.1:0"})
	scores, err := c.Rerank(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Errorf("Rerank(nil) = %v, %v; want nil, nil", scores, err)
	}
}
