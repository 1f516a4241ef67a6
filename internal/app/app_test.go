package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factrank/internal/model"
)

func offlineConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.Search.Providers = nil
	cfg.Cache.Enabled = false
	return cfg
}

func TestResolveCapabilities(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Retrieval.LLMExpansion = true

	tests := []struct {
		name string
		av   Available
		want model.Capabilities
	}{
		{
			name: "nothing remote",
			av:   Available{},
			want: model.Capabilities{Lexical: true, ApproximateDedup: true, RuleExpansion: true, Temporal: true},
		},
		{
			name: "mock generator does not expand",
			av:   Available{Generator: true},
			want: model.Capabilities{Lexical: true, ApproximateDedup: true, RuleExpansion: true, Temporal: true, Generation: true},
		},
		{
			name: "everything",
			av:   Available{WebSearch: true, Generator: true, RealLLM: true, Embedder: true, Reranker: true},
			want: model.Capabilities{
				WebSearch: true, Embeddings: true, CrossEncoder: true, Lexical: true, ApproximateDedup: true,
				LLMExpansion: true, RuleExpansion: true, Temporal: true, Generation: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveCapabilities(cfg, tt.av))
		})
	}
}

func TestResolveCapabilities_ConfigSwitchesOff(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Retrieval.Lexical = false
	cfg.Retrieval.RuleExpansion = false
	cfg.Retrieval.TemporalEnhancement = false
	cfg.Dedup.Approximate = false

	caps := ResolveCapabilities(cfg, Available{Generator: true, RealLLM: true})
	assert.False(t, caps.Lexical)
	assert.False(t, caps.RuleExpansion)
	assert.False(t, caps.Temporal)
	assert.False(t, caps.ApproximateDedup)
	assert.False(t, caps.LLMExpansion, "llm expansion is off in defaults")
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(offlineConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Generator)
	assert.False(t, a.Capabilities.WebSearch)
	assert.False(t, a.Capabilities.Generation)
	assert.True(t, a.Capabilities.Lexical)

	srv, err := a.Server()
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}

func TestServer_ServesExpanderAndConfig(t *testing.T) {
	cfg := offlineConfig()
	cfg.LLM.APIKey = "sk-app-secret"

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Expander)

	srv, err := a.Server()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/query/expand", strings.NewReader(`{"query":"what is RAG"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var expanded struct {
		Variants []string `json:"variants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &expanded))
	assert.Equal(t, a.Expander.Expand(context.Background(), "what is RAG"), expanded.Variants)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-app-secret")
	assert.Contains(t, w.Body.String(), `"api_key":"[redacted]"`)
}

func TestNew_DuckDuckGoNeedsNoKey(t *testing.T) {
	cfg := offlineConfig()
	cfg.Search.Providers = []string{"duckduckgo"}

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.Capabilities.WebSearch)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Config)
		want   error
	}{
		{"unknown search provider", func(c *model.Config) { c.Search.Providers = []string{"altavista"} }, model.ErrUnknownProvider},
		{"tavily without key", func(c *model.Config) { c.Search.Providers = []string{"tavily"} }, model.ErrInvalidConfig},
		{"unknown llm", func(c *model.Config) { c.LLM.Provider = "eliza" }, model.ErrUnknownProvider},
		{"unknown embedder", func(c *model.Config) { c.Embedding.Provider = "word2vec" }, model.ErrUnknownProvider},
		{"bad dedup threshold", func(c *model.Config) { c.Dedup.Threshold = 2 }, model.ErrInvalidConfig},
		{"bad store backend", func(c *model.Config) { c.Store.Backend = "neo4j" }, model.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApp_AnswerFromStoredFacts(t *testing.T) {
	cfg := offlineConfig()
	cfg.LLM.Provider = "mock"

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.Capabilities.Generation)
	assert.False(t, a.Capabilities.LLMExpansion)

	ctx := context.Background()
	require.NoError(t, a.Store.UpsertFact(ctx, model.Fact{
		ID: "k8s", Subject: "kubernetes", Predicate: "originated at", Object: "google",
		SourceURL: "https://kubernetes.io/docs", TruthWeight: model.Float64Ptr(0.8), TS: "2025-01-01",
	}))

	ans, err := a.Answerer.Answer(ctx, "where did kubernetes originate", 3)
	require.NoError(t, err)
	require.Len(t, ans.Facts, 1)
	assert.Equal(t, "k8s", ans.Facts[0].ID)
	assert.Contains(t, ans.Text, "Based on the 1 sources found")
}
