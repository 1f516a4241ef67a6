package model

import (
	"fmt"
	"strings"
)

// Config holds the complete factrank configuration
type Config struct {
	Retrieval    RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Dedup        DedupConfig       `yaml:"dedup" mapstructure:"dedup"`
	Reputation   ReputationConfig  `yaml:"reputation" mapstructure:"reputation"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Embedding    EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Rerank       RerankConfig      `yaml:"rerank" mapstructure:"rerank"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// RetrievalConfig controls the hybrid retriever
type RetrievalConfig struct {
	DefaultK            int     `yaml:"default_k" mapstructure:"default_k"`           // 0 lets the query analyzer decide
	SourceTimeout       int     `yaml:"source_timeout" mapstructure:"source_timeout"` // seconds, per source call
	MinStoreLimit       int     `yaml:"min_store_limit" mapstructure:"min_store_limit"`
	Lexical             bool    `yaml:"lexical" mapstructure:"lexical"`
	TemporalEnhancement bool    `yaml:"temporal_enhancement" mapstructure:"temporal_enhancement"`
	RuleExpansion       bool    `yaml:"rule_expansion" mapstructure:"rule_expansion"`
	LLMExpansion        bool    `yaml:"llm_expansion" mapstructure:"llm_expansion"`
	MaxVariants         int     `yaml:"max_variants" mapstructure:"max_variants"`
	PriorWeight         float64 `yaml:"prior_weight" mapstructure:"prior_weight"`
	LexicalWeight       float64 `yaml:"lexical_weight" mapstructure:"lexical_weight"`
	SemanticWeight      float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`
	PreliminaryMin      int     `yaml:"preliminary_min" mapstructure:"preliminary_min"`
}

// SearchConfig selects and configures web search providers
type SearchConfig struct {
	Providers    []string `yaml:"providers" mapstructure:"providers"` // duckduckgo, tavily, serpapi, google
	MaxResults   int      `yaml:"max_results" mapstructure:"max_results"`
	Timeout      int      `yaml:"timeout" mapstructure:"timeout"` // seconds
	TavilyAPIKey string   `yaml:"-" mapstructure:"tavily_api_key"`
	SerpAPIKey   string   `yaml:"-" mapstructure:"serpapi_key"`
	GoogleAPIKey string   `yaml:"-" mapstructure:"google_api_key"`
	GoogleCSEID  string   `yaml:"google_cse_id" mapstructure:"google_cse_id"`
}

// StoreConfig selects the fact store backend
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory, sqlite
	Path    string `yaml:"path" mapstructure:"path"`       // SQLite database path
}

// DedupConfig configures the content deduplicator
type DedupConfig struct {
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`     // Jaccard similarity for near duplicates
	NumPerm     int     `yaml:"num_perm" mapstructure:"num_perm"`       // MinHash permutations
	Approximate bool    `yaml:"approximate" mapstructure:"approximate"` // false = exact matching only
	ShingleSize int     `yaml:"shingle_size" mapstructure:"shingle_size"`
	MaxEntries  int     `yaml:"max_entries" mapstructure:"max_entries"` // 0 = unbounded
	Seed        int64   `yaml:"seed" mapstructure:"seed"`
}

// ReputationConfig extends the built-in domain reputation tables
type ReputationConfig struct {
	Overrides map[string]float64 `yaml:"overrides,omitempty" mapstructure:"overrides"`
	Patterns  []PatternScore     `yaml:"patterns,omitempty" mapstructure:"patterns"`
}

// PatternScore maps a host regex to a reputation score
type PatternScore struct {
	Pattern string  `yaml:"pattern" mapstructure:"pattern"`
	Score   float64 `yaml:"score" mapstructure:"score"`
}

// LLMConfig configures the answer generator and query expansion model
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, mock, ""
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"-" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// EmbeddingConfig configures the semantic similarity backend
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, ""
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
}

// RerankConfig configures the optional cross-encoder service
type RerankConfig struct {
	URL     string `yaml:"url" mapstructure:"url"` // Empty disables reranking
	Model   string `yaml:"model" mapstructure:"model"`
	Timeout int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// CacheConfig configures search result caching
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir       string `yaml:"dir" mapstructure:"dir"`
	MemoryTTL int    `yaml:"memory_ttl" mapstructure:"memory_ttl"` // seconds
	DiskTTL   int    `yaml:"disk_ttl" mapstructure:"disk_ttl"`     // seconds
}

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig is the per-domain outbound request budget
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ConcurrencyConfig bounds fan-out
type ConcurrencyConfig struct {
	SourceWorkers int `yaml:"source_workers" mapstructure:"source_workers"`
	IngestWorkers int `yaml:"ingest_workers" mapstructure:"ingest_workers"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr              string  `yaml:"addr" mapstructure:"addr"`
	Mode              string  `yaml:"mode" mapstructure:"mode"`                               // debug, release, test
	APIKey            string  `yaml:"-" mapstructure:"api_key"`                               // Required in X-API-Key when set
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per client IP, 0 disables
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	ShutdownTimeout   int     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns a working configuration with every optional
// remote capability switched off
func DefaultConfig() Config {
	return Config{
		Retrieval: RetrievalConfig{
			SourceTimeout:       8,
			MinStoreLimit:       16,
			Lexical:             true,
			TemporalEnhancement: true,
			RuleExpansion:       true,
			MaxVariants:         3,
			PriorWeight:         0.5,
			LexicalWeight:       0.3,
			SemanticWeight:      0.7,
			PreliminaryMin:      10,
		},
		Search: SearchConfig{
			Providers:  []string{"duckduckgo"},
			MaxResults: 10,
			Timeout:    10,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "~/.factrank/facts.db",
		},
		Dedup: DedupConfig{
			Threshold:   0.8,
			NumPerm:     128,
			Approximate: true,
			ShingleSize: 3,
			Seed:        1,
		},
		LLM: LLMConfig{
			Timeout:     30,
			MaxTokens:   1000,
			Temperature: 0.3,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Timeout:   10,
			CacheSize: 4096,
		},
		Rerank: RerankConfig{
			Timeout: 10,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "~/.factrank/cache",
			MemoryTTL: 900,
			DiskTTL:   86400,
		},
		HTTP: HTTPConfig{
			UserAgent:    "factrank/0.1 (+https://github.com/ppiankov/factrank)",
			Timeout:      15,
			MaxBodyBytes: 5 * 1024 * 1024,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Concurrency: ConcurrencyConfig{
			SourceWorkers: 8,
			IngestWorkers: 4,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			Mode:              "release",
			RequestsPerSecond: 2,
			Burst:             10,
			ShutdownTimeout:   10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate rejects configuration that no component could be built from
func (c Config) Validate() error {
	var problems []string

	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("dedup.threshold must be in (0, 1], got %v", c.Dedup.Threshold))
	}
	if c.Dedup.Approximate && c.Dedup.NumPerm <= 0 {
		problems = append(problems, "dedup.num_perm must be positive when approximate matching is enabled")
	}
	if c.Dedup.MaxEntries < 0 {
		problems = append(problems, "dedup.max_entries must not be negative")
	}
	if c.Retrieval.DefaultK < 0 {
		problems = append(problems, "retrieval.default_k must not be negative")
	}
	switch strings.ToLower(c.Store.Backend) {
	case "", "memory", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q is not one of memory, sqlite", c.Store.Backend))
	}
	for host, score := range c.Reputation.Overrides {
		if score < 0 || score > 1 {
			problems = append(problems, fmt.Sprintf("reputation override %s has score %v outside [0, 1]", host, score))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
