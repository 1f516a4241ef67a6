package model

// Capabilities records which optional subsystems are usable.
// It is resolved once at startup and passed to constructors; request
// handling only branches on these flags.
type Capabilities struct {
	WebSearch        bool `json:"web_search"`
	Embeddings       bool `json:"embeddings"`
	CrossEncoder     bool `json:"cross_encoder"`
	Lexical          bool `json:"lexical"`
	ApproximateDedup bool `json:"approximate_dedup"`
	LLMExpansion     bool `json:"llm_expansion"`
	RuleExpansion    bool `json:"rule_expansion"`
	Temporal         bool `json:"temporal"`
	Generation       bool `json:"generation"`
}
