package model

// IngestResult summarizes ingesting one page into the fact store
type IngestResult struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Paragraphs int    `json:"paragraphs"` // Candidate paragraphs extracted
	Added      int    `json:"added"`
	Duplicates int    `json:"duplicates"`
}

// IngestStats aggregates ingest results across a batch
type IngestStats struct {
	Pages      int `json:"pages"`
	Failed     int `json:"failed"`
	Paragraphs int `json:"paragraphs"`
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
}

// Record folds one page result into the totals
func (s *IngestStats) Record(r *IngestResult, err error) {
	if err != nil || r == nil {
		s.Failed++
		return
	}
	s.Pages++
	s.Paragraphs += r.Paragraphs
	s.Added += r.Added
	s.Duplicates += r.Duplicates
}
