package model

import "fmt"

// ChunkConfig controls the fixed-size window chunker. Overlap must be
// strictly smaller than MaxChunkSize, otherwise the window start would
// never advance.
type ChunkConfig struct {
	MaxChunkSize int `json:"max_chunk_size"`
	Overlap      int `json:"overlap"`
}

// DefaultChunkConfig returns the deployment defaults (500 char windows,
// 50 char overlap).
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize: 500,
		Overlap:      50,
	}
}

// Validate rejects window configurations that would not terminate.
func (c ChunkConfig) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.MaxChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("overlap %d must be smaller than max chunk size %d", c.Overlap, c.MaxChunkSize)
	}
	return nil
}

// SearchConfig controls hybrid search and context aggregation.
type SearchConfig struct {
	Limit           int  `json:"limit"`
	IncludeEntities bool `json:"include_entities"`
}

// DefaultSearchConfig returns a sensible default configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Limit:           5,
		IncludeEntities: true,
	}
}
