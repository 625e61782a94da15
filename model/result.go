package model

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepSkipped StepStatus = "skipped"
	StepFailure StepStatus = "failure"
)

// ProcessStep records the outcome of one step of document processing.
type ProcessStep struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// ProcessResult is the aggregate outcome of processDocument. Success is
// false only if storing or chunking failed; a skipped embedding step is a
// degraded but successful run.
type ProcessResult struct {
	DocumentID     string        `json:"document_id"`
	Steps          []ProcessStep `json:"steps"`
	Success        bool          `json:"success"`
	ChunksCreated  int           `json:"chunks_created"`
	EmbeddedChunks int           `json:"embedded_chunks"`
}

// EntityResult is the per-entity outcome of a batch create.
type EntityResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RelationResult is the per-relation outcome of a batch create.
type RelationResult struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Type    string `json:"relationType"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchDeleteResult is the uniform shape for batch deletions. Deleted,
// NotFound and Errors are disjoint; the batch as a whole is never atomic.
type BatchDeleteResult struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"notFound"`
	Errors   []string `json:"errors"`
}

// ObservationAddition reports how many observations were added to one entity.
type ObservationAddition struct {
	Entity     string `json:"entity"`
	AddedCount int    `json:"addedCount"`
}

// AddObservationsResult is the aggregate outcome of addObservations.
type AddObservationsResult struct {
	Added    []ObservationAddition `json:"added"`
	NotFound []string              `json:"notFound"`
	Errors   []string              `json:"errors"`
}

// ObservationRemoval reports how many observations were removed from one entity.
type ObservationRemoval struct {
	Entity       string `json:"entity"`
	RemovedCount int    `json:"removedCount"`
}

// DeleteObservationsResult is the aggregate outcome of deleteObservations.
type DeleteObservationsResult struct {
	Deleted  []ObservationRemoval `json:"deleted"`
	NotFound []string             `json:"notFound"`
	Errors   []string             `json:"errors"`
}

// SearchResult is a ranked document returned by hybrid search.
type SearchResult struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
	Method   string    `json:"method"`
}

// DetailedContext composes document, entity and relationship results for a
// query. All three lists may be empty; that is a valid response.
type DetailedContext struct {
	Query         string          `json:"query"`
	Documents     []*SearchResult `json:"documents"`
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}

// KnowledgeGraph is the full export of all entities and relationships.
type KnowledgeGraph struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}

// GraphStats summarizes the stored graph and corpus.
type GraphStats struct {
	Entities       int            `json:"entities"`
	Relationships  int            `json:"relationships"`
	Documents      int            `json:"documents"`
	Chunks         int            `json:"chunks"`
	EmbeddedChunks int            `json:"embedded_chunks"`
	EntityTypes    map[string]int `json:"entity_types"`
}
