package model

// Document is one retrievable chunk of source text. Content holds the
// cleaned form used for embedding, ExactData the verbatim pre-clean text
// kept for citation display.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	ChunkNumber int    `json:"chunk_number"`
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	FilePath    string `json:"file_path"`
	PageNumber  int    `json:"page_number"`
	ExactData   string `json:"exact_data"`
}

// SearchHit is a document returned by the vector index with its cosine
// similarity score.
type SearchHit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// ContextItem is one entry of the ordered context handed to the model.
// Its position in the context list is the join key for citation
// resolution, so the list must never be re-sorted once built.
type ContextItem struct {
	Text     string  `json:"text"`
	Exact    string  `json:"exact,omitempty"`
	Page     any     `json:"page"`
	FileID   string  `json:"file_id"`
	FileName string  `json:"file_name"`
	FilePath string  `json:"file_path"`
	Source   string  `json:"source"`
	Score    float64 `json:"score,omitempty"`
}
