package model

type ChatRequest struct {
	UserQuery string   `json:"user_query"`
	FileIDs   []string `json:"file_ids"`
}

type MetaData struct {
	Text     string `json:"text"`
	Page     any    `json:"page"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}

type ChatResponse struct {
	Response   string     `json:"response"`
	Title      string     `json:"title,omitempty"`
	MetaData   []MetaData `json:"meta_data"`
	TokenUsage TokenUsage `json:"token_usage"`
}

type IngestRequest struct {
	FileID   string   `json:"file_id"`
	FileName string   `json:"file_name"`
	Format   string   `json:"format"`
	Pages    []string `json:"pages"`
	Payload  string   `json:"payload"`
}

type IngestResponse struct {
	FileID       string     `json:"file_id"`
	FileName     string     `json:"file_name"`
	FilePath     string     `json:"file_path"`
	ChunksStored int        `json:"chunks_stored"`
	TokenUsage   TokenUsage `json:"token_usage"`
}
