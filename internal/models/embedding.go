package models

// Record is a chunk with its embedding, ready to be written to a vector store
type Record struct {
	ID        string
	Chunk     Chunk
	Embedding []float32
}

// Hit is one similarity search result. Embedding is kept for diversity re-ranking.
type Hit struct {
	ID         string
	Chunk      Chunk
	Embedding  []float32
	Similarity float32
}

// IndexStats describes the current collection
type IndexStats struct {
	TotalDocuments int    `json:"total_documents"`
	CollectionName string `json:"collection_name"`
	Backend        string `json:"backend"`
}
