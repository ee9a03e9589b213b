package domain

// Chunk is an immutable unit of retrievable book content. Its ID keys both the
// vector index and the chunk store.
type Chunk struct {
	ID         string
	Text       string
	SourcePath string
	Heading    string
	ChunkIndex int
}

// Citation returns the provenance of the chunk, copied verbatim.
func (c Chunk) Citation() Citation {
	return Citation{
		SourcePath: c.SourcePath,
		Heading:    c.Heading,
		ChunkIndex: c.ChunkIndex,
	}
}

// Citation points at the source of one context fragment.
type Citation struct {
	SourcePath string `json:"source_path"`
	Heading    string `json:"heading"`
	ChunkIndex int    `json:"chunk_index"`
}
