package service

import (
	"fmt"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
)

// SystemInstructions restricts the generator to the supplied context.
const SystemInstructions = "You are a helpful assistant that answers questions based only on the provided context. " +
	"If the context doesn't contain information to answer the question, say so explicitly. " +
	"Always provide accurate information based solely on the context provided."

// BuildContext renders a bundle as numbered fragments, each under its citation header.
func BuildContext(bundle domain.ContextBundle) string {
	var b strings.Builder
	for i, f := range bundle.Fragments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, citationHeader(f.Chunk))
		b.WriteString(f.Chunk.Text)
	}
	return b.String()
}

func citationHeader(c domain.Chunk) string {
	return fmt.Sprintf("[Source: %s, Heading: %s, Chunk: %d]", c.SourcePath, c.Heading, c.ChunkIndex)
}
