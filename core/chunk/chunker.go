// Package chunk splits token sequences into bounded chunks.
// The corpus exporter uses it to keep long records under a model's
// maximum sequence length. Chunk overlap is 0.
package chunk

// Chunker splits token slices into fixed-size chunks.
type Chunker struct {
	Size int // number of tokens per chunk; <= 0 disables splitting
}

// New creates a Chunker with the given chunk size.
func New(size int) *Chunker {
	return &Chunker{Size: size}
}

// Split returns tokens in consecutive slices of at most Size tokens.
// With splitting disabled the whole input is returned as one chunk.
func (c *Chunker) Split(tokens []string) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	if c.Size <= 0 {
		return [][]string{tokens}
	}

	var chunks [][]string
	for i := 0; i < len(tokens); i += c.Size {
		end := i + c.Size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
