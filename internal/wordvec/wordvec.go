// Package wordvec loads the static token-to-vector table the vectoriser
// averages over. The file format is the whitespace-delimited GloVe/word2vec
// text convention: one token per line, followed by its vector components.
package wordvec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Table is an in-memory token -> vector lookup.
type Table struct {
	dim     int
	vectors map[string]vectormath.Vector
}

// Dim returns the table's fixed vector dimension.
func (t *Table) Dim() int { return t.dim }

// Lookup returns a token's vector and whether it was found.
func (t *Table) Lookup(token string) (vectormath.Vector, bool) {
	v, ok := t.vectors[token]
	return v, ok
}

// Len returns the number of tokens loaded.
func (t *Table) Len() int { return len(t.vectors) }

// Load reads a word-vector table from path. Every row must carry exactly
// dim components; a malformed row is a construction-time configuration
// error, not a runtime data error, since an embeddings file is operator
// configuration rather than run input.
func Load(path string, dim int) (*Table, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: embeddings dimension must be positive, got %d", core.ErrConfigInvalid, dim)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening embeddings file: %v", core.ErrConfigInvalid, err)
	}
	defer f.Close()

	table := &Table{dim: dim, vectors: make(map[string]vectormath.Vector)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("%w: embeddings file line %d: expected %d components, got %d",
				core.ErrConfigInvalid, lineNo, dim, len(fields)-1)
		}
		vec := make(vectormath.Vector, dim)
		for i, tok := range fields[1:] {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: embeddings file line %d: %v", core.ErrConfigInvalid, lineNo, err)
			}
			vec[i] = f
		}
		table.vectors[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: reading embeddings file: %v", core.ErrConfigInvalid, err)
	}
	return table, nil
}
