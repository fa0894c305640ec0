package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding GPT-2 was trained with.
const DefaultEncoding = "r50k_base"

// Tiktoken adapts a tiktoken BPE encoding.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string

	mu    sync.Mutex
	known map[string]bool
}

// NewTiktoken loads the named encoding. Model names such as "gpt-4" are
// accepted as well and resolve to the encoding they use.
func NewTiktoken(name string) (*Tiktoken, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		var modelErr error
		enc, modelErr = tiktoken.EncodingForModel(name)
		if modelErr != nil {
			return nil, fmt.Errorf("loading tiktoken encoding %q: %w", name, err)
		}
	}
	return &Tiktoken{enc: enc, name: name, known: map[string]bool{}}, nil
}

// Name returns the encoding or model name the adapter was built from.
func (t *Tiktoken) Name() string {
	return t.name
}

// Encode encodes a string into a sequence of tokens.
func (t *Tiktoken) Encode(text string, allowedSpecial []string) ([]int32, error) {
	for _, marker := range allowedSpecial {
		if !t.isSpecial(marker) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSpecial, marker)
		}
	}
	raw := t.enc.Encode(text, allowedSpecial, nil)
	ids := make([]int32, len(raw))
	for i, id := range raw {
		ids[i] = int32(id)
	}
	return ids, nil
}

// Decode decodes a sequence of tokens into a string. Every encoding token
// decodes to at least one byte, so an id that decodes to nothing is not in
// the vocabulary.
func (t *Tiktoken) Decode(ids []int32) (string, error) {
	var out strings.Builder
	one := make([]int, 1)
	for _, id := range ids {
		if id < 0 {
			return "", fmt.Errorf("%w: %d", ErrInvalidToken, id)
		}
		one[0] = int(id)
		piece := t.enc.Decode(one)
		if piece == "" {
			return "", fmt.Errorf("%w: %d", ErrInvalidToken, id)
		}
		out.WriteString(piece)
	}
	return out.String(), nil
}

// isSpecial reports whether marker is one of the encoding's special tokens:
// allowed, it encodes to a single id that ordinary encoding does not produce.
func (t *Tiktoken) isSpecial(marker string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok, cached := t.known[marker]; cached {
		return ok
	}
	ok := false
	if marker != "" {
		allowed := t.enc.Encode(marker, []string{marker}, nil)
		plain := t.enc.Encode(marker, nil, nil)
		ok = len(allowed) == 1 && (len(plain) != 1 || plain[0] != allowed[0])
	}
	t.known[marker] = ok
	return ok
}
