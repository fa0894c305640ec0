package tokenizer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

const (
	vocabMagic       = 20240328
	vocabHeaderWords = 256
	// maxVocabSize bounds the table a tokenizer file may declare.
	maxVocabSize = 1 << 24
)

// gpt2Split is the GPT-2 pre-tokenization pattern. The trailing-whitespace
// lookahead is why it needs regexp2 rather than RE2.
var gpt2Split = regexp2.MustCompile(
	`'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`,
	regexp2.None,
)

// Vocab is a tokenizer backed by a fixed token table, such as the
// tokenizer.bin files written by llm.c.
//
// Text is pre-tokenized with the GPT-2 split pattern and every piece is then
// matched greedily against the table, longest token first.
type Vocab struct {
	tokenTable  []string
	trie        *trie
	special     map[string]int32
	specialByID map[int32]string

	mu       sync.Mutex
	patterns map[string]*regexp2.Regexp
}

// NewVocab builds a Vocab from a token table indexed by id and a set of
// special markers. Table entries whose id belongs to a special marker are
// only produced when that marker is explicitly allowed.
func NewVocab(tokens []string, special map[string]int32) (*Vocab, error) {
	v := &Vocab{
		tokenTable:  tokens,
		trie:        newTrie(),
		special:     make(map[string]int32, len(special)),
		specialByID: make(map[int32]string, len(special)),
		patterns:    map[string]*regexp2.Regexp{},
	}
	for marker, id := range special {
		if marker == "" {
			return nil, fmt.Errorf("empty special marker for id %d", id)
		}
		v.special[marker] = id
		v.specialByID[id] = marker
	}
	for i, tok := range tokens {
		if _, ok := v.specialByID[int32(i)]; ok {
			continue
		}
		if err := v.trie.Insert([]byte(tok), int32(i)); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
	}
	return v, nil
}

// LoadVocab reads an llm.c tokenizer file from disk.
func LoadVocab(filename string) (*Vocab, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadVocab(f)
}

// ReadVocab reads an llm.c tokenizer file. Version 1 files use the GPT-2
// end-of-text id; version 2 files store it in the header.
func ReadVocab(r io.Reader) (*Vocab, error) {
	header := make([]uint32, vocabHeaderWords)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("reading tokenizer header: %w", err)
	}
	if header[0] != vocabMagic {
		return nil, fmt.Errorf("incorrect header for tokenizer")
	}
	if header[2] > maxVocabSize {
		return nil, fmt.Errorf("tokenizer declares %d tokens, at most %d supported", header[2], maxVocabSize)
	}
	var eot int32
	switch header[1] {
	case 1:
		eot = GPT2EOT
	case 2:
		if header[3] >= header[2] {
			return nil, fmt.Errorf("end-of-text id %d outside vocabulary of %d", header[3], header[2])
		}
		eot = int32(header[3])
	default:
		return nil, fmt.Errorf("unsupported tokenizer version %d", header[1])
	}
	table := make([]string, header[2])
	var length byte
	for i := range table {
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("reading token %d: %w", i, err)
		}
		if length == 0 {
			return nil, fmt.Errorf("token %d has zero length", i)
		}
		tokenBytes := make([]byte, length)
		if _, err := io.ReadFull(r, tokenBytes); err != nil {
			return nil, fmt.Errorf("reading token %d: %w", i, err)
		}
		table[i] = string(tokenBytes)
	}
	special := map[string]int32{}
	if int(eot) < len(table) {
		special[table[eot]] = eot
	}
	return NewVocab(table, special)
}

// VocabSize returns the number of entries in the token table.
func (v *Vocab) VocabSize() int {
	return len(v.tokenTable)
}

// Encode encodes a string into a sequence of tokens.
func (v *Vocab) Encode(text string, allowedSpecial []string) ([]int32, error) {
	ids := make([]int32, 0, len(text)/3+1)
	re, err := v.specialPattern(allowedSpecial)
	if err != nil {
		return nil, err
	}
	if re == nil {
		return v.encodeOrdinary(ids, text)
	}
	offsets := runeOffsets(text)
	last := 0
	m, err := re.FindStringMatch(text)
	for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
		start, end := offsets[m.Index], offsets[m.Index+m.Length]
		ids, err = v.encodeOrdinary(ids, text[last:start])
		if err != nil {
			return nil, err
		}
		ids = append(ids, v.special[text[start:end]])
		last = end
	}
	if err != nil {
		return nil, err
	}
	return v.encodeOrdinary(ids, text[last:])
}

// Decode decodes a sequence of tokens into a string.
func (v *Vocab) Decode(ids []int32) (string, error) {
	var out []byte
	for _, id := range ids {
		if marker, ok := v.specialByID[id]; ok {
			out = append(out, marker...)
			continue
		}
		if id < 0 || int(id) >= len(v.tokenTable) {
			return "", fmt.Errorf("%w: %d", ErrInvalidToken, id)
		}
		out = append(out, v.tokenTable[id]...)
	}
	return string(out), nil
}

func (v *Vocab) encodeOrdinary(dst []int32, text string) ([]int32, error) {
	if text == "" {
		return dst, nil
	}
	offsets := runeOffsets(text)
	m, err := gpt2Split.FindStringMatch(text)
	for ; m != nil && err == nil; m, err = gpt2Split.FindNextMatch(m) {
		piece := text[offsets[m.Index]:offsets[m.Index+m.Length]]
		dst, err = v.trie.Tokenize(dst, []byte(piece))
		if err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// runeOffsets maps the rune indexes regexp2 reports back to byte offsets in
// s. Invalid UTF-8 bytes count as one rune each, so slicing by these offsets
// keeps the input bytes exactly.
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

// specialPattern returns an alternation of the allowed markers, longest
// first so that overlapping markers resolve to the longer one. Patterns are
// compiled once per distinct marker set.
func (v *Vocab) specialPattern(allowed []string) (*regexp2.Regexp, error) {
	if len(allowed) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(allowed))
	markers := make([]string, 0, len(allowed))
	for _, marker := range allowed {
		if _, ok := v.special[marker]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSpecial, marker)
		}
		if _, dup := seen[marker]; dup {
			continue
		}
		seen[marker] = struct{}{}
		markers = append(markers, marker)
	}
	sort.Slice(markers, func(i, j int) bool {
		if len(markers[i]) != len(markers[j]) {
			return len(markers[i]) > len(markers[j])
		}
		return markers[i] < markers[j]
	})
	key := strings.Join(markers, "\x00")

	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[key]; ok {
		return re, nil
	}
	escaped := make([]string, len(markers))
	for i, marker := range markers {
		escaped[i] = regexp2.Escape(marker)
	}
	re, err := regexp2.Compile(strings.Join(escaped, "|"), regexp2.None)
	if err != nil {
		return nil, err
	}
	v.patterns[key] = re
	return re, nil
}
