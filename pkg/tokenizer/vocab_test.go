package tokenizer

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTable is a tiny byte-level vocabulary; id 9 is the end-of-text marker.
var testTable = []string{
	"h", "e", "l", "o", " ", "he", "hello", " world", "!", EndOfText, "w", "r", "d",
}

func newTestVocab(t *testing.T) *Vocab {
	t.Helper()
	v, err := NewVocab(testTable, map[string]int32{EndOfText: 9})
	require.NoError(t, err)
	return v
}

func TestVocabEncode(t *testing.T) {
	v := newTestVocab(t)
	tests := []struct {
		name    string
		text    string
		allowed []string
		want    []int32
	}{
		{name: "empty", text: "", want: []int32{}},
		{name: "longest match", text: "hello", want: []int32{6}},
		{name: "prefix fallback", text: "hell", want: []int32{5, 2, 2}},
		{name: "two words", text: "hello world!", want: []int32{6, 7, 8}},
		{
			name:    "special passthrough",
			text:    "hello" + EndOfText + "he",
			allowed: DefaultSpecial,
			want:    []int32{6, 9, 5},
		},
		{
			name:    "special at edges",
			text:    EndOfText + "o" + EndOfText,
			allowed: DefaultSpecial,
			want:    []int32{9, 3, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Encode(tt.text, tt.allowed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVocabEncodeSpecialNotAllowed(t *testing.T) {
	v := newTestVocab(t)
	// "<" has no entry, so the marker cannot be spelled out as plain text.
	_, err := v.Encode("he"+EndOfText, nil)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestVocabEncodeUnknownSpecial(t *testing.T) {
	v := newTestVocab(t)
	_, err := v.Encode("hello", []string{"<|fim|>"})
	assert.ErrorIs(t, err, ErrUnknownSpecial)
}

func TestVocabDecode(t *testing.T) {
	v := newTestVocab(t)
	got, err := v.Decode([]int32{6, 9, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, "hello"+EndOfText+" world!", got)

	_, err = v.Decode([]int32{42})
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Decode([]int32{-1})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVocabRoundTrip(t *testing.T) {
	v := newTestVocab(t)
	text := "hello world!" + EndOfText + "hello"
	ids, err := v.Encode(text, DefaultSpecial)
	require.NoError(t, err)
	got, err := v.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func writeVocabFile(t *testing.T, version uint32, eot uint32, tokens []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	header := make([]uint32, vocabHeaderWords)
	header[0] = vocabMagic
	header[1] = version
	header[2] = uint32(len(tokens))
	header[3] = eot
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))
	for _, tok := range tokens {
		buf.WriteByte(byte(len(tok)))
		buf.WriteString(tok)
	}
	return buf.Bytes()
}

func TestReadVocab(t *testing.T) {
	t.Run("version 2", func(t *testing.T) {
		raw := writeVocabFile(t, 2, 9, testTable)
		v, err := ReadVocab(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, len(testTable), v.VocabSize())
		ids, err := v.Encode("hello"+EndOfText, DefaultSpecial)
		require.NoError(t, err)
		assert.Equal(t, []int32{6, 9}, ids)
	})
	t.Run("bad magic", func(t *testing.T) {
		raw := writeVocabFile(t, 1, 0, testTable)
		raw[0] ^= 0xff
		_, err := ReadVocab(bytes.NewReader(raw))
		assert.Error(t, err)
	})
	t.Run("unsupported version", func(t *testing.T) {
		raw := writeVocabFile(t, 7, 0, testTable)
		_, err := ReadVocab(bytes.NewReader(raw))
		assert.Error(t, err)
	})
	t.Run("bad eot", func(t *testing.T) {
		for _, eot := range []uint32{uint32(len(testTable)), 0xFFFFFFFF} {
			raw := writeVocabFile(t, 2, eot, testTable)
			assert.NotPanics(t, func() {
				_, err := ReadVocab(bytes.NewReader(raw))
				assert.Error(t, err, "eot %d", eot)
			})
		}
	})
	t.Run("oversized table", func(t *testing.T) {
		raw := writeVocabFile(t, 2, 0, testTable)
		binary.LittleEndian.PutUint32(raw[8:12], 0xFFFFFFFF)
		_, err := ReadVocab(bytes.NewReader(raw))
		assert.Error(t, err)
	})
	t.Run("truncated", func(t *testing.T) {
		raw := writeVocabFile(t, 2, 9, testTable)
		_, err := ReadVocab(bytes.NewReader(raw[:len(raw)-2]))
		assert.Error(t, err)
	})
	t.Run("version 1 without gpt2 sized table", func(t *testing.T) {
		raw := writeVocabFile(t, 1, 0, testTable)
		v, err := ReadVocab(bytes.NewReader(raw))
		require.NoError(t, err)
		_, err = v.Encode("hello", DefaultSpecial)
		assert.ErrorIs(t, err, ErrUnknownSpecial)
	})
}

func TestTrieTokenize(t *testing.T) {
	tr := newTrie()
	require.NoError(t, tr.Insert([]byte("a"), 0))
	require.NoError(t, tr.Insert([]byte("ab"), 1))
	require.NoError(t, tr.Insert([]byte("abc"), 2))
	assert.Error(t, tr.Insert(nil, 3))

	got, err := tr.Tokenize(nil, []byte("abcaba"))
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 1, 0}, got)

	_, err = tr.Tokenize(nil, []byte("abx"))
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestVocabInvalidUTF8RoundTrip(t *testing.T) {
	v, err := NewVocab([]string{"h", "e", "\xff", EndOfText}, map[string]int32{EndOfText: 3})
	require.NoError(t, err)
	text := "h\xffe" + EndOfText + "\xff"
	ids, err := v.Encode(text, DefaultSpecial)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2, 1, 3, 2}, ids)
	got, err := v.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestVocabSpecialPatternCached(t *testing.T) {
	v := newTestVocab(t)
	for i := 0; i < 3; i++ {
		_, err := v.Encode("hello"+EndOfText, []string{EndOfText, EndOfText})
		require.NoError(t, err)
	}
	assert.Len(t, v.patterns, 1)
	first, err := v.specialPattern(DefaultSpecial)
	require.NoError(t, err)
	again, err := v.specialPattern(DefaultSpecial)
	require.NoError(t, err)
	assert.Same(t, first, again)
}
