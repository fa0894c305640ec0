package tokenizer

import "fmt"

// trie maps byte sequences to token ids.
type trie struct {
	children map[byte]*trie
	id       int32
	end      bool
}

// newTrie creates a new trie.
func newTrie() *trie {
	return &trie{children: map[byte]*trie{}}
}

// Insert inserts a token's bytes into the trie.
func (t *trie) Insert(word []byte, id int32) error {
	if len(word) == 0 {
		return fmt.Errorf("zero length word not supported")
	}
	cur := t
	for _, b := range word {
		next := cur.children[b]
		if next == nil {
			next = newTrie()
			cur.children[b] = next
		}
		cur = next
	}
	cur.end = true
	cur.id = id
	return nil
}

// Tokenize greedily splits input into the longest known tokens and appends
// their ids to dst.
func (t *trie) Tokenize(dst []int32, input []byte) ([]int32, error) {
	for len(input) != 0 {
		cur := t
		matched, id := 0, int32(-1)
		for i := 0; i < len(input); i++ {
			cur = cur.children[input[i]]
			if cur == nil {
				break
			}
			if cur.end {
				matched, id = i+1, cur.id
			}
		}
		if matched == 0 {
			return dst, fmt.Errorf("%w: byte %#x", ErrUnknownToken, input[0])
		}
		dst = append(dst, id)
		input = input[matched:]
	}
	return dst, nil
}
