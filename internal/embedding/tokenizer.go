package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token IDs.
const (
	padToken = 0
	clsToken = 101
	sepToken = 102
	// hashed word IDs land in [firstWordToken, vocabSize) so they never collide
	// with the special tokens above
	firstWordToken = 1000
	vocabSize      = 30522
)

// Tokenizer produces the three BERT input tensors for one text.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordTokenizer hashes lowercase words into the model vocabulary range. It has no
// vocabulary file, so it only suits models fine-tuned on the same hashing.
type WordTokenizer struct{}

// Tokenize returns [CLS] w1 ... wn [SEP] followed by padding, truncated to maxTokens.
func (WordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0], attentionMask[0] = clsToken, 1
	pos := 1
	for _, w := range Words(text) {
		if pos == maxTokens-1 {
			break
		}
		inputIDs[pos], attentionMask[pos] = wordID(w), 1
		pos++
	}
	inputIDs[pos], attentionMask[pos] = sepToken, 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// Words lowercases text and splits it on anything that is not a letter or digit,
// so "Section 66C." yields ["section", "66c"].
func Words(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil
	}
	return words
}

func wordID(w string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(w))
	return firstWordToken + int64(h.Sum32()%(vocabSize-firstWordToken))
}
