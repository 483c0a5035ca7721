package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// Dim is the fixed dimensionality of every produced vector.
const Dim = 384

// Embedder turns text into a fixed-dimension vector by mean-pooling
// deterministic per-token vectors. The token vectors come from a hash-seeded
// generator, so equal texts always embed identically and similar texts
// (sharing tokens) land near each other under cosine similarity.
type Embedder struct{}

// New creates an Embedder.
func New() *Embedder {
	return &Embedder{}
}

// Embed returns the mean-pooled vector for text. An input that produces no
// tokens yields the all-zero vector of length Dim, not an error.
func (e *Embedder) Embed(text string) []float32 {
	vec := make([]float32, Dim)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		tv := tokenVector(tok)
		for j := range vec {
			vec[j] += tv[j]
		}
	}

	n := float32(len(tokens))
	for j := range vec {
		vec[j] /= n
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// tokenVector derives a deterministic pseudo-embedding for one token using
// an FNV-seeded xorshift generator, with components in (-1, 1).
func tokenVector(token string) [Dim]float32 {
	h := fnv.New64a()
	h.Write([]byte(token))
	state := h.Sum64()
	if state == 0 {
		state = 1
	}

	var vec [Dim]float32
	for j := range vec {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[j] = float32(int64(state)) / float32(1<<63)
	}
	return vec
}
