package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashEncoder is a deterministic feature-hashing encoder. Every lowercased
// word and adjacent word pair is hashed into one of dims buckets. It needs no
// model download, which makes it the offline and test encoder.
type HashEncoder struct {
	dims int
}

func NewHashEncoder(dims int) *HashEncoder {
	return &HashEncoder{dims: dims}
}

// HashLoader returns a Loader for a HashEncoder of the given size.
func HashLoader(dims int) Loader {
	return func(_ context.Context) (Encoder, error) {
		if dims <= 0 {
			return nil, fmt.Errorf("hash encoder dimensions must be positive, got %d", dims)
		}
		return NewHashEncoder(dims), nil
	}
}

func (h *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			tokens = []string{trimmed}
		}
	}

	vec := make([]float32, h.dims)
	for i, tok := range tokens {
		vec[h.bucket(tok)] += 1
		if i > 0 {
			vec[h.bucket(tokens[i-1]+" "+tok)] += 0.5
		}
	}
	return vec, nil
}

func (h *HashEncoder) bucket(feature string) int {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	return int(f.Sum64() % uint64(h.dims))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
