package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

const testDim = 64

// bagOfWordsEmbedder hashes lowercase words into a normalized count vector.
// Texts sharing words get a high cosine similarity.
type bagOfWordsEmbedder struct {
	dim   int
	calls []string
	err   error
}

func (e *bagOfWordsEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}

	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= norm
	}
	return vec, nil
}

// fixedEmbedder always returns vec.
type fixedEmbedder struct {
	vec []float32
}

func (e fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, nil
}

// queryAwareEmbedder records which method was used.
type queryAwareEmbedder struct {
	fixedEmbedder
	queried bool
}

func (e *queryAwareEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.queried = true
	return e.Embed(ctx, text)
}

// fakeStore records batches and serves canned matches.
type fakeStore struct {
	batches  [][]vectorstore.Record
	putErr   error
	matches  []vectorstore.Match
	queryErr error
	lastTopK int
	lastVec  vectorstore.QueryVector
}

func (s *fakeStore) PutBatch(_ context.Context, records []vectorstore.Record) error {
	s.batches = append(s.batches, records)
	return s.putErr
}

func (s *fakeStore) Query(_ context.Context, vector vectorstore.QueryVector, topK int) ([]vectorstore.Match, error) {
	s.lastTopK = topK
	s.lastVec = vector
	return s.matches, s.queryErr
}

var errBoom = errors.New("boom")
