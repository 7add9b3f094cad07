package search

import (
	"math"
)

// Vectorizer turns token sequences into vectors
type Vectorizer interface {
	Fit(docs [][]string) error
	Transform(tokens []string) []float64
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
// over a fixed vocabulary. After Fit it is read-only.
type TFIDFVectorizer struct {
	Vocabulary map[string]int
	Terms      []string
	IDF        []float64
	MinDocFreq int
}

func NewTFIDFVectorizer(minDocFreq int) *TFIDFVectorizer {
	return &TFIDFVectorizer{
		Vocabulary: make(map[string]int),
		MinDocFreq: minDocFreq,
	}
}

// Transform converts tokens to a unit-length TF-IDF vector. Tokens outside
// the vocabulary are dropped; a document with none left yields the zero vector.
func (v *TFIDFVectorizer) Transform(tokens []string) []float64 {
	vector := make([]float64, len(v.Terms))
	if len(tokens) == 0 {
		return vector
	}

	counts := make(map[string]int)
	for _, token := range tokens {
		counts[token]++
	}

	total := float64(len(tokens))
	for token, count := range counts {
		if idx, ok := v.Vocabulary[token]; ok {
			vector[idx] = (float64(count) / total) * v.IDF[idx]
		}
	}

	Normalize(vector)
	return vector
}

// BuildTable vectorizes every document into one row per document
func (v *TFIDFVectorizer) BuildTable(docs [][]string) [][]float64 {
	table := make([][]float64, len(docs))
	for i, doc := range docs {
		table[i] = v.Transform(doc)
	}
	return table
}

// Normalize scales vec to unit Euclidean length in place. A zero vector is
// left untouched.
func Normalize(vec []float64) {
	norm := Norm(vec)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

// Norm returns the Euclidean length of vec
func Norm(vec []float64) float64 {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// IsZero reports whether every component of vec is zero
func IsZero(vec []float64) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dot returns the dot product of two vectors of equal length. On unit
// vectors this is the cosine similarity.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
