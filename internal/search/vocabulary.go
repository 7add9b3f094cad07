package search

import (
	"math"
	"sort"
)

// DefaultMinDocFreq drops tokens seen in fewer distinct items than this
const DefaultMinDocFreq = 2

// Fit builds the vocabulary and IDF weights from the tokenized corpus.
// Column indices follow ascending token order so two fits over the same
// corpus agree exactly.
func (v *TFIDFVectorizer) Fit(docs [][]string) error {
	if len(docs) == 0 {
		return &BuildError{Reason: "no documents to fit", Err: ErrEmptyCorpus}
	}
	minDF := v.MinDocFreq
	if minDF <= 0 {
		minDF = DefaultMinDocFreq
	}

	// 1. Document frequency: distinct items containing each token
	docCounts := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, token := range doc {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			docCounts[token]++
		}
	}

	// 2. Filter rare tokens and fix the enumeration order
	terms := make([]string, 0, len(docCounts))
	for token, count := range docCounts {
		if count >= minDF {
			terms = append(terms, token)
		}
	}
	sort.Strings(terms)

	// 3. Index and IDF
	n := float64(len(docs))
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, token := range terms {
		vocab[token] = i
		idf[i] = math.Log(n / (float64(docCounts[token]) + 1))
	}

	v.Vocabulary = vocab
	v.Terms = terms
	v.IDF = idf
	return nil
}

// Size returns the number of vocabulary columns
func (v *TFIDFVectorizer) Size() int {
	return len(v.Terms)
}

// Column returns the column index of a token
func (v *TFIDFVectorizer) Column(token string) (int, bool) {
	idx, ok := v.Vocabulary[token]
	return idx, ok
}
