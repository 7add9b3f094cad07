package search

import "strings"

// FieldWeights controls how many times each field is repeated in an item's
// text blob before tokenization.
type FieldWeights struct {
	Title    int `json:"title"`
	Category int `json:"category"`
}

// DefaultFieldWeights biases the vocabulary towards titles and categories,
// since descriptions are often missing.
var DefaultFieldWeights = FieldWeights{Title: 5, Category: 3}

// Soup concatenates the weighted fields of an item into one blob
func Soup(item CatalogItem, w FieldWeights) string {
	var b strings.Builder
	repeat := func(s string, n int) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for i := 0; i < n; i++ {
			b.WriteString(s)
			b.WriteByte(' ')
		}
	}

	repeat(item.Title, w.Title)
	repeat(item.Category, w.Category)
	repeat(item.Provider, 1)
	// the raw descriptor has more terms than the level derived from it
	if item.Metadata != "" {
		repeat(item.Metadata, 1)
	} else {
		repeat(item.Level, 1)
	}
	repeat(item.Duration, 1)
	repeat(item.Description, 1)

	return b.String()
}

// TokenizeCorpus returns one token sequence per item, index-aligned with items
func TokenizeCorpus(items []CatalogItem, w FieldWeights, t *Tokenizer) [][]string {
	if t == nil {
		t = defaultTokenizer
	}
	docs := make([][]string, len(items))
	for i, item := range items {
		docs[i] = t.Tokenize(Soup(item, w))
	}
	return docs
}
