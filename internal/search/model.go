package search

import (
	"fmt"
)

const (
	// DefaultLambda is the weight of the popularity prior in the hybrid score
	DefaultLambda = 0.3

	// DefaultScoreFloor drops search hits whose hybrid score is below it
	DefaultScoreFloor = 0.05
)

// Options configures a build
type Options struct {
	Lambda     float64      `json:"lambda"`
	ScoreFloor float64      `json:"score_floor"`
	MinDocFreq int          `json:"min_doc_freq"`
	Weights    FieldWeights `json:"weights"`

	// Stopwords replaces the default stopword set when non-nil
	Stopwords []string `json:"stopwords"`
}

// DefaultOptions returns the reference configuration
func DefaultOptions() Options {
	return Options{
		Lambda:     DefaultLambda,
		ScoreFloor: DefaultScoreFloor,
		MinDocFreq: DefaultMinDocFreq,
		Weights:    DefaultFieldWeights,
	}
}

// Lambda and ScoreFloor are taken as given, zero is a meaningful value for both.
func (o Options) withDefaults() Options {
	if o.Weights == (FieldWeights{}) {
		o.Weights = DefaultFieldWeights
	}
	if o.MinDocFreq <= 0 {
		o.MinDocFreq = DefaultMinDocFreq
	}
	return o
}

// Model is a built engine: the corpus, its vocabulary and IDF weights, and
// the item-vector table. It has no mutators, so one value can be shared by
// any number of goroutines.
type Model struct {
	opts       Options
	items      []CatalogItem
	index      map[string]int
	tokenizer  *Tokenizer
	vectorizer *TFIDFVectorizer
	table      [][]float64
}

// Build runs the full pipeline over items. The slice is copied, so later
// changes by the caller do not reach the model.
func Build(items []CatalogItem, opts Options) (*Model, error) {
	if len(items) == 0 {
		return nil, &BuildError{Reason: "no catalog items", Err: ErrEmptyCorpus}
	}
	opts = opts.withDefaults()

	corpus, index, err := prepareCorpus(items)
	if err != nil {
		return nil, err
	}

	tokenizer := NewTokenizer(opts.Stopwords)
	docs := TokenizeCorpus(corpus, opts.Weights, tokenizer)

	vectorizer := NewTFIDFVectorizer(opts.MinDocFreq)
	if err := vectorizer.Fit(docs); err != nil {
		return nil, err
	}

	return &Model{
		opts:       opts,
		items:      corpus,
		index:      index,
		tokenizer:  tokenizer,
		vectorizer: vectorizer,
		table:      vectorizer.BuildTable(docs),
	}, nil
}

func prepareCorpus(items []CatalogItem) ([]CatalogItem, map[string]int, error) {
	corpus := make([]CatalogItem, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		if item.ID == "" {
			return nil, nil, &BuildError{Reason: fmt.Sprintf("item at row %d has no id", i)}
		}
		if prev, dup := index[item.ID]; dup {
			return nil, nil, &BuildError{Reason: fmt.Sprintf("duplicate id %q at rows %d and %d", item.ID, prev, i)}
		}
		item.Popularity = sanitizePopularity(item.Popularity)
		corpus[i] = item
		index[item.ID] = i
	}
	return corpus, index, nil
}

// Options returns the options the model was built with
func (m *Model) Options() Options {
	return m.opts
}

// Len returns the corpus size
func (m *Model) Len() int {
	return len(m.items)
}

// VocabularySize returns the number of table columns
func (m *Model) VocabularySize() int {
	return m.vectorizer.Size()
}

// Vocabulary returns a copy of the token to column mapping
func (m *Model) Vocabulary() map[string]int {
	out := make(map[string]int, len(m.vectorizer.Vocabulary))
	for k, v := range m.vectorizer.Vocabulary {
		out[k] = v
	}
	return out
}

// IDF returns a copy of the per-column weights
func (m *Model) IDF() []float64 {
	return append([]float64(nil), m.vectorizer.IDF...)
}

// Row returns a copy of the vector for corpus row i
func (m *Model) Row(i int) []float64 {
	if i < 0 || i >= len(m.table) {
		return nil
	}
	return append([]float64(nil), m.table[i]...)
}

// Item looks up a catalog item by id
func (m *Model) Item(id string) (CatalogItem, bool) {
	idx, ok := m.index[id]
	if !ok {
		return CatalogItem{}, false
	}
	return m.items[idx], true
}

// Items returns a copy of the corpus in row order
func (m *Model) Items() []CatalogItem {
	return append([]CatalogItem(nil), m.items...)
}

// VectorizeQuery runs a query through the same tokenize, weight and
// normalize pipeline as the corpus, against the fixed vocabulary.
func (m *Model) VectorizeQuery(query string) []float64 {
	return m.vectorizer.Transform(m.tokenizer.Tokenize(query))
}
