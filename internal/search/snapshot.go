package search

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// SnapshotVersion is bumped whenever the snapshot layout changes
const SnapshotVersion = 2

// Snapshot is the persisted form of a Model. Items are not part of it; the
// serving side supplies the corpus it intends to serve on Restore.
type Snapshot struct {
	Version    int         `json:"version"`
	Options    Options     `json:"options"`
	Terms      []string    `json:"terms"`
	IDF        []float64   `json:"idf"`
	Table      [][]float64 `json:"table"`
	CorpusSize int         `json:"corpus_size"`
	ItemIDs    []string    `json:"item_ids"`

	// Digest of the weighted item texts the table was built from
	CorpusDigest string `json:"corpus_digest"`
}

// Snapshot captures the vocabulary, weights and table of the model
func (m *Model) Snapshot() *Snapshot {
	table := make([][]float64, len(m.table))
	for i, row := range m.table {
		table[i] = append([]float64(nil), row...)
	}
	ids := make([]string, len(m.items))
	for i, item := range m.items {
		ids[i] = item.ID
	}
	return &Snapshot{
		Version:    SnapshotVersion,
		Options:    m.opts,
		Terms:      append([]string(nil), m.vectorizer.Terms...),
		IDF:        append([]float64(nil), m.vectorizer.IDF...),
		Table:      table,
		CorpusSize: len(m.items),
		ItemIDs:    ids,

		CorpusDigest: corpusDigest(m.items, m.opts.Weights),
	}
}

// corpusDigest hashes the soup of every item in row order, so any change to
// an indexed field shows up even when ids stay the same
func corpusDigest(items []CatalogItem, w FieldWeights) string {
	h := xxhash.New()
	for _, item := range items {
		_, _ = h.WriteString(Soup(item, w))
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Restore rebuilds a Model from a snapshot and the live corpus. A snapshot
// is stale when its layout version, shape, item ids or corpus digest
// disagree with items; that is reported as a *StaleSnapshotError and the
// caller is expected to rebuild from items. Popularity and listing fields
// are not indexed, so the live values are served without a rebuild.
func Restore(s *Snapshot, items []CatalogItem) (*Model, error) {
	if s == nil {
		return nil, &StaleSnapshotError{CorpusRows: len(items), Detail: "no snapshot"}
	}
	stale := func(detail string) error {
		return &StaleSnapshotError{SnapshotRows: len(s.Table), CorpusRows: len(items), Detail: detail}
	}

	if s.Version != SnapshotVersion {
		return nil, stale(fmt.Sprintf("version %d, want %d", s.Version, SnapshotVersion))
	}
	if len(s.Table) != s.CorpusSize || s.CorpusSize != len(items) {
		return nil, stale("row count mismatch")
	}
	if len(s.IDF) != len(s.Terms) {
		return nil, stale(fmt.Sprintf("%d weights for %d terms", len(s.IDF), len(s.Terms)))
	}
	for i, row := range s.Table {
		if len(row) != len(s.Terms) {
			return nil, stale(fmt.Sprintf("row %d has %d columns, want %d", i, len(row), len(s.Terms)))
		}
	}
	if len(s.ItemIDs) != len(items) {
		return nil, stale("item id list does not match corpus")
	}
	for i, item := range items {
		if s.ItemIDs[i] != item.ID {
			return nil, stale(fmt.Sprintf("row %d is %q in snapshot, %q in corpus", i, s.ItemIDs[i], item.ID))
		}
	}
	if len(items) == 0 {
		return nil, &BuildError{Reason: "no catalog items", Err: ErrEmptyCorpus}
	}

	corpus, index, err := prepareCorpus(items)
	if err != nil {
		return nil, err
	}

	opts := s.Options.withDefaults()
	if digest := corpusDigest(corpus, opts.Weights); digest != s.CorpusDigest {
		return nil, stale("indexed item text changed")
	}
	vectorizer := NewTFIDFVectorizer(opts.MinDocFreq)
	for i, term := range s.Terms {
		vectorizer.Vocabulary[term] = i
	}
	vectorizer.Terms = append([]string(nil), s.Terms...)
	vectorizer.IDF = append([]float64(nil), s.IDF...)

	table := make([][]float64, len(s.Table))
	for i, row := range s.Table {
		table[i] = append([]float64(nil), row...)
	}

	return &Model{
		opts:       opts,
		items:      corpus,
		index:      index,
		tokenizer:  NewTokenizer(opts.Stopwords),
		vectorizer: vectorizer,
		table:      table,
	}, nil
}
