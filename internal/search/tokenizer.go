package search

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z]{2,}`)

// defaultStopwords holds common function words plus words that show up in
// nearly every course title and carry no topical signal.
var defaultStopwords = map[string]struct{}{
	// function words
	"the": {}, "and": {}, "for": {}, "that": {}, "with": {}, "this": {},
	"from": {}, "your": {}, "are": {}, "will": {}, "can": {}, "how": {},
	"what": {}, "an": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "of": {}, "by": {}, "as": {}, "is": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "it": {}, "its": {}, "you": {}, "we": {},
	"they": {}, "into": {}, "about": {}, "all": {}, "more": {}, "most": {},
	"not": {}, "no": {}, "so": {}, "than": {}, "too": {}, "very": {},
	"just": {}, "using": {}, "use": {}, "my": {}, "our": {}, "up": {},

	// course noise
	"learn": {}, "learning": {}, "intro": {}, "introduction": {}, "full": {},
	"guide": {}, "course": {}, "courses": {}, "tutorial": {}, "complete": {},
	"bootcamp": {}, "advanced": {}, "beginner": {}, "beginners": {},
	"intermediate": {}, "master": {}, "masterclass": {}, "fundamentals": {},
	"basics": {}, "project": {}, "projects": {},

	// url fragments
	"com": {}, "www": {}, "https": {}, "http": {},
}

// Tokenizer turns raw text into normalized tokens
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a tokenizer with the given stopwords. A nil set uses
// the default stopwords.
func NewTokenizer(stopwords []string) *Tokenizer {
	if stopwords == nil {
		return &Tokenizer{stopwords: defaultStopwords}
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: set}
}

var defaultTokenizer = NewTokenizer(nil)

// Tokenize lower-cases text and returns runs of at least two ASCII letters
// that are not stopwords. Digits and punctuation separate tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	var tokens []string
	for _, w := range words {
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// IsStopword reports whether w is dropped by the tokenizer
func (t *Tokenizer) IsStopword(w string) bool {
	_, ok := t.stopwords[strings.ToLower(w)]
	return ok
}

// Tokenize splits text into tokens using the default stopwords
func Tokenize(text string) []string {
	return defaultTokenizer.Tokenize(text)
}
