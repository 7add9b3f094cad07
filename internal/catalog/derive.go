package catalog

import (
	"strings"
	"unicode"
)

// Levels assigned from free-form metadata
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelAll          = "All Levels"
)

// DefaultCategory is used when neither a category nor a title keyword is known
const DefaultCategory = "General"

// checked in order, first hit wins
var titleCategories = []struct {
	category string
	keywords []string
}{
	{"Data Science", []string{"data science", "data analytics", "data analysis", "big data"}},
	{"Machine Learning", []string{"machine learning", "ml", "deep learning", "neural network"}},
	{"Programming", []string{"python", "java", "javascript", "programming", "coding", "developer"}},
	{"Web Development", []string{"web development", "web design", "html", "css", "react", "angular", "vue"}},
	{"Business", []string{"business", "management", "marketing", "finance", "accounting", "entrepreneurship"}},
	{"Design", []string{"design", "photoshop", "illustrator", "ui", "ux", "graphic"}},
	{"IT & Software", []string{"software", "cloud", "aws", "azure", "devops", "docker", "kubernetes"}},
	{"Health & Fitness", []string{"health", "fitness", "yoga", "nutrition", "medical", "healthcare"}},
	{"Personal Development", []string{"leadership", "productivity", "communication", "career"}},
}

// LevelFromMetadata maps a descriptor such as "Beginner · Course · 1 - 3 Months"
// to one of the fixed levels. Anything unrecognized is LevelAll.
func LevelFromMetadata(metadata string) string {
	m := strings.ToLower(metadata)
	switch {
	case strings.Contains(m, "beginner"):
		return LevelBeginner
	case strings.Contains(m, "intermediate"):
		return LevelIntermediate
	case strings.Contains(m, "advanced"):
		return LevelAdvanced
	}
	return LevelAll
}

// CategoryFromTitle guesses a category from title keywords. Keywords of up
// to three letters must match a whole word, longer ones any substring.
func CategoryFromTitle(title string) string {
	lower := strings.ToLower(title)
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = struct{}{}
	}

	for _, c := range titleCategories {
		for _, kw := range c.keywords {
			if len(kw) <= 3 {
				if _, ok := words[kw]; ok {
					return c.category
				}
				continue
			}
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return DefaultCategory
}
