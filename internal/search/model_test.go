package search_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-engine/backend/internal/search"
)

func testCatalog() []search.CatalogItem {
	return []search.CatalogItem{
		{ID: "1", Title: "Python for Data Analysis", Category: "Data Science", Provider: "IBM", Level: "Beginner", Popularity: 0.9, Platform: "Coursera", Rating: 4.6},
		{ID: "2", Title: "Machine Learning with Python", Category: "Machine Learning", Provider: "Stanford", Level: "Intermediate", Popularity: 0.7, Platform: "Coursera", Rating: 4.9},
		{ID: "3", Title: "JavaScript Web Development", Category: "Web Development", Provider: "Meta", Level: "Beginner", Popularity: 0.5, Platform: "Udemy", Rating: 4.4},
		{ID: "4", Title: "React and JavaScript Front End", Category: "Web Development", Provider: "Meta", Level: "Intermediate", Popularity: 0.6, Platform: "Udemy"},
		{ID: "5", Title: "Digital Marketing Strategy", Category: "Business", Provider: "Google", Level: "All Levels", Popularity: 0.4, Platform: "Coursera"},
		{ID: "6", Title: "Marketing Analytics", Category: "Business", Provider: "Google", Popularity: 0.3, Platform: "Udemy"},
		{ID: "7", Title: "Yoga for Health", Category: "Health & Fitness", Popularity: 0.2, Platform: "Udemy"},
		{ID: "8", Title: "Deep Learning Neural Networks", Category: "Machine Learning", Provider: "Stanford", Level: "Advanced", Popularity: math.NaN(), Platform: "Coursera"},
	}
}

func buildTestModel(t *testing.T) *search.Model {
	t.Helper()
	m, err := search.Build(testCatalog(), search.DefaultOptions())
	require.NoError(t, err)
	return m
}

func resultIDs(results []search.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ItemID
	}
	return ids
}

func TestBuild_EmptyCorpus(t *testing.T) {
	m, err := search.Build(nil, search.DefaultOptions())

	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, search.ErrEmptyCorpus))

	var buildErr *search.BuildError
	assert.True(t, errors.As(err, &buildErr))
}

func TestBuild_RejectsDuplicateAndMissingIDs(t *testing.T) {
	_, err := search.Build([]search.CatalogItem{{ID: "x", Title: "go"}, {ID: "x", Title: "rust"}}, search.DefaultOptions())
	var buildErr *search.BuildError
	assert.True(t, errors.As(err, &buildErr))

	_, err = search.Build([]search.CatalogItem{{Title: "go"}}, search.DefaultOptions())
	assert.True(t, errors.As(err, &buildErr))
}

func TestBuild_VocabularyUsesMinDocFreq(t *testing.T) {
	m := buildTestModel(t)
	vocab := m.Vocabulary()

	for _, token := range []string{"python", "machine", "stanford", "javascript", "web", "development", "meta", "marketing", "business", "google"} {
		assert.Contains(t, vocab, token)
	}
	// single-item tokens are filtered out
	for _, token := range []string{"yoga", "react", "ibm", "neural"} {
		assert.NotContains(t, vocab, token)
	}
	assert.Equal(t, len(vocab), m.VocabularySize())
	assert.Len(t, m.IDF(), m.VocabularySize())
}

func TestBuild_RowNorms(t *testing.T) {
	m := buildTestModel(t)
	require.Equal(t, 8, m.Len())

	for i := 0; i < m.Len(); i++ {
		row := m.Row(i)
		require.Len(t, row, m.VocabularySize())
		if i == 6 {
			// "Yoga for Health" shares no token with any other item
			assert.Equal(t, 0.0, search.Norm(row), "row %d", i)
			continue
		}
		assert.InDelta(t, 1.0, search.Norm(row), 1e-9, "row %d", i)
	}
	assert.Nil(t, m.Row(-1))
	assert.Nil(t, m.Row(m.Len()))
}

func TestBuild_Idempotent(t *testing.T) {
	m1 := buildTestModel(t)
	m2 := buildTestModel(t)

	assert.Equal(t, m1.Vocabulary(), m2.Vocabulary())
	assert.Equal(t, m1.IDF(), m2.IDF())
	for i := 0; i < m1.Len(); i++ {
		assert.Equal(t, m1.Row(i), m2.Row(i))
	}
}

func TestBuild_CopiesCorpus(t *testing.T) {
	items := testCatalog()
	m, err := search.Build(items, search.DefaultOptions())
	require.NoError(t, err)

	items[0].Title = "changed"
	item, ok := m.Item("1")
	require.True(t, ok)
	assert.Equal(t, "Python for Data Analysis", item.Title)
}

func TestBuild_CoercesPopularity(t *testing.T) {
	items := []search.CatalogItem{
		{ID: "nan", Title: "go", Popularity: math.NaN()},
		{ID: "inf", Title: "go", Popularity: math.Inf(1)},
		{ID: "neg", Title: "go", Popularity: -0.5},
		{ID: "big", Title: "go", Popularity: 3},
		{ID: "ok", Title: "go", Popularity: 0.25},
	}
	m, err := search.Build(items, search.DefaultOptions())
	require.NoError(t, err)

	want := map[string]float64{"nan": 0, "inf": 0, "neg": 0, "big": 1, "ok": 0.25}
	for id, p := range want {
		item, ok := m.Item(id)
		require.True(t, ok)
		assert.Equal(t, p, item.Popularity, id)
	}

	for _, r := range m.Search("go", 10, 0) {
		assert.False(t, math.IsNaN(r.Score))
	}
}

func TestSearch_SortedAndCosineIsDot(t *testing.T) {
	m := buildTestModel(t)

	results := m.Search("python javascript marketing", 10, search.DefaultScoreFloor)
	require.NotEmpty(t, results)

	qvec := m.VectorizeQuery("python javascript marketing")
	for i, r := range results {
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
		row := m.Row(r.Index)
		assert.InDelta(t, search.CosineSimilarity(row, qvec), r.Cosine, 1e-9)
		assert.InDelta(t, r.Cosine*(1+search.DefaultLambda*r.Item.Popularity), r.Score, 1e-12)
		assert.GreaterOrEqual(t, r.Score, search.DefaultScoreFloor)
	}
}

func TestSearch_Python(t *testing.T) {
	m := buildTestModel(t)

	results := m.Search("python", 10, search.DefaultScoreFloor)

	// item 1 only carries "python" inside the vocabulary, item 2 also has
	// machine and stanford
	assert.Equal(t, []string{"1", "2"}, resultIDs(results))
	assert.InDelta(t, 1.0, results[0].Cosine, 1e-9)
}

func TestSearch_TopK(t *testing.T) {
	m := buildTestModel(t)

	all := m.Search("web development marketing", 10, 0.0001)
	require.True(t, len(all) > 2)

	top := m.Search("web development marketing", 2, 0.0001)
	assert.Equal(t, resultIDs(all[:2]), resultIDs(top))

	assert.Empty(t, m.Search("web development", 0, 0))
	assert.Empty(t, m.Search("web development", -3, 0))
}

func TestSearch_ScoreFloor(t *testing.T) {
	m := buildTestModel(t)

	assert.Empty(t, m.Search("python", 10, 10))

	// a zero floor keeps items whose score is exactly zero
	withZero := m.Search("python", 10, 0)
	assert.Len(t, withZero, m.Len())
}

func TestSearch_EmptyQueries(t *testing.T) {
	m := buildTestModel(t)

	for _, q := range []string{"", "the and for", "quantum chromodynamics", "course tutorial beginner", "12345 !!!"} {
		assert.Empty(t, m.Search(q, 10, search.DefaultScoreFloor), q)
		assert.True(t, search.IsZero(m.VectorizeQuery(q)), q)
	}
}

func TestSearch_QueryDoesNotGrowVocabulary(t *testing.T) {
	m := buildTestModel(t)
	before := m.Vocabulary()

	m.Search("kubernetes terraform python", 5, 0)

	assert.Equal(t, before, m.Vocabulary())
	assert.Len(t, m.VectorizeQuery("kubernetes terraform"), m.VocabularySize())
}

func TestSearch_TiesBrokenByCorpusOrder(t *testing.T) {
	items := []search.CatalogItem{
		{ID: "z", Title: "golang concurrency", Category: "Programming", Popularity: 0.5},
		{ID: "a", Title: "golang concurrency", Category: "Programming", Popularity: 0.5},
		{ID: "m", Title: "rust systems", Category: "Programming", Popularity: 0.5},
		{ID: "b", Title: "rust systems", Category: "Programming", Popularity: 0.5},
	}
	m, err := search.Build(items, search.DefaultOptions())
	require.NoError(t, err)

	results := m.Search("golang", 10, search.DefaultScoreFloor)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, []string{"z", "a"}, resultIDs(results))

	similar := m.Similar("m", 3)
	require.Len(t, similar, 3)
	assert.Equal(t, "b", similar[0].ItemID)
	assert.Equal(t, []string{"z", "a"}, resultIDs(similar[1:]))
}

func TestSearch_Filtered(t *testing.T) {
	m := buildTestModel(t)

	results := m.SearchFiltered("python machine", search.SearchOptions{
		TopK:       10,
		ScoreFloor: search.DefaultScoreFloor,
		Filter:     search.Filter{Category: "machine learning"},
	})
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "Machine Learning", r.Item.Category)
	}

	results = m.SearchFiltered("javascript", search.SearchOptions{
		TopK:       10,
		ScoreFloor: search.DefaultScoreFloor,
		Filter:     search.Filter{Platform: "coursera"},
	})
	assert.Empty(t, results)
}

func TestSearch_LambdaOverride(t *testing.T) {
	opts := search.DefaultOptions()
	opts.Lambda = 0
	m, err := search.Build(testCatalog(), opts)
	require.NoError(t, err)

	for _, r := range m.Search("python machine", 10, 0.001) {
		assert.Equal(t, r.Cosine, r.Score)
	}
}

func TestSimilar(t *testing.T) {
	m := buildTestModel(t)

	results := m.Similar("3", 3)
	require.Len(t, results, 3)
	assert.Equal(t, "4", results[0].ItemID)
	for i, r := range results {
		assert.NotEqual(t, "3", r.ItemID)
		assert.Equal(t, r.Cosine, r.Score)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}

	all := m.Similar("3", 100)
	assert.Len(t, all, m.Len()-1)
	assert.NotContains(t, resultIDs(all), "3")
}

func TestSimilar_UnknownID(t *testing.T) {
	m := buildTestModel(t)

	assert.Empty(t, m.Similar("does-not-exist", 5))
	assert.Empty(t, m.Similar("1", 0))
}

func TestSimilar_SingleItemCorpus(t *testing.T) {
	m, err := search.Build([]search.CatalogItem{{ID: "only", Title: "go"}}, search.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, m.Similar("only", 5))
}

func TestPopular(t *testing.T) {
	m := buildTestModel(t)

	top := m.Popular(3, "")
	assert.Equal(t, []string{"1", "2", "4"}, resultIDs(top))

	business := m.Popular(10, "Business")
	assert.Equal(t, []string{"5", "6"}, resultIDs(business))

	assert.Empty(t, m.Popular(0, ""))
}

func TestStatsAndListings(t *testing.T) {
	m := buildTestModel(t)

	stats := m.Stats()
	assert.Equal(t, 8, stats.TotalItems)
	assert.Equal(t, m.VocabularySize(), stats.VocabularySize)
	assert.Equal(t, map[string]int{"Coursera": 4, "Udemy": 4}, stats.Platforms)
	assert.Equal(t, 2, stats.Categories["Business"])
	assert.InDelta(t, 4.63, stats.AvgRating, 1e-9)

	assert.Equal(t, []string{"Coursera", "Udemy"}, m.Platforms())
	assert.Equal(t, []string{"Business", "Data Science", "Health & Fitness", "Machine Learning", "Web Development"}, m.Categories())
	assert.Equal(t, []string{"Advanced", "All Levels", "Beginner", "Intermediate"}, m.Levels())
}

func TestModel_ConcurrentReads(t *testing.T) {
	m := buildTestModel(t)
	wantSearch := m.Search("python web marketing", 5, search.DefaultScoreFloor)
	wantSimilar := m.Similar("2", 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, wantSearch, m.Search("python web marketing", 5, search.DefaultScoreFloor))
				assert.Equal(t, wantSimilar, m.Similar("2", 5))
			}
		}()
	}
	wg.Wait()
}

func TestScenario_PopularityLiftsEqualMatches(t *testing.T) {
	items := []search.CatalogItem{
		{ID: "1", Title: "python programming basics", Category: "Programming", Popularity: 0.2},
		{ID: "2", Title: "advanced python data analysis", Category: "Data Science", Popularity: 0.8},
	}
	m, err := search.Build(items, search.DefaultOptions())
	require.NoError(t, err)

	results := m.Search("python", 10, search.DefaultScoreFloor)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[0].ItemID)
	assert.Equal(t, "1", results[1].ItemID)
	assert.InDelta(t, results[0].Cosine, results[1].Cosine, 1e-9)
	assert.InDelta(t, 1.24, results[0].Score, 1e-9)
	assert.InDelta(t, 1.06, results[1].Score, 1e-9)

	assert.Empty(t, m.Search("the and for", 10, search.DefaultScoreFloor))
}
