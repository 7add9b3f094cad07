package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-engine/backend/internal/catalog"
	"github.com/course-engine/backend/internal/search"
)

func newLoader(normalize bool) *catalog.Loader {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return catalog.NewLoader(catalog.LoadOptions{NormalizePopularity: normalize}, logger.WithField("test", "catalog"))
}

const courseCSV = `title,partner,rating,reviews,metadata,link,category,source_domain,popularity_score,id,full_description
Python for Everybody,University of Michigan,4.8,1200,Beginner · Course,https://example.com/py,Programming,www.coursera.org,10,101,"<p>Learn <b>Python</b> &amp; data</p><script>track()</script>"
Machine Learning,Stanford,4.9,5000,Intermediate,https://example.com/ml,Machine Learning,coursera,20,102,
,No Title Inc,4.0,10,,,Business,udemy,5,103,
Python for Everybody (copy),University of Michigan,4.8,1200,,,Programming,coursera,10,101,
Excel Basics,Microsoft,bad,3,,,Business,udemy,not-a-number,,
`

func TestReadCSV(t *testing.T) {
	items, report, err := newLoader(false).ReadCSV(context.Background(), strings.NewReader(courseCSV))
	require.NoError(t, err)

	assert.Equal(t, catalog.Report{Rows: 5, Loaded: 3, Invalid: 1, Duplicates: 1}, report)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, "Python for Everybody", first.Title)
	assert.Equal(t, "University of Michigan", first.Provider)
	assert.Equal(t, "Beginner", first.Level)
	assert.Equal(t, "Beginner · Course", first.Metadata)
	assert.Equal(t, "Programming", first.Category)
	assert.Equal(t, "Coursera", first.Platform)
	assert.Equal(t, "https://example.com/py", first.URL)
	assert.Equal(t, "Learn Python & data", first.Description)
	assert.Equal(t, 10.0, first.Popularity)
	assert.Equal(t, 4.8, first.Rating)

	assert.Equal(t, "Intermediate", items[1].Level)

	// missing id falls back to the row position, bad numbers become 0
	last := items[2]
	assert.Equal(t, "4", last.ID)
	assert.Equal(t, 0.0, last.Popularity)
	assert.Equal(t, 0.0, last.Rating)
	assert.Equal(t, "Udemy", last.Platform)
	assert.Equal(t, catalog.LevelAll, last.Level)
	assert.Empty(t, last.Metadata)
}

func TestReadCSV_DerivedFields(t *testing.T) {
	data := "id,title,level,metadata\n" +
		"1,Docker for Developers,Expert,Beginner · Course\n" +
		"2,Intro to Watercolor,,Advanced · Specialization\n"

	items, report, err := newLoader(false).ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 2, report.Loaded)

	// an explicit level column wins over metadata
	assert.Equal(t, "Expert", items[0].Level)
	assert.Equal(t, "Beginner · Course", items[0].Metadata)
	assert.Equal(t, "Advanced", items[1].Level)

	// no category column: guessed from the title
	assert.Equal(t, "Programming", items[0].Category)
	assert.Equal(t, catalog.DefaultCategory, items[1].Category)
}

func TestReadCSV_NormalizePopularity(t *testing.T) {
	items, _, err := newLoader(true).ReadCSV(context.Background(), strings.NewReader(courseCSV))
	require.NoError(t, err)

	assert.Equal(t, 0.5, items[0].Popularity)
	assert.Equal(t, 1.0, items[1].Popularity)
	assert.Equal(t, 0.0, items[2].Popularity)
}

func TestReadCSV_Semicolon(t *testing.T) {
	data := "id;title;category;popularity\n1;Go in Action;Programming;0.4\n2;Rust in Action;Programming;0.6\n"

	items, report, err := newLoader(false).ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, "Rust in Action", items[1].Title)
	assert.Equal(t, 0.6, items[1].Popularity)
}

func TestReadCSV_Empty(t *testing.T) {
	items, report, err := newLoader(false).ReadCSV(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, report.Rows)
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newLoader(false).ReadCSV(ctx, strings.NewReader(courseCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadJSON(t *testing.T) {
	data := `[
		{"id": 7, "title": "Kubernetes Up and Running", "category": "IT & Software", "instructor": "CNCF", "popularity": 0.75, "platform": "udemy"},
		{"id": "k8s-2", "title": "Helm Charts", "category": "IT & Software", "popularity": null},
		{"id": "k8s-3", "title": "", "category": "IT & Software"}
	]`

	items, report, err := newLoader(false).ReadJSON(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, catalog.Report{Rows: 3, Loaded: 2, Invalid: 1}, report)
	assert.Equal(t, "7", items[0].ID)
	assert.Equal(t, "CNCF", items[0].Provider)
	assert.Equal(t, "Udemy", items[0].Platform)
	assert.Equal(t, 0.75, items[0].Popularity)
	assert.Equal(t, "k8s-2", items[1].ID)
	assert.Equal(t, 0.0, items[1].Popularity)
	assert.Equal(t, catalog.LevelAll, items[1].Level)
}

func TestReadJSON_Malformed(t *testing.T) {
	_, _, err := newLoader(false).ReadJSON(context.Background(), strings.NewReader(`{"id": 1`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "courses.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(courseCSV), 0644))

	items, report, err := newLoader(true).LoadFile(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Loaded)

	// the loaded catalog builds directly
	m, err := search.Build(items, search.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := newLoader(false).LoadFile(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	xmlPath := filepath.Join(dir, "courses.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte("<courses/>"), 0644))
	_, _, err = newLoader(false).LoadFile(context.Background(), xmlPath)
	assert.True(t, errors.Is(err, catalog.ErrUnsupportedFormat))
}

func TestNormalizePopularity_AllZero(t *testing.T) {
	items := []search.CatalogItem{{ID: "a", Popularity: 0}, {ID: "b", Popularity: -2}}
	catalog.NormalizePopularity(items)

	assert.Equal(t, 0.0, items[0].Popularity)
	assert.Equal(t, 0.0, items[1].Popularity)
}

func TestTextFromHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "  Learn   Go\nfast ", "Learn Go fast"},
		{"markup", "<div><h1>Go</h1><p>Concurrency&nbsp;patterns</p></div>", "Go Concurrency patterns"},
		{"script and style", "<style>p{}</style>Visible<script>var x</script> text", "Visible text"},
		{"entities only", "Tom &amp; Jerry", "Tom & Jerry"},
		{"line breaks", "one<br/>two", "one two"},
		{"inline tags keep words whole", "Py<b>thon</b> <i>3</i>", "Python 3"},
		{"list items", "<ul><li>Go</li><li>Rust</li></ul>", "Go Rust"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, catalog.TextFromHTML(tt.input))
		})
	}
}
