package public

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorsporthub/gateway"
	"motorsporthub/models"
)

type stubReader[T any] struct {
	mu      sync.Mutex
	queries []gateway.Query
	rows    []T
	err     error
}

func (s *stubReader[T]) Select(_ context.Context, q gateway.Query) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.rows, s.err
}

// constructorReader filters and sorts like the gateway does.
type constructorReader struct {
	mu      sync.Mutex
	queries []gateway.Query
	rows    []models.Constructor
}

func (r *constructorReader) Select(_ context.Context, q gateway.Query) ([]models.Constructor, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()

	var out []models.Constructor
	for _, c := range r.rows {
		if len(q.Where) == 1 && c.Category == q.Where[0].Value {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	return out, nil
}

func TestHomeLoad(t *testing.T) {
	img := "1735732800123.png"
	news := &stubReader[models.NewsItem]{rows: []models.NewsItem{
		{ID: 2, Title: "Race Recap", Text: "Great race.", ImageURL: &img},
		{ID: 1, Title: "Season Preview", Text: "Here we go."},
	}}
	events := &stubReader[models.Event]{rows: []models.Event{{ID: 1, Name: "Australian GP"}}}
	teams := &stubReader[models.Team]{}
	drivers := &stubReader[models.Driver]{err: errors.New("timeout")}
	constructors := &constructorReader{rows: []models.Constructor{
		{ID: 1, TeamName: "Ferrari", Points: 400, Category: "F1"},
		{ID: 2, TeamName: "Prema", Points: 120, Category: "F2"},
		{ID: 3, TeamName: "McLaren", Points: 666, Category: "F1"},
		{ID: 4, TeamName: "Red Bull", Points: 589, Category: "F1"},
	}}

	h := New(Readers{
		News:         news,
		Events:       events,
		Teams:        teams,
		Drivers:      drivers,
		Constructors: constructors,
	}, func(p string) string { return "https://cdn.example.com/news-images/" + p }, zerolog.Nop())

	page := h.Load(context.Background())

	assert.Len(t, page.Events, 1)
	assert.Empty(t, page.Teams)
	assert.Empty(t, page.Drivers)

	require.Len(t, page.News, 2)
	assert.Equal(t, "Great race.", page.News[0].Text)
	assert.Equal(t, "https://cdn.example.com/news-images/1735732800123.png", page.News[0].Image)
	assert.Empty(t, page.News[1].Image)

	require.Len(t, page.Standings, 3)
	assert.Equal(t, "F1", page.Standings[0].Category)
	var f1 []string
	for _, c := range page.Standings[0].Rows {
		f1 = append(f1, c.TeamName)
	}
	assert.Equal(t, []string{"McLaren", "Red Bull", "Ferrari"}, f1)
	assert.Len(t, page.Standings[1].Rows, 1)
	assert.Empty(t, page.Standings[2].Rows)
	assert.Equal(t, "F3", page.Standings[2].Category)

	assert.Equal(t, []gateway.Query{{Order: gateway.Order{Column: "date"}, Limit: 5}}, events.queries)
	assert.Equal(t, []gateway.Query{{Order: gateway.Order{Column: "name"}, Limit: 10}}, teams.queries)
	assert.Equal(t, []gateway.Query{{Order: gateway.Order{Column: "name"}, Limit: 10}}, drivers.queries)
	assert.Equal(t, []gateway.Query{{Order: gateway.Order{Column: "created_at", Desc: true}, Limit: 5}}, news.queries)
	assert.Len(t, constructors.queries, 3)
	for _, q := range constructors.queries {
		assert.Equal(t, gateway.Order{Column: "points", Desc: true}, q.Order)
		assert.Zero(t, q.Limit)
	}
}

func TestStandingsSortedByPoints(t *testing.T) {
	constructors := &constructorReader{rows: []models.Constructor{
		{ID: 1, TeamName: "A", Points: 10, Category: "F3"},
		{ID: 2, TeamName: "B", Points: 30, Category: "F3"},
		{ID: 3, TeamName: "C", Points: 30, Category: "F3"},
		{ID: 4, TeamName: "D", Points: 20, Category: "F3"},
	}}
	h := New(Readers{
		News:         &stubReader[models.NewsItem]{},
		Events:       &stubReader[models.Event]{},
		Teams:        &stubReader[models.Team]{},
		Drivers:      &stubReader[models.Driver]{},
		Constructors: constructors,
	}, func(p string) string { return p }, zerolog.Nop())

	rows := h.Load(context.Background()).Standings[2].Rows
	require.Len(t, rows, 4)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Points, rows[i].Points)
	}
}
