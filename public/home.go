// Package public builds the read-only home page: upcoming events, rosters,
// latest news and per-category constructor standings.
package public

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"motorsporthub/gateway"
	"motorsporthub/models"
)

var Module = fx.Module(
	"public",
	fx.Provide(NewHome),
)

// Categories are the series that get a standings table, in display order.
var Categories = []string{"F1", "F2", "F3"}

type Reader[T any] interface {
	Select(ctx context.Context, q gateway.Query) ([]T, error)
}

type Readers struct {
	News         Reader[models.NewsItem]
	Events       Reader[models.Event]
	Teams        Reader[models.Team]
	Drivers      Reader[models.Driver]
	Constructors Reader[models.Constructor]
}

type NewsCard struct {
	models.NewsItem
	Image string
}

type Standings struct {
	Category string
	Rows     []models.Constructor
}

// Page is everything the home page shows. An empty section renders its
// placeholder.
type Page struct {
	Events    []models.Event
	Teams     []models.Team
	Drivers   []models.Driver
	News      []NewsCard
	Standings []Standings
}

type Home struct {
	readers   Readers
	publicURL func(string) string
	logger    zerolog.Logger
}

func NewHome(tables gateway.Tables, blobs *gateway.BlobStore, log zerolog.Logger) *Home {
	return New(Readers{
		News:         tables.News,
		Events:       tables.Events,
		Teams:        tables.Teams,
		Drivers:      tables.Drivers,
		Constructors: tables.Constructors,
	}, blobs.PublicURL, log.With().Str("component", "home").Logger())
}

func New(readers Readers, publicURL func(string) string, logger zerolog.Logger) *Home {
	return &Home{readers: readers, publicURL: publicURL, logger: logger}
}

// Load runs every query of the page concurrently. The queries are independent;
// a failed one is logged and leaves its section empty.
func (h *Home) Load(ctx context.Context) Page {
	var (
		page Page
		news []models.NewsItem
		g    errgroup.Group
	)
	page.Standings = make([]Standings, len(Categories))

	g.Go(func() error {
		page.Events = fetch(ctx, h, "events", h.readers.Events, gateway.Query{
			Order: gateway.Order{Column: "date"},
			Limit: 5,
		})
		return nil
	})
	g.Go(func() error {
		page.Teams = fetch(ctx, h, "teams", h.readers.Teams, gateway.Query{
			Order: gateway.Order{Column: "name"},
			Limit: 10,
		})
		return nil
	})
	g.Go(func() error {
		page.Drivers = fetch(ctx, h, "drivers", h.readers.Drivers, gateway.Query{
			Order: gateway.Order{Column: "name"},
			Limit: 10,
		})
		return nil
	})
	g.Go(func() error {
		news = fetch(ctx, h, "news", h.readers.News, gateway.Query{
			Order: gateway.Order{Column: "created_at", Desc: true},
			Limit: 5,
		})
		return nil
	})
	for i, category := range Categories {
		i, category := i, category
		g.Go(func() error {
			page.Standings[i] = Standings{
				Category: category,
				Rows: fetch(ctx, h, "standings "+category, h.readers.Constructors, gateway.Query{
					Where: []gateway.Eq{{Column: "category", Value: category}},
					Order: gateway.Order{Column: "points", Desc: true},
				}),
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, n := range news {
		card := NewsCard{NewsItem: n}
		if n.ImageURL != nil {
			card.Image = h.publicURL(*n.ImageURL)
		}
		page.News = append(page.News, card)
	}
	return page
}

func fetch[T any](ctx context.Context, h *Home, section string, r Reader[T], q gateway.Query) []T {
	rows, err := r.Select(ctx, q)
	if err != nil {
		h.logger.Error().Err(err).Str("section", section).Msg("failed to load section")
		return nil
	}
	return rows
}
