package panel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"motorsporthub/gateway"
	"motorsporthub/models"
)

var Module = fx.Module(
	"panel",
	fx.Provide(NewDashboard),
)

// Console is a Panel seen without its row type.
type Console interface {
	Schema() *Schema
	Load(ctx context.Context) error
	Create(ctx context.Context, form Form, file *Attachment) error
	Remove(ctx context.Context, id int64, confirmed bool) error
	View() View
}

func intPtr(n int) *int { return &n }

func NewsSchema() *Schema {
	return &Schema{
		Collection: "news",
		Title:      "News",
		Noun:       "news",
		Fields: []Field{
			{Name: "date", Label: "Date", Kind: Date},
			{Name: "title", Label: "Title", Kind: Text},
			{Name: "text", Label: "Text", Kind: LongText},
		},
		Attachment:     true,
		Order:          gateway.Order{Column: "date", Desc: true},
		Limit:          10,
		MissingMessage: "Please fill in date, title, and text",
	}
}

func EventsSchema() *Schema {
	return &Schema{
		Collection: "events",
		Title:      "Events",
		Noun:       "event",
		Fields: []Field{
			{Name: "date", Label: "Date", Kind: Date},
			{Name: "name", Label: "Name", Kind: Text},
			{Name: "location", Label: "Location", Kind: Text},
			{Name: "category", Label: "Category", Kind: Text},
		},
		Order:          gateway.Order{Column: "date"},
		MissingMessage: "Please fill all event fields",
	}
}

func TeamsSchema() *Schema {
	return &Schema{
		Collection: "teams",
		Title:      "Teams",
		Noun:       "team",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: Text},
			{Name: "category", Label: "Category", Kind: Text},
		},
		Order:          gateway.Order{Column: "name"},
		MissingMessage: "Please fill all team fields",
	}
}

func DriversSchema() *Schema {
	return &Schema{
		Collection: "drivers",
		Title:      "Drivers",
		Noun:       "driver",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: Text},
			{Name: "number", Label: "Number", Kind: Number},
			{Name: "team", Label: "Team", Kind: Text},
			{Name: "category", Label: "Category", Kind: Text},
		},
		Order:          gateway.Order{Column: "name"},
		MissingMessage: "Please fill all driver fields",
	}
}

func ConstructorsSchema() *Schema {
	return &Schema{
		Collection: "constructors",
		Title:      "Constructors",
		Noun:       "constructor",
		Fields: []Field{
			{Name: "team_name", Label: "Team Name", Kind: Text},
			{Name: "points", Label: "Points", Kind: Number, Min: intPtr(0)},
			{Name: "category", Label: "Category", Kind: Text},
		},
		Order:          gateway.Order{Column: "points", Desc: true},
		MissingMessage: "Please fill all constructor fields",
	}
}

// Stores holds the gateway side of every collection.
type Stores struct {
	News         Store[models.NewsItem]
	Events       Store[models.Event]
	Teams        Store[models.Team]
	Drivers      Store[models.Driver]
	Constructors Store[models.Constructor]
}

// Dashboard is the admin console: the five panels in display order.
type Dashboard struct {
	panels []Console
	byName map[string]Console
}

func NewDashboard(tables gateway.Tables, blobs *gateway.BlobStore, log zerolog.Logger) *Dashboard {
	return Build(Stores{
		News:         tables.News,
		Events:       tables.Events,
		Teams:        tables.Teams,
		Drivers:      tables.Drivers,
		Constructors: tables.Constructors,
	}, blobs, blobs.PublicURL, log.With().Str("component", "dashboard").Logger())
}

// Build wires one panel per collection. publicURL turns a stored image path
// into a link.
func Build(s Stores, uploader Uploader, publicURL func(string) string, log zerolog.Logger) *Dashboard {
	return newDashboard(
		New(NewsSchema(), s.News, uploader, func(n models.NewsItem) Line {
			l := Line{ID: n.ID, Title: n.Title, Detail: "(" + n.Date.Format(dateLayout) + ")", Body: n.Text}
			if n.ImageURL != nil {
				l.Image = publicURL(*n.ImageURL)
			}
			return l
		}, log),
		New(EventsSchema(), s.Events, nil, func(e models.Event) Line {
			return Line{ID: e.ID, Title: e.Name, Detail: fmt.Sprintf("(%s) - %s [%s]", e.Date.Format(dateLayout), e.Location, e.Category)}
		}, log),
		New(TeamsSchema(), s.Teams, nil, func(t models.Team) Line {
			return Line{ID: t.ID, Title: t.Name, Detail: "[" + t.Category + "]"}
		}, log),
		New(DriversSchema(), s.Drivers, nil, func(d models.Driver) Line {
			return Line{ID: d.ID, Title: d.Name, Detail: fmt.Sprintf("#%d - %s [%s]", d.Number, d.Team, d.Category)}
		}, log),
		New(ConstructorsSchema(), s.Constructors, nil, func(c models.Constructor) Line {
			return Line{ID: c.ID, Title: c.TeamName, Detail: "- " + strconv.Itoa(c.Points) + " points [" + c.Category + "]"}
		}, log),
	)
}

func newDashboard(panels ...Console) *Dashboard {
	d := &Dashboard{panels: panels, byName: make(map[string]Console, len(panels))}
	for _, p := range panels {
		d.byName[p.Schema().Collection] = p
	}
	return d
}

// Panel returns the panel of collection.
func (d *Dashboard) Panel(collection string) (Console, bool) {
	p, ok := d.byName[collection]
	return p, ok
}

func (d *Dashboard) Panels() []Console {
	return d.panels
}

// LoadAll refetches every panel concurrently. A failing panel keeps its rows.
func (d *Dashboard) LoadAll(ctx context.Context) {
	var g errgroup.Group
	for _, p := range d.panels {
		p := p
		g.Go(func() error {
			_ = p.Load(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// Views returns a snapshot of every panel in display order.
func (d *Dashboard) Views() []View {
	views := make([]View, 0, len(d.panels))
	for _, p := range d.panels {
		views = append(views, p.View())
	}
	return views
}
