package models

import "time"

// Row is implemented by every collection record. The id is assigned by the
// gateway on insert and is the only key used for deletion.
type Row interface {
	RowID() int64
}

type Identity struct {
	ID    string
	Email string
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Identity
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type NewsItem struct {
	ID        int64     `db:"id"`
	Date      time.Time `db:"date"`
	Title     string    `db:"title"`
	Text      string    `db:"text"`
	ImageURL  *string   `db:"image_url"`
	CreatedAt time.Time `db:"created_at"`
}

func (n NewsItem) RowID() int64 { return n.ID }

type Event struct {
	ID       int64     `db:"id"`
	Date     time.Time `db:"date"`
	Name     string    `db:"name"`
	Location string    `db:"location"`
	Category string    `db:"category"`
}

func (e Event) RowID() int64 { return e.ID }

type Team struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Category string `db:"category"`
}

func (t Team) RowID() int64 { return t.ID }

// Driver.Team is free text; it is not checked against the teams collection.
type Driver struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Number   int    `db:"number"`
	Team     string `db:"team"`
	Category string `db:"category"`
}

func (d Driver) RowID() int64 { return d.ID }

type Constructor struct {
	ID       int64  `db:"id"`
	TeamName string `db:"team_name"`
	Points   int    `db:"points"`
	Category string `db:"category"`
}

func (c Constructor) RowID() int64 { return c.ID }
