package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name  string
		table string
		query Query
		sql   string
		args  []any
	}{
		{
			name:  "news latest ten",
			table: "news",
			query: Query{Order: Order{Column: "date", Desc: true}, Limit: 10},
			sql:   `SELECT * FROM "news" ORDER BY "date" DESC LIMIT 10`,
			args:  []any{},
		},
		{
			name:  "events without limit",
			table: "events",
			query: Query{Order: Order{Column: "date"}},
			sql:   `SELECT * FROM "events" ORDER BY "date" ASC`,
			args:  []any{},
		},
		{
			name:  "standings for one category",
			table: "constructors",
			query: Query{
				Where: []Eq{{Column: "category", Value: "F2"}},
				Order: Order{Column: "points", Desc: true},
			},
			sql:  `SELECT * FROM "constructors" WHERE "category" = $1 ORDER BY "points" DESC`,
			args: []any{"F2"},
		},
		{
			name:  "identifiers are quoted",
			table: `odd"name`,
			query: Query{Where: []Eq{{Column: "a", Value: 1}, {Column: "b", Value: 2}}},
			sql:   `SELECT * FROM "odd""name" WHERE "a" = $1 AND "b" = $2`,
			args:  []any{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildSelect(tt.table, tt.query)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildInsert(t *testing.T) {
	sql, args := buildInsert("news", Record{
		"title":     "Race Recap",
		"date":      "2025-01-01",
		"text":      "Great race.",
		"image_url": nil,
	})

	assert.Equal(t, `INSERT INTO "news" ("date", "image_url", "text", "title") VALUES ($1, $2, $3, $4) RETURNING "id"`, sql)
	assert.Equal(t, []any{"2025-01-01", nil, "Great race.", "Race Recap"}, args)
}

func TestBuildDelete(t *testing.T) {
	assert.Equal(t, `DELETE FROM "drivers" WHERE "id" = $1`, buildDelete("drivers"))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("news", "select", timeZero, nil)
	})
}
