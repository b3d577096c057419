package web

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed views/*.html
var views embed.FS

type Templates struct {
	*template.Template
}

func (t *Templates) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.ExecuteTemplate(w, name, data)
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"inc": func(i int) int { return i + 1 },
}

// NewTemplates parses the embedded views.
func NewTemplates() (*Templates, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(views, "views/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{t}, nil
}
