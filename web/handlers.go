package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"motorsporthub/auth"
	"motorsporthub/panel"
	"motorsporthub/public"
)

const MessageConfirmDelete = "Are you sure you want to delete this item?"

type Handlers struct {
	am        *auth.AuthManager
	dashboard *panel.Dashboard
	home      *public.Home
	logger    zerolog.Logger
}

func NewHandlers(am *auth.AuthManager, dashboard *panel.Dashboard, home *public.Home, logger zerolog.Logger) *Handlers {
	return &Handlers{am: am, dashboard: dashboard, home: home, logger: logger}
}

func csrf(c echo.Context) interface{} {
	return c.Get(middleware.DefaultCSRFConfig.ContextKey)
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("Hx-Request") == "true"
}

func (h *Handlers) Home(c echo.Context) error {
	s := h.am.CurrentSession(c)
	data := map[string]interface{}{
		"Page":     h.home.Load(c.Request().Context()),
		"Operator": auth.IsOperator(s, h.am.Operator()),
		"CSRF":     csrf(c),
	}
	if s != nil {
		data["Email"] = s.User.Email
	}
	return c.Render(http.StatusOK, "homePage", data)
}

// PanelData is what one panel container renders.
type PanelData struct {
	View    panel.View
	CSRF    interface{}
	Confirm string
}

func (h *Handlers) panelData(c echo.Context, v panel.View) PanelData {
	return PanelData{View: v, CSRF: csrf(c), Confirm: MessageConfirmDelete}
}

func (h *Handlers) Dashboard(c echo.Context) error {
	h.dashboard.LoadAll(c.Request().Context())

	var panels []PanelData
	for _, v := range h.dashboard.Views() {
		panels = append(panels, h.panelData(c, v))
	}
	data := map[string]interface{}{
		"Panels": panels,
		"CSRF":   csrf(c),
	}
	if s := h.am.CurrentSession(c); s != nil {
		data["Email"] = s.User.Email
	}
	return c.Render(http.StatusOK, "dashboardPage", data)
}

func (h *Handlers) lookup(c echo.Context) (panel.Console, error) {
	p, ok := h.dashboard.Panel(c.Param("collection"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown collection")
	}
	return p, nil
}

// respond re-renders the panel for HTMX requests and goes back to the
// dashboard otherwise.
func (h *Handlers) respond(c echo.Context, p panel.Console) error {
	if !isHTMX(c) {
		return c.Redirect(http.StatusFound, auth.PathAdmin+"#"+p.Schema().Collection)
	}
	return c.Render(http.StatusOK, "panelContainer", h.panelData(c, p.View()))
}

func (h *Handlers) Create(c echo.Context) error {
	p, err := h.lookup(c)
	if err != nil {
		return err
	}
	schema := p.Schema()

	form := panel.Form{}
	for _, f := range schema.Fields {
		form[f.Name] = c.FormValue(f.Name)
	}

	var file *panel.Attachment
	if schema.Attachment {
		fh, err := c.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		case err != nil:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
		case fh.Size > 0:
			src, err := fh.Open()
			if err != nil {
				return err
			}
			defer src.Close()
			file = &panel.Attachment{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get(echo.HeaderContentType),
				Size:        fh.Size,
				Body:        src,
			}
		}
	}

	if err := p.Create(c.Request().Context(), form, file); err != nil {
		h.logger.Debug().Err(err).Str("collection", schema.Collection).Msg("create refused")
	}
	return h.respond(c, p)
}

func (h *Handlers) Delete(c echo.Context) error {
	p, err := h.lookup(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	confirmed := c.FormValue("confirmed") == "true"
	if err := p.Remove(c.Request().Context(), id, confirmed); err != nil {
		h.logger.Debug().Err(err).Str("collection", p.Schema().Collection).Int64("id", id).Msg("delete refused")
	}
	return h.respond(c, p)
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
