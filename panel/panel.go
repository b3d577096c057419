package panel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"motorsporthub/gateway"
	"motorsporthub/models"
	"motorsporthub/utils"
)

var (
	ErrBusy         = errors.New("a submission is already in progress")
	ErrNotConfirmed = errors.New("delete was not confirmed")
)

// Store is the gateway side of one collection.
type Store[T models.Row] interface {
	Select(ctx context.Context, q gateway.Query) ([]T, error)
	Insert(ctx context.Context, rec gateway.Record) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// Uploader stores an attached file and returns its storage path.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
}

// Attachment is a file submitted along with a form.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type State int

const (
	Idle State = iota
	Uploading
	Submitting
)

// Notice is the single message shown to the operator after an action.
type Notice struct {
	Message string
	Failed  bool
}

// Line is one row as the list shows it.
type Line struct {
	ID     int64
	Title  string
	Detail string
	Body   string
	Image  string
}

// Panel is the CRUD unit of one collection. It owns the listed rows, the form
// of the next record and the notice of the last action.
type Panel[T models.Row] struct {
	schema   *Schema
	store    Store[T]
	uploader Uploader
	line     func(T) Line
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	rows   []T
	form   Form
	state  State
	notice Notice
}

func New[T models.Row](schema *Schema, store Store[T], uploader Uploader, line func(T) Line, logger zerolog.Logger) *Panel[T] {
	return &Panel[T]{
		schema:   schema,
		store:    store,
		uploader: uploader,
		line:     line,
		logger:   logger.With().Str("collection", schema.Collection).Logger(),
		now:      time.Now,
		form:     Form{},
	}
}

func (p *Panel[T]) Schema() *Schema {
	return p.schema
}

// Load refetches the rows. On failure the previous rows are kept and the
// error is only logged.
func (p *Panel[T]) Load(ctx context.Context) error {
	rows, err := p.store.Select(ctx, p.schema.Query())
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list rows")
		return err
	}

	p.mu.Lock()
	p.rows = rows
	p.mu.Unlock()
	return nil
}

// Rows returns a copy of the listed rows.
func (p *Panel[T]) Rows() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]T, len(p.rows))
	copy(out, p.rows)
	return out
}

func (p *Panel[T]) begin(state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Idle {
		return ErrBusy
	}
	p.state = state
	return nil
}

func (p *Panel[T]) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// finish ends an action with its notice. A nil form keeps the current one.
func (p *Panel[T]) finish(n Notice, form Form) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Idle
	p.notice = n
	if form != nil {
		p.form = form
	}
}

// Create validates the form and inserts it as a new row. An attachment is
// uploaded first; if the upload fails nothing is inserted. A failed insert
// leaves an uploaded file in place.
func (p *Panel[T]) Create(ctx context.Context, form Form, file *Attachment) error {
	rec, err := p.schema.Validate(form)
	if err != nil {
		p.mu.Lock()
		if p.state == Idle {
			p.notice = Notice{Message: err.Error(), Failed: true}
			p.form = form.clone()
		}
		p.mu.Unlock()
		return err
	}

	state := Submitting
	if file != nil {
		state = Uploading
	}
	if err := p.begin(state); err != nil {
		return err
	}

	if p.schema.Attachment {
		var imageURL *string
		if file != nil {
			name := utils.ObjectName(p.now(), file.Filename)
			path, err := p.uploader.Upload(ctx, name, file.ContentType, file.Body, file.Size)
			if err != nil {
				p.logger.Error().Err(err).Str("object", name).Msg("image upload failed")
				p.finish(Notice{Message: "Image upload error: " + err.Error(), Failed: true}, form.clone())
				return err
			}
			imageURL = &path
			p.setState(Submitting)
		}
		rec["image_url"] = imageURL
	}

	id, err := p.store.Insert(ctx, rec)
	if err != nil {
		p.logger.Error().Err(err).Msg("insert failed")
		p.finish(Notice{Message: "Error adding " + p.schema.Noun + ": " + err.Error(), Failed: true}, form.clone())
		return err
	}

	p.logger.Info().Int64("id", id).Msg("row added")
	p.finish(Notice{Message: p.schema.AddedMessage()}, Form{})
	_ = p.Load(ctx)
	return nil
}

// Remove deletes the row id. Nothing is sent unless confirmed is true.
func (p *Panel[T]) Remove(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := p.begin(Submitting); err != nil {
		return err
	}

	if err := p.store.Delete(ctx, id); err != nil {
		p.logger.Error().Err(err).Int64("id", id).Msg("delete failed")
		p.finish(Notice{Message: "Delete error: " + err.Error(), Failed: true}, nil)
		return err
	}

	p.logger.Info().Int64("id", id).Msg("row deleted")
	p.finish(Notice{Message: "Deleted!"}, nil)
	_ = p.Load(ctx)
	return nil
}

// View is a snapshot of the panel for rendering.
type View struct {
	Schema *Schema
	Form   Form
	Lines  []Line
	Notice Notice
	State  State
}

func (v View) Busy() bool {
	return v.State != Idle
}

func (v View) Uploading() bool {
	return v.State == Uploading
}

// View returns the current snapshot and clears the notice, so each notice is
// shown once.
func (p *Panel[T]) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := make([]Line, 0, len(p.rows))
	for _, row := range p.rows {
		lines = append(lines, p.line(row))
	}
	v := View{
		Schema: p.schema,
		Form:   p.form.clone(),
		Lines:  lines,
		Notice: p.notice,
		State:  p.state,
	}
	p.notice = Notice{}
	return v
}
