package asset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Decoder turns a file on disk into a Document. Implementations are called
// from worker goroutines and must not touch Registry state.
type Decoder interface {
	Decode(path string) (*Document, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(path string) (*Document, error)

func (f DecoderFunc) Decode(path string) (*Document, error) { return f(path) }

// Outcome reports one ticket settling during Poll or Await.
type Outcome struct {
	Ticket  *Ticket
	Status  Status
	Err     error
	Elapsed time.Duration
}

type completion struct {
	path string
	doc  *Document
	err  error
}

// fileLoad is the shared decode state of one file. Every ticket naming the
// same file, labelled or not, waits on the same decode.
type fileLoad struct {
	path     string
	doc      *Document
	err      error
	inflight bool
	waiting  []*Ticket
}

// Registry issues tickets and resolves them from asynchronous decodes.
//
// Decodes run on worker goroutines bounded by a semaphore and report back on
// a channel. Ticket state is only written by Poll/Await, which the cycle loop
// calls, so tickets need no locks; the channel receive orders the worker's
// writes before the cycle that observes them.
type Registry struct {
	dec  Decoder
	root string
	sem  *semaphore.Weighted
	done chan completion
	wg   sync.WaitGroup

	tickets map[string]*Ticket
	order   []*Ticket
	files   map[string]*fileLoad
	local   []*Ticket // tickets whose file was already decoded when requested

	now func() time.Time
	log *zap.Logger
}

// NewRegistry creates a registry resolving relative paths against root and
// running at most workers decodes at once.
func NewRegistry(dec Decoder, root string, workers int, log *zap.Logger) *Registry {
	if workers < 1 {
		workers = 1
	}
	return &Registry{
		dec:     dec,
		root:    root,
		sem:     semaphore.NewWeighted(int64(workers)),
		done:    make(chan completion, 64),
		tickets: make(map[string]*Ticket),
		files:   make(map[string]*fileLoad),
		now:     time.Now,
		log:     log,
	}
}

// Resolve maps a request path to the file path the decoder is handed.
func (r *Registry) Resolve(path string) string {
	if r.root == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.root, path)
}

// Request issues a ticket for raw, which may carry a "#Label" suffix, and
// begins decoding the file if no decode for it is running or done.
// Requesting the same id again returns the original ticket.
func (r *Registry) Request(id, raw string, kind Kind) (*Ticket, error) {
	file, label, err := SplitPath(raw)
	if err != nil {
		return nil, err
	}
	if !label.IsZero() && label.Kind != kind {
		return nil, fmt.Errorf("asset %s: label %s does not match kind %s", id, label, kind)
	}
	path := r.Resolve(file)

	if t, ok := r.tickets[id]; ok {
		if t.path != path || t.kind != kind || t.label != label {
			return nil, fmt.Errorf("%w: %s", ErrConflict, id)
		}
		return t, nil
	}

	t := &Ticket{id: id, kind: kind, path: path, label: label}
	r.tickets[id] = t
	r.order = append(r.order, t)
	r.attach(t)
	return t, nil
}

// Reload re-dispatches a failed ticket. The ticket returns to Loading.
func (r *Registry) Reload(t *Ticket) error {
	if !r.owns(t) {
		return ErrUnknownTicket
	}
	if t.status != StatusFailed {
		return fmt.Errorf("%w: %s is %s", ErrNotFailed, t.id, t.status)
	}
	t.status = StatusLoading
	t.err = nil
	f := r.file(t.path)
	f.doc, f.err = nil, nil // force a fresh decode; the file may have changed
	r.attach(t)
	return nil
}

// ReloadPath reloads every failed ticket naming the given file and returns
// how many were reloaded. path may be a watcher path, already under root, or
// a request path relative to root.
func (r *Registry) ReloadPath(path string) int {
	clean, resolved := filepath.Clean(path), r.Resolve(path)
	n := 0
	for _, t := range r.order {
		if (t.path == clean || t.path == resolved) && t.status == StatusFailed {
			if err := r.Reload(t); err == nil {
				n++
			}
		}
	}
	return n
}

func (r *Registry) attach(t *Ticket) {
	t.requestedAt = r.now()
	t.attempts++
	f := r.file(t.path)
	switch {
	case f.inflight:
		f.waiting = append(f.waiting, t)
	case f.doc != nil:
		r.local = append(r.local, t)
	default:
		f.waiting = append(f.waiting, t)
		r.dispatch(f)
	}
}

func (r *Registry) file(path string) *fileLoad {
	f, ok := r.files[path]
	if !ok {
		f = &fileLoad{path: path}
		r.files[path] = f
	}
	return f
}

func (r *Registry) dispatch(f *fileLoad) {
	f.inflight = true
	r.log.Debug("asset decode dispatched", zap.String("path", f.path))
	r.wg.Add(1)
	go func(path string) {
		defer r.wg.Done()
		// No cancellation: a dispatched decode always runs to completion.
		_ = r.sem.Acquire(context.Background(), 1)
		doc, err := r.decode(path)
		r.sem.Release(1)
		r.done <- completion{path: path, doc: doc, err: err}
	}(f.path)
}

// decode runs the decoder, turning a panic into an error for this file only.
func (r *Registry) decode(path string) (doc *Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("asset decoder panicked", zap.String("path", path), zap.Any("panic", p))
			doc, err = nil, fmt.Errorf("decode %s: panic: %v", path, p)
		}
	}()
	return r.dec.Decode(path)
}

// Poll settles every decode that has completed since the last call. It never
// blocks.
func (r *Registry) Poll() []Outcome {
	out := r.settleLocal(nil)
	for {
		select {
		case c := <-r.done:
			out = r.settle(c, out)
		default:
			return out
		}
	}
}

func (r *Registry) settleLocal(out []Outcome) []Outcome {
	if len(r.local) == 0 {
		return out
	}
	local := r.local
	r.local = nil
	for _, t := range local {
		f := r.files[t.path]
		if f.doc == nil {
			// the file was reloaded after t was queued; wait for the new decode
			f.waiting = append(f.waiting, t)
			if !f.inflight {
				r.dispatch(f)
			}
			continue
		}
		out = append(out, r.resolve(t, f.doc))
	}
	return out
}

func (r *Registry) settle(c completion, out []Outcome) []Outcome {
	if c.err == nil && c.doc == nil {
		c.err = fmt.Errorf("decode %s: decoder returned no document", c.path)
	}
	f := r.file(c.path)
	f.inflight = false
	f.doc, f.err = c.doc, c.err
	waiting := f.waiting
	f.waiting = nil
	for _, t := range waiting {
		if t.status != StatusLoading {
			continue
		}
		if c.err != nil {
			out = append(out, r.fail(t, c.err))
			continue
		}
		out = append(out, r.resolve(t, c.doc))
	}
	return out
}

func (r *Registry) resolve(t *Ticket, doc *Document) Outcome {
	payload := Decoded{Document: doc}
	switch t.kind {
	case KindSceneGraph:
		if !t.label.IsZero() && !hasScene(doc, t.label) {
			return r.fail(t, &MissingLabelError{Path: t.path, Label: t.label})
		}
	case KindAnimationClip:
		clip := findClip(doc, t.label)
		if clip == nil {
			label := t.label
			if label.IsZero() {
				label = Label{Kind: KindAnimationClip, Index: 0, set: true}
			}
			return r.fail(t, &MissingLabelError{Path: t.path, Label: label})
		}
		payload.Clip = clip
	}
	t.status = StatusResolved
	t.payload = payload
	t.settledAt = r.now()
	r.log.Info("asset resolved",
		zap.String("asset", t.id),
		zap.String("kind", t.kind.String()),
		zap.Duration("elapsed", t.LoadTime()))
	return Outcome{Ticket: t, Status: StatusResolved, Elapsed: t.LoadTime()}
}

func (r *Registry) fail(t *Ticket, err error) Outcome {
	t.status = StatusFailed
	t.err = err
	t.settledAt = r.now()
	r.log.Error("asset failed",
		zap.String("asset", t.id),
		zap.String("path", t.path),
		zap.Error(err))
	return Outcome{Ticket: t, Status: StatusFailed, Err: err, Elapsed: t.LoadTime()}
}

func hasScene(doc *Document, l Label) bool {
	if l.Name != "" {
		_, ok := doc.SceneByName(l.Name)
		return ok
	}
	return l.Index < len(doc.Scenes)
}

func findClip(doc *Document, l Label) *Clip {
	if l.Name != "" {
		c, _ := doc.ClipByName(l.Name)
		return c
	}
	idx := 0
	if !l.IsZero() {
		idx = l.Index
	}
	if idx >= len(doc.Clips) {
		return nil
	}
	return &doc.Clips[idx]
}

func (r *Registry) owns(t *Ticket) bool {
	return t != nil && r.tickets[t.id] == t
}

// IsResolved reports whether t resolved. Safe to call every cycle.
func (r *Registry) IsResolved(t *Ticket) bool {
	return r.owns(t) && t.status == StatusResolved
}

// Get returns the decoded payload of a resolved ticket.
func (r *Registry) Get(t *Ticket) (Decoded, bool) {
	if !r.IsResolved(t) {
		return Decoded{}, false
	}
	return t.payload, true
}

// Ticket looks up a ticket by id.
func (r *Registry) Ticket(id string) (*Ticket, bool) {
	t, ok := r.tickets[id]
	return t, ok
}

// Tickets returns all tickets in request order.
func (r *Registry) Tickets() []*Ticket {
	return append([]*Ticket(nil), r.order...)
}

// Pending returns tickets still loading, in request order.
func (r *Registry) Pending() []*Ticket {
	return r.filter(StatusLoading)
}

// Failed returns failed tickets, in request order.
func (r *Registry) Failed() []*Ticket {
	return r.filter(StatusFailed)
}

func (r *Registry) filter(s Status) []*Ticket {
	var out []*Ticket
	for _, t := range r.order {
		if t.status == s {
			out = append(out, t)
		}
	}
	return out
}

// Close waits for running decodes, discarding their results.
func (r *Registry) Close() {
	stop := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(stop)
	}()
	for {
		select {
		case <-r.done:
		case <-stop:
			return
		}
	}
}
