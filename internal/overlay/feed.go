// Package overlay samples transform scale of tracked objects each cycle and
// emits one readout line per object. It never mutates the world.
package overlay

import (
	"fmt"
	"io"
	"strings"

	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/l1jgo/assetstage/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Sink receives readout lines.
type Sink interface {
	Line(s string)
}

// LogSink writes lines at debug level so a console run shows them only
// when asked.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Line(line string) { s.Log.Debug(line) }

// WriterSink writes one line per call to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Line(line string) { fmt.Fprintln(s.W, line) }

// Options configure what the feed reads and how numbers print.
type Options struct {
	Marker    string // marker component to follow; empty = scene roots
	Locale    string // BCP 47 tag
	Precision int
}

type Feed struct {
	world     *world.State
	filter    world.Filter
	printer   *message.Printer
	precision int
	sink      Sink
}

func NewFeed(ws *world.State, opts Options, sink Sink) (*Feed, error) {
	tag := language.English
	if opts.Locale != "" {
		t, err := language.Parse(opts.Locale)
		if err != nil {
			return nil, fmt.Errorf("overlay locale %q: %w", opts.Locale, err)
		}
		tag = t
	}
	filter := world.Filter{Scene: true}
	if opts.Marker != "" {
		filter = world.Filter{Marker: opts.Marker}
	}
	if opts.Precision < 0 {
		opts.Precision = 0
	}
	return &Feed{
		world:     ws,
		filter:    filter,
		printer:   message.NewPrinter(tag),
		precision: opts.Precision,
		sink:      sink,
	}, nil
}

// Sample emits and returns the readout for this cycle. No tracked objects
// means no lines.
func (f *Feed) Sample() []string {
	ids := f.world.Query(f.filter)
	if len(ids) == 0 {
		return nil
	}
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		tr, ok := f.world.Transforms.Get(id)
		if !ok {
			continue
		}
		line := f.format(id, tr.Scale)
		f.sink.Line(line)
		lines = append(lines, line)
	}
	return lines
}

func (f *Feed) format(id ecs.EntityID, v mathx.Vec3) string {
	parts := make([]string, 3)
	for i, c := range v {
		parts[i] = f.printer.Sprintf("%v", number.Decimal(c,
			number.MinFractionDigits(f.precision),
			number.MaxFractionDigits(f.precision)))
	}
	return f.world.Name(id) + " scale: (" + strings.Join(parts, ", ") + ")"
}
