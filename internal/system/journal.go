package system

import (
	"context"
	"time"

	"github.com/l1jgo/assetstage/internal/core/event"
	coresys "github.com/l1jgo/assetstage/internal/core/system"
	"github.com/l1jgo/assetstage/internal/persist"
	"go.uber.org/zap"
)

// maxBuffered caps records kept across failed flushes.
const maxBuffered = 1024

// JournalSystem collects asset outcomes from the bus and writes them to the
// load journal every flush interval. Phase 6 (Persist).
type JournalSystem struct {
	writer   persist.Writer
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration

	buf       []persist.LoadRecord
	lastFlush time.Time
	dropped   int
}

func NewJournalSystem(bus *event.Bus, w persist.Writer, interval time.Duration, log *zap.Logger) *JournalSystem {
	s := &JournalSystem{
		writer:   w,
		log:      log,
		interval: interval,
		timeout:  5 * time.Second,
	}
	event.Subscribe(bus, func(e event.AssetResolved) {
		s.add(persist.LoadRecord{
			Ticket:  e.Ticket,
			Kind:    e.Kind.String(),
			Path:    e.Path,
			Status:  "resolved",
			Digest:  e.Digest,
			Elapsed: e.Elapsed,
			Attempt: e.Attempt,
		})
	})
	event.Subscribe(bus, func(e event.AssetFailed) {
		rec := persist.LoadRecord{
			Ticket:  e.Ticket,
			Kind:    e.Kind.String(),
			Path:    e.Path,
			Status:  "failed",
			Elapsed: e.Elapsed,
			Attempt: e.Attempt,
		}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		s.add(rec)
	})
	return s
}

func (s *JournalSystem) add(rec persist.LoadRecord) {
	rec.At = time.Now()
	if len(s.buf) >= maxBuffered {
		s.buf = s.buf[1:]
		s.dropped++
	}
	s.buf = append(s.buf, rec)
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(f *coresys.Frame) {
	if len(s.buf) == 0 || f.Now.Sub(s.lastFlush) < s.interval {
		return
	}
	s.lastFlush = f.Now
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("journal flush failed, keeping records",
			zap.Int("pending", len(s.buf)), zap.Int("dropped", s.dropped), zap.Error(err))
	}
}

// Flush writes buffered records now. Records stay buffered on error.
// Called for graceful shutdown.
func (s *JournalSystem) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.writer.RecordLoads(ctx, s.buf); err != nil {
		return err
	}
	s.log.Debug("journal flushed", zap.Int("records", len(s.buf)))
	s.buf = nil
	return nil
}

// Pending returns the number of records not yet written.
func (s *JournalSystem) Pending() int { return len(s.buf) }

// Dropped returns how many records were discarded because the buffer was full.
func (s *JournalSystem) Dropped() int { return s.dropped }
