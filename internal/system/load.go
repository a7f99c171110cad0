// Package system holds the cycle systems that drive asset loading, the
// Loading -> Loaded transition and everything gated on Loaded.
package system

import (
	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/core/event"
	coresys "github.com/l1jgo/assetstage/internal/core/system"
	"go.uber.org/zap"
)

// EventDispatchSystem delivers events emitted in the previous cycle.
// Phase 0 (Load), registered first.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseLoad }

func (s *EventDispatchSystem) Update(_ *coresys.Frame) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// AssetPollSystem drains finished decodes into ticket state and reports each
// outcome on the bus. Phase 0 (Load).
type AssetPollSystem struct {
	assets *asset.Registry
	bus    *event.Bus
}

func NewAssetPollSystem(assets *asset.Registry, bus *event.Bus) *AssetPollSystem {
	return &AssetPollSystem{assets: assets, bus: bus}
}

func (s *AssetPollSystem) Phase() coresys.Phase { return coresys.PhaseLoad }

func (s *AssetPollSystem) Update(_ *coresys.Frame) {
	for _, o := range s.assets.Poll() {
		t := o.Ticket
		switch o.Status {
		case asset.StatusResolved:
			digest := ""
			if d, ok := s.assets.Get(t); ok && d.Document != nil {
				digest = d.Document.Digest
			}
			event.Emit(s.bus, event.AssetResolved{
				Ticket:  t.ID(),
				Kind:    t.Kind(),
				Path:    t.Path(),
				Digest:  digest,
				Elapsed: o.Elapsed,
				Attempt: t.Attempts(),
			})
		case asset.StatusFailed:
			event.Emit(s.bus, event.AssetFailed{
				Ticket:  t.ID(),
				Kind:    t.Kind(),
				Path:    t.Path(),
				Err:     o.Err,
				Elapsed: o.Elapsed,
				Attempt: t.Attempts(),
			})
		}
	}
}

// AssetWatchSystem re-requests failed tickets whose file changed on disk.
// Phase 0 (Load). A reload only dispatches a decode; its result arrives on a
// later poll.
type AssetWatchSystem struct {
	assets  *asset.Registry
	watcher *asset.Watcher
	log     *zap.Logger
}

func NewAssetWatchSystem(assets *asset.Registry, watcher *asset.Watcher, log *zap.Logger) *AssetWatchSystem {
	return &AssetWatchSystem{assets: assets, watcher: watcher, log: log}
}

func (s *AssetWatchSystem) Phase() coresys.Phase { return coresys.PhaseLoad }

func (s *AssetWatchSystem) Update(_ *coresys.Frame) {
	for {
		select {
		case path, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if n := s.assets.ReloadPath(path); n > 0 {
				s.log.Info("asset file changed, reloading failed tickets",
					zap.String("path", path), zap.Int("tickets", n))
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("asset watcher error", zap.Error(err))
		default:
			return
		}
	}
}
