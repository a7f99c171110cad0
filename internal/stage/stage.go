// Package stage assembles the registry, tracker, world and cycle systems
// into one steppable unit. The load state lives in the runner's frame and
// is threaded through every system; nothing here is process-global.
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/assetstage/internal/activation"
	"github.com/l1jgo/assetstage/internal/animation"
	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/config"
	"github.com/l1jgo/assetstage/internal/core/event"
	coresys "github.com/l1jgo/assetstage/internal/core/system"
	"github.com/l1jgo/assetstage/internal/loadstate"
	"github.com/l1jgo/assetstage/internal/overlay"
	"github.com/l1jgo/assetstage/internal/persist"
	"github.com/l1jgo/assetstage/internal/scene"
	"github.com/l1jgo/assetstage/internal/scripting"
	"github.com/l1jgo/assetstage/internal/system"
	"github.com/l1jgo/assetstage/internal/world"
	"go.uber.org/zap"
)

// Options carries the collaborators a stage is built from. Only Config,
// Decoder and Log are required.
type Options struct {
	Config  *config.Config
	Decoder asset.Decoder
	Log     *zap.Logger

	Policy  system.RevealPolicy // nil keeps hidden objects hidden
	Sink    overlay.Sink        // nil logs readouts at debug level
	Journal persist.Writer      // nil disables the load journal
}

type Stage struct {
	Assets     *asset.Registry
	World      *world.State
	Bus        *event.Bus
	Runner     *coresys.Runner
	Tracker    *loadstate.Tracker
	Activation *activation.Controller
	Driver     *animation.Driver

	transition *system.TransitionSystem
	journal    *system.JournalSystem
	tickets    []*asset.Ticket
	log        *zap.Logger
}

// New requests every collection asset and registers the cycle systems.
// Decodes start immediately on the registry's workers.
func New(opts Options, now time.Time) (*Stage, error) {
	cfg := opts.Config
	log := opts.Log

	s := &Stage{
		Assets: asset.NewRegistry(opts.Decoder, cfg.Assets.Root, cfg.Assets.Workers, log),
		World:  world.NewState(),
		Bus:    event.NewBus(),
		Runner: coresys.NewRunner(),
		log:    log,
	}

	members := make([]loadstate.Member, 0, len(cfg.Assets.Collection))
	for _, a := range cfg.Assets.Collection {
		kind, err := asset.ParseKind(a.Kind)
		if err != nil {
			s.Assets.Close()
			return nil, fmt.Errorf("asset %s: %w", a.ID, err)
		}
		t, err := s.Assets.Request(a.ID, a.Path, kind)
		if err != nil {
			s.Assets.Close()
			return nil, fmt.Errorf("request %s: %w", a.ID, err)
		}
		s.tickets = append(s.tickets, t)
		members = append(members, t)
	}
	s.Tracker = loadstate.NewTracker(loadstate.NewCollection(cfg.Stage.Name, members...), now)

	if err := s.wire(opts); err != nil {
		s.Assets.Close()
		return nil, err
	}

	s.Runner.RegisterStartup("report requests", func() error {
		log.Info("assets requested",
			zap.String("collection", cfg.Stage.Name),
			zap.Int("tickets", len(s.tickets)),
			zap.Int("workers", cfg.Assets.Workers))
		return nil
	})
	if err := s.Runner.Start(now); err != nil {
		s.Assets.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stage) wire(opts Options) error {
	cfg := opts.Config
	log := opts.Log

	s.Runner.Register(system.NewEventDispatchSystem(s.Bus))
	s.Runner.Register(system.NewAssetPollSystem(s.Assets, s.Bus))

	s.transition = system.NewTransitionSystem(s.Tracker, s.Bus, cfg.Stage.StallWarning, log)
	s.Runner.Register(s.transition)

	if id := cfg.Activation.SceneAsset; id != "" {
		t, ok := s.Assets.Ticket(id)
		if !ok {
			return fmt.Errorf("activation: scene asset %q not requested", id)
		}
		target := activation.Target{Index: cfg.Activation.SceneIndex, Name: cfg.Activation.SceneName}
		s.Activation = activation.NewController(s.World, s.Assets, t, target, cfg.Activation.InitiallyHidden, log)
		s.transition.OnEnterLoaded("activate scene", func(*coresys.Frame) error {
			_, err := s.Activation.Activate()
			return err
		})
	}
	if cfg.Activation.SpawnViewpoint {
		s.transition.OnEnterLoaded("spawn viewpoint", func(*coresys.Frame) error {
			activation.SpawnViewpoint(s.World)
			return nil
		})
	}

	s.Runner.Register(system.NewSceneSpawnSystem(scene.NewInstancer(s.World, log)))

	if id := cfg.Animation.ClipAsset; id != "" {
		t, ok := s.Assets.Ticket(id)
		if !ok {
			return fmt.Errorf("animation: clip asset %q not requested", id)
		}
		repeat, err := component.ParseRepeat(cfg.Animation.Repeat)
		if err != nil {
			return fmt.Errorf("animation: %w", err)
		}
		s.Driver = animation.NewDriver(s.World, s.Assets, animation.Binding{
			Clip:   t,
			Repeat: repeat,
			Speed:  cfg.Animation.Speed,
		}, log)
		s.Runner.Register(system.NewAnimationSystem(s.Driver, animation.NewSampler(s.World)))
	}

	policy := opts.Policy
	if policy == nil {
		policy = keepHidden{}
	}
	s.Runner.Register(system.NewRevealSystem(s.World, policy, s.Tracker))

	if cfg.Overlay.Enabled {
		sink := opts.Sink
		if sink == nil {
			sink = overlay.LogSink{Log: log}
		}
		feed, err := overlay.NewFeed(s.World, overlay.Options{
			Marker:    cfg.Overlay.Marker,
			Locale:    cfg.Overlay.Locale,
			Precision: cfg.Overlay.Precision,
		}, sink)
		if err != nil {
			return err
		}
		s.Runner.Register(system.NewOverlaySystem(feed))
	}

	if opts.Journal != nil {
		s.journal = system.NewJournalSystem(s.Bus, opts.Journal, cfg.Journal.FlushInterval, log)
		s.Runner.Register(s.journal)
	}

	s.Runner.Register(system.NewCleanupSystem(s.World))
	return nil
}

type keepHidden struct{}

func (keepHidden) ShouldReveal(scripting.RevealContext) bool { return false }

// Watch reloads failed tickets when w reports their file changed.
func (s *Stage) Watch(w *asset.Watcher) {
	s.Runner.Register(system.NewAssetWatchSystem(s.Assets, w, s.log))
}

// WatchDirs returns the directories holding the collection's files.
func (s *Stage) WatchDirs() []string { return asset.Dirs(s.tickets) }

// Step runs one cycle.
func (s *Stage) Step(now time.Time, dt time.Duration) *coresys.Frame {
	return s.Runner.Tick(now, dt)
}

// State returns the current load state.
func (s *Stage) State() loadstate.State { return s.Runner.Frame().State }

// Tickets returns the collection's tickets in request order.
func (s *Stage) Tickets() []*asset.Ticket {
	return append([]*asset.Ticket(nil), s.tickets...)
}

// HookFailures returns how many on-enter hooks failed.
func (s *Stage) HookFailures() int { return s.transition.HookFailures() }

// Close flushes the journal and waits for running decodes.
func (s *Stage) Close(ctx context.Context) error {
	var err error
	if s.journal != nil {
		s.Bus.SwapBuffers()
		s.Bus.DispatchAll()
		err = s.journal.Flush(ctx)
		if n := s.journal.Dropped(); n > 0 {
			s.log.Warn("journal records dropped while the writer was failing",
				zap.Int("dropped", n), zap.Int("unwritten", s.journal.Pending()))
		}
	}
	s.Assets.Close()
	return err
}
