// Package animation binds clips to newly appeared animation players and
// samples playing clips into node transforms.
package animation

import (
	"fmt"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/world"
	"go.uber.org/zap"
)

// InvariantViolation means a binding referenced a clip that should have been
// resolved before Loaded was entered. The binding is skipped; no shared state
// is touched.
type InvariantViolation struct {
	Entity ecs.EntityID
	Ticket string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("animation invariant violated on %s (clip %s): %s", e.Entity, e.Ticket, e.Reason)
}

// Resolver hands out decoded payloads of resolved tickets.
type Resolver interface {
	Get(t *asset.Ticket) (asset.Decoded, bool)
}

// Binding is the clip every new player is bound to, and how it plays.
type Binding struct {
	Clip   *asset.Ticket
	Repeat component.Repeat
	Speed  float64
}

// Driver detects players that appeared since the last cycle and starts the
// bound clip on each exactly once. Appearance is tracked with a seen-set of
// entity ids; generational ids make a recycled slot count as a new object.
type Driver struct {
	world   *world.State
	assets  Resolver
	binding Binding
	log     *zap.Logger

	seen       map[ecs.EntityID]struct{}
	violations int
}

func NewDriver(ws *world.State, assets Resolver, b Binding, log *zap.Logger) *Driver {
	if b.Speed == 0 {
		b.Speed = 1
	}
	return &Driver{
		world:   ws,
		assets:  assets,
		binding: b,
		log:     log,
		seen:    make(map[ecs.EntityID]struct{}),
	}
}

// Update binds every newly appeared player and returns how many it started.
func (d *Driver) Update() int {
	started := 0
	for _, id := range d.world.Players.IDs() {
		if _, ok := d.seen[id]; ok {
			continue
		}
		d.seen[id] = struct{}{}
		player, _ := d.world.Players.Get(id)
		if err := d.bind(id, player); err != nil {
			d.violations++
			d.log.Error("animation binding skipped", zap.Error(err))
			continue
		}
		started++
	}
	for id := range d.seen {
		if !d.world.Alive(id) {
			delete(d.seen, id)
		}
	}
	return started
}

func (d *Driver) bind(id ecs.EntityID, player *component.AnimationPlayer) error {
	ticket := d.binding.Clip
	decoded, ok := d.assets.Get(ticket)
	if !ok {
		return &InvariantViolation{Entity: id, Ticket: ticket.ID(), Reason: "clip ticket not resolved"}
	}
	if decoded.Clip == nil {
		return &InvariantViolation{Entity: id, Ticket: ticket.ID(), Reason: "ticket carries no animation clip"}
	}
	d.log.Info("animation started",
		zap.Stringer("entity", id),
		zap.String("clip", decoded.Clip.Name),
		zap.Float64("duration_s", decoded.Clip.Duration),
		zap.Stringer("repeat", d.binding.Repeat))
	Play(player, ticket.ID(), decoded.Clip, d.binding.Repeat, d.binding.Speed)
	return nil
}

// Violations returns how many bindings were skipped.
func (d *Driver) Violations() int { return d.violations }

// Play starts clip on p from the beginning.
func Play(p *component.AnimationPlayer, ticket string, clip *asset.Clip, repeat component.Repeat, speed float64) {
	p.Ticket = ticket
	p.Clip = clip
	p.Repeat = repeat
	p.Speed = speed
	p.Elapsed = 0
	p.Playing = true
	p.Finished = false
	p.Starts++
}
