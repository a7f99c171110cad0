package animation

import (
	"math"
	"sort"
	"time"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/l1jgo/assetstage/internal/world"
)

// Sampler advances playing clips and writes sampled values into the target
// node transforms.
type Sampler struct {
	world *world.State
}

func NewSampler(ws *world.State) *Sampler {
	return &Sampler{world: ws}
}

// Advance moves every playing clip forward by dt.
func (s *Sampler) Advance(dt time.Duration) {
	s.world.Players.Each(func(_ ecs.EntityID, p *component.AnimationPlayer) {
		if !p.Playing || p.Clip == nil {
			return
		}
		step(p, dt.Seconds()*p.Speed)
		s.apply(p)
	})
}

func step(p *component.AnimationPlayer, secs float64) {
	d := p.Clip.Duration
	if d <= 0 {
		p.Elapsed = 0
		return
	}
	p.Elapsed += secs
	if p.Elapsed < d {
		return
	}
	if p.Repeat == component.RepeatLoop {
		p.Elapsed = math.Mod(p.Elapsed, d)
		return
	}
	p.Elapsed = d
	p.Playing = false
	p.Finished = true
}

func (s *Sampler) apply(p *component.AnimationPlayer) {
	for i := range p.Clip.Tracks {
		track := &p.Clip.Tracks[i]
		target, ok := p.Targets[track.Node]
		if !ok {
			continue
		}
		tr, ok := s.world.Transforms.Get(target)
		if !ok {
			continue
		}
		v, ok := Sample(track, p.Elapsed)
		if !ok {
			continue
		}
		switch track.Property {
		case asset.PropertyTranslation:
			tr.Translation = v
		case asset.PropertyScale:
			tr.Scale = v
		}
	}
}

// Sample evaluates track at t seconds, clamping outside the key range.
func Sample(track *asset.Track, t float64) (mathx.Vec3, bool) {
	n := len(track.Times)
	if n == 0 || len(track.Values) != n {
		return mathx.Vec3{}, false
	}
	if t <= track.Times[0] {
		return track.Values[0], true
	}
	if t >= track.Times[n-1] {
		return track.Values[n-1], true
	}
	// first key strictly after t; t lies in [k-1, k)
	k := sort.Search(n, func(i int) bool { return track.Times[i] > t })
	a, b := track.Times[k-1], track.Times[k]
	if track.Step || b == a {
		return track.Values[k-1], true
	}
	return mathx.Lerp(track.Values[k-1], track.Values[k], (t-a)/(b-a)), true
}
