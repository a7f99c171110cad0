package system

import (
	coresys "github.com/l1jgo/assetstage/internal/core/system"
	"github.com/l1jgo/assetstage/internal/world"
)

// CleanupSystem flushes the deferred destruction queue at cycle end.
// Phase 7 (Cleanup).
type CleanupSystem struct {
	world *world.State
}

func NewCleanupSystem(ws *world.State) *CleanupSystem {
	return &CleanupSystem{world: ws}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ *coresys.Frame) {
	s.world.FlushDestroyQueue()
}
