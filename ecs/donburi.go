package ecs

import (
	"github.com/phanxgames/softmask"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// StencilStateChanged is published when a render changed the stencil depth
// of at least one mask node under Root.
type StencilStateChanged struct {
	Root softmask.Handle
}

// StencilStateChangedEventType is the Donburi event type for stencil-state
// notifications.
var StencilStateChangedEventType = events.NewEventType[StencilStateChanged]()

type donburiListener struct {
	world donburi.World
}

// NewStencilListener creates a StencilListener that publishes to
// StencilStateChangedEventType in world. Events are queued until
// ProcessEvents is called.
func NewStencilListener(world donburi.World) softmask.StencilListener {
	return &donburiListener{world: world}
}

func (l *donburiListener) StencilStateChanged(root softmask.Handle) {
	StencilStateChangedEventType.Publish(l.world, StencilStateChanged{Root: root})
}

// MaskBinding ties an entity to a mask node and the configuration it should
// carry.
type MaskBinding struct {
	Handle softmask.Handle
	Config softmask.MaskConfig
}

// MaskComponent is the Donburi component holding a MaskBinding.
var MaskComponent = donburi.NewComponentType[MaskBinding]()

var maskQuery = donburi.NewQuery(filter.Contains(MaskComponent))

// SyncMaskConfigs applies the configuration of every entity with a
// MaskComponent to its node in ctx. Entities whose handle is no longer valid
// are skipped. Returns the number of nodes updated.
func SyncMaskConfigs(world donburi.World, ctx *softmask.Context) int {
	n := 0
	maskQuery.Each(world, func(entry *donburi.Entry) {
		b := MaskComponent.Get(entry)
		if !ctx.IsValid(b.Handle) {
			return
		}
		ctx.ApplyMaskConfig(b.Handle, b.Config)
		n++
	})
	return n
}
