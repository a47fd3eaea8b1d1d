// Package ecs provides ECS adapters for softmask.
//
// [NewStencilListener] bridges stencil-state notifications from a
// [softmask.Context] into a [Donburi] world as typed events. Subscribe to
// [StencilStateChangedEventType] in your ECS systems to receive them.
//
// [MaskComponent] stores a mask node handle and its configuration on an
// entity; [SyncMaskConfigs] pushes those configurations into the Context.
//
// Usage:
//
//	ctx := softmask.NewContext(softmask.Options{
//		Listener: ecs.NewStencilListener(world),
//	})
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
