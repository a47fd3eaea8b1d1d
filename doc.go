// Package softmask renders soft-edged (gradient, anti-aliased) masks for
// 2D scene graphs drawn with [Ebitengine].
//
// A mask node draws its geometry into one color channel of an offscreen
// mask buffer. Masks nested inside each other share their root's buffer, one
// channel per nesting level, so up to four levels cost a single buffer.
// Elements drawn through a mask sample the buffer with a derived material
// that the [Context] creates on demand and reference-counts.
//
// # Context
//
// All soft-mask state lives in a [Context]. It is single-threaded and meant
// to be driven once per frame in two phases:
//
//	ctx.SubmitFrameChanges() // detect moved nodes, resized surfaces, camera changes
//	ctx.RenderDirtyRoots()   // re-render every dirty root's buffer
//
// A host scene graph connects to the Context through the [SceneElement] and
// [Surface] interfaces and the Attach / Activate / Deactivate /
// AncestryChanged / Destroy calls. Consumers call [Context.Acquire] each
// draw to obtain their derived material.
//
// # Reference host
//
// [Canvas] and [Element] are a small retained-mode host that does all of the
// above. [Canvas.Draw] runs the tick and draws masked elements:
//
//	ctx := softmask.NewContext(softmask.Options{})
//	cv := softmask.NewCanvas(ctx, 640, 480)
//
//	window := softmask.NewElement("window")
//	window.EnableSoftMask(ctx)
//	window.SetMaskShape(softmask.FeatheredRectMesh(300, 200, 24))
//	cv.Root().AddChild(window)
//
//	photo := softmask.NewSprite("photo", img)
//	photo.SetMaskable(true)
//	window.AddChild(photo)
//
// # Depth
//
// A node's channel is its root's stencil depth (enclosing hard masks) plus
// its nesting level. Nodes with MergeWithParentBucket share their parent's
// channel. Nodes that would need a fifth channel are left out of the render.
//
// # Configuration
//
// Node settings persist as [MaskConfig] and consumer settings as
// [MaskableConfig], in JSON, YAML or TOML ([LoadMaskConfig] picks the format
// from the file extension). Buffers and derived materials are never
// persisted.
//
// # Logging
//
// softmask is silent by default. Use [SetLogger] or [Options].Logger to
// receive consistency errors and cache warnings through log/slog.
//
// [Ebitengine]: https://ebitengine.org
package softmask
