package softmask

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// transformVertices applies an affine transform and color tint to src vertices,
// writing the result into dst. dst must be at least len(src) in length.
//
// Matrix layout: [0]=a, [1]=b, [2]=c, [3]=d, [4]=tx, [5]=ty
// newX = a*x + c*y + tx, newY = b*x + d*y + ty
//
// Color components are multiplied (vertex color * tint). The tint's alpha
// already has worldAlpha baked in.
func transformVertices(src, dst []ebiten.Vertex, transform [6]float64, tint Color) {
	a, b, c, d, tx, ty := transform[0], transform[1], transform[2], transform[3], transform[4], transform[5]
	cr := float32(tint.R)
	cg := float32(tint.G)
	cb := float32(tint.B)
	ca := float32(tint.A)

	for i := range src {
		s := &src[i]
		ox := float64(s.DstX)
		oy := float64(s.DstY)
		dst[i] = ebiten.Vertex{
			DstX:   float32(a*ox + c*oy + tx),
			DstY:   float32(b*ox + d*oy + ty),
			SrcX:   s.SrcX,
			SrcY:   s.SrcY,
			ColorR: s.ColorR * cr * ca,
			ColorG: s.ColorG * cg * ca,
			ColorB: s.ColorB * cb * ca,
			ColorA: s.ColorA * ca,
		}
	}
}

// computeMeshAABB scans DstX/DstY of the given vertices and returns
// the axis-aligned bounding box in local space.
func computeMeshAABB(verts []ebiten.Vertex) Rect {
	if len(verts) == 0 {
		return Rect{}
	}
	minX := float64(verts[0].DstX)
	minY := float64(verts[0].DstY)
	maxX := minX
	maxY := minY
	for i := 1; i < len(verts); i++ {
		x := float64(verts[i].DstX)
		y := float64(verts[i].DstY)
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// maskVertex returns an untextured vertex with the given coverage.
func maskVertex(x, y, coverage float64) ebiten.Vertex {
	return ebiten.Vertex{
		DstX:   float32(x),
		DstY:   float32(y),
		SrcX:   0.5,
		SrcY:   0.5,
		ColorR: 1,
		ColorG: 1,
		ColorB: 1,
		ColorA: float32(coverage),
	}
}

// RectMesh returns a solid rectangle covering (0,0)-(w,h).
func RectMesh(w, h float64) ([]ebiten.Vertex, []uint16) {
	verts := []ebiten.Vertex{
		maskVertex(0, 0, 1),
		maskVertex(w, 0, 1),
		maskVertex(w, h, 1),
		maskVertex(0, h, 1),
	}
	return verts, []uint16{0, 1, 2, 0, 2, 3}
}

// ImageMesh returns a rectangle the size of img with UVs covering the whole
// image, for sprite-shaped masks set with Context.SetMaskImage.
func ImageMesh(img *ebiten.Image) ([]ebiten.Vertex, []uint16) {
	if img == nil {
		return nil, nil
	}
	b := img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	ox, oy := float32(b.Min.X), float32(b.Min.Y)
	verts := []ebiten.Vertex{
		{DstX: 0, DstY: 0, SrcX: ox, SrcY: oy, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
		{DstX: w, DstY: 0, SrcX: ox + w, SrcY: oy, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
		{DstX: w, DstY: h, SrcX: ox + w, SrcY: oy + h, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
		{DstX: 0, DstY: h, SrcX: ox, SrcY: oy + h, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
	}
	return verts, []uint16{0, 1, 2, 0, 2, 3}
}

// FeatheredRectMesh returns a rectangle covering (0,0)-(w,h) whose coverage
// falls from 1 to 0 over the outer feather pixels. A feather of zero or one
// that consumes the whole rectangle yields RectMesh.
func FeatheredRectMesh(w, h, feather float64) ([]ebiten.Vertex, []uint16) {
	if feather <= 0 || 2*feather >= w || 2*feather >= h {
		return RectMesh(w, h)
	}
	f := feather
	verts := []ebiten.Vertex{
		// outer ring, coverage 0
		maskVertex(0, 0, 0),
		maskVertex(w, 0, 0),
		maskVertex(w, h, 0),
		maskVertex(0, h, 0),
		// inner ring, coverage 1
		maskVertex(f, f, 1),
		maskVertex(w-f, f, 1),
		maskVertex(w-f, h-f, 1),
		maskVertex(f, h-f, 1),
	}
	inds := []uint16{
		4, 5, 6, 4, 6, 7, // core
		0, 1, 5, 0, 5, 4, // top
		1, 2, 6, 1, 6, 5, // right
		2, 3, 7, 2, 7, 6, // bottom
		3, 0, 4, 3, 4, 7, // left
	}
	return verts, inds
}

// PolygonMesh returns a fan-triangulated solid polygon. Points must describe
// a convex polygon; fewer than three points yield nil.
func PolygonMesh(points []Vec2) ([]ebiten.Vertex, []uint16) {
	return buildPolygonFan(points, nil)
}

// TexturedPolygonMesh is PolygonMesh with UVs mapped from the polygon's
// bounding box onto img, so (minX,minY) samples the top-left of img.
func TexturedPolygonMesh(img *ebiten.Image, points []Vec2) ([]ebiten.Vertex, []uint16) {
	return buildPolygonFan(points, img)
}

// buildPolygonFan generates vertices and indices for a fan-triangulated
// polygon. N vertices, 3*(N-2) indices. A nil img maps every vertex to the
// center of the white pixel.
func buildPolygonFan(points []Vec2, img *ebiten.Image) ([]ebiten.Vertex, []uint16) {
	n := len(points)
	if n < 3 {
		return nil, nil
	}

	verts := make([]ebiten.Vertex, n)
	inds := make([]uint16, (n-2)*3)

	var bounds Rect
	var imgW, imgH float64
	if img != nil {
		tmp := make([]ebiten.Vertex, n)
		for i, p := range points {
			tmp[i].DstX, tmp[i].DstY = float32(p.X), float32(p.Y)
		}
		bounds = computeMeshAABB(tmp)
		b := img.Bounds()
		imgW = float64(b.Dx())
		imgH = float64(b.Dy())
	}

	for i, p := range points {
		verts[i] = maskVertex(p.X, p.Y, 1)
		if img == nil {
			continue
		}
		var u, v float64
		if bounds.Width > 0 {
			u = (p.X - bounds.X) / bounds.Width * imgW
		}
		if bounds.Height > 0 {
			v = (p.Y - bounds.Y) / bounds.Height * imgH
		}
		verts[i].SrcX = float32(u)
		verts[i].SrcY = float32(v)
	}

	// Fan triangulation: vertex 0 is the hub.
	for i := 0; i < n-2; i++ {
		inds[i*3+0] = 0
		inds[i*3+1] = uint16(i + 1)
		inds[i*3+2] = uint16(i + 2)
	}
	return verts, inds
}

// minEllipseSegments is the lowest segment count EllipseMesh accepts.
const minEllipseSegments = 8

// EllipseMesh returns an ellipse centered on (cx, cy). With a positive
// feather the coverage falls from 1 to 0 over the outer feather pixels.
func EllipseMesh(cx, cy, rx, ry, feather float64, segments int) ([]ebiten.Vertex, []uint16) {
	if rx <= 0 || ry <= 0 {
		return nil, nil
	}
	segments = max(segments, minEllipseSegments)
	feathered := feather > 0 && feather < math.Min(rx, ry)

	rings := 1
	if feathered {
		rings = 2
	}
	verts := make([]ebiten.Vertex, 0, 1+segments*rings)
	inds := make([]uint16, 0, segments*3*(1+2*(rings-1)))

	verts = append(verts, maskVertex(cx, cy, 1))
	innerRx, innerRy := rx, ry
	if feathered {
		innerRx, innerRy = rx-feather, ry-feather
	}
	for i := 0; i < segments; i++ {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / float64(segments))
		verts = append(verts, maskVertex(cx+cos*innerRx, cy+sin*innerRy, 1))
	}
	if feathered {
		for i := 0; i < segments; i++ {
			sin, cos := math.Sincos(2 * math.Pi * float64(i) / float64(segments))
			verts = append(verts, maskVertex(cx+cos*rx, cy+sin*ry, 0))
		}
	}

	for i := 0; i < segments; i++ {
		a := uint16(1 + i)
		b := uint16(1 + (i+1)%segments)
		inds = append(inds, 0, a, b)
		if feathered {
			oa := a + uint16(segments)
			ob := b + uint16(segments)
			inds = append(inds, a, oa, ob, a, ob, b)
		}
	}
	return verts, inds
}
