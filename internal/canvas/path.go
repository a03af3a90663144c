package canvas

import (
	"image"
	"math"

	"golang.org/x/image/vector"
)

// Point is a position in target pixel space.
type Point struct {
	X, Y float64
}

type opKind uint8

const (
	opMove opKind = iota
	opLine
	opQuad
	opCube
	opClose
)

type pathOp struct {
	kind opKind
	pts  [3]Point
}

// Path records a vector outline that FillPath rasterizes. Sub-paths are
// combined with the nonzero rule, so reversing a sub-path cuts a hole.
type Path struct {
	ops []pathOp
}

// NewPath returns an empty path.
func NewPath() *Path { return &Path{} }

// Empty reports whether the path has no drawing operations.
func (p *Path) Empty() bool { return len(p.ops) == 0 }

func (p *Path) MoveTo(x, y float64) {
	p.ops = append(p.ops, pathOp{kind: opMove, pts: [3]Point{{x, y}}})
}

func (p *Path) LineTo(x, y float64) {
	p.ops = append(p.ops, pathOp{kind: opLine, pts: [3]Point{{x, y}}})
}

func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.ops = append(p.ops, pathOp{kind: opQuad, pts: [3]Point{{cx, cy}, {x, y}}})
}

func (p *Path) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.ops = append(p.ops, pathOp{kind: opCube, pts: [3]Point{{c1x, c1y}, {c2x, c2y}, {x, y}}})
}

func (p *Path) Close() {
	p.ops = append(p.ops, pathOp{kind: opClose})
}

// kappa places cubic control points so four arcs approximate a circle.
const kappa = 0.5522847498

// Circle appends a clockwise circle.
func (p *Path) Circle(cx, cy, r float64) {
	k := r * kappa
	p.MoveTo(cx+r, cy)
	p.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	p.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	p.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	p.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	p.Close()
}

// CircleReverse appends a counter-clockwise circle.
func (p *Path) CircleReverse(cx, cy, r float64) {
	if r <= 0 {
		return
	}
	k := r * kappa
	p.MoveTo(cx+r, cy)
	p.CubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
	p.CubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
	p.CubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
	p.CubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
	p.Close()
}

// Segment appends a quad covering a line of the given width.
func (p *Path) Segment(x0, y0, x1, y1, width float64) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 || width <= 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	p.MoveTo(x0+nx, y0+ny)
	p.LineTo(x1+nx, y1+ny)
	p.LineTo(x1-nx, y1-ny)
	p.LineTo(x0-nx, y0-ny)
	p.Close()
}

// Polygon appends a closed polygon through pts.
func (p *Path) Polygon(pts []Point) {
	if len(pts) < 3 {
		return
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	for _, q := range pts[1:] {
		p.LineTo(q.X, q.Y)
	}
	p.Close()
}

// bounds returns the integer rectangle covering every recorded point. Control
// points are included, so curves always lie inside it.
func (p *Path) bounds() image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, op := range p.ops {
		n := 0
		switch op.kind {
		case opMove, opLine:
			n = 1
		case opQuad:
			n = 2
		case opCube:
			n = 3
		}
		for _, q := range op.pts[:n] {
			minX, minY = math.Min(minX, q.X), math.Min(minY, q.Y)
			maxX, maxY = math.Max(maxX, q.X), math.Max(maxY, q.Y)
		}
	}
	if minX > maxX {
		return image.Rectangle{}
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
}

// replay feeds the path into z with every point shifted by (-ox, -oy).
func (p *Path) replay(z *vector.Rasterizer, ox, oy float64) {
	pt := func(q Point) (float32, float32) { return float32(q.X - ox), float32(q.Y - oy) }
	for _, op := range p.ops {
		ax, ay := pt(op.pts[0])
		switch op.kind {
		case opMove:
			z.MoveTo(ax, ay)
		case opLine:
			z.LineTo(ax, ay)
		case opQuad:
			bx, by := pt(op.pts[1])
			z.QuadTo(ax, ay, bx, by)
		case opCube:
			bx, by := pt(op.pts[1])
			cx, cy := pt(op.pts[2])
			z.CubeTo(ax, ay, bx, by, cx, cy)
		case opClose:
			z.ClosePath()
		}
	}
}
