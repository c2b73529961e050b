package models

// BBox is an axis-aligned bounding box in pixel coordinates with (X1,Y1) the
// top-left corner and (X2,Y2) the bottom-right corner.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area, zero for degenerate boxes.
func (b BBox) Area() float64 {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box has no positive extent.
func (b BBox) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Center returns the box center point.
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Intersect returns the intersection of two boxes. The result is Empty when
// the boxes do not overlap.
func (b BBox) Intersect(o BBox) BBox {
	return BBox{
		X1: maxf(b.X1, o.X1),
		Y1: maxf(b.Y1, o.Y1),
		X2: minf(b.X2, o.X2),
		Y2: minf(b.Y2, o.Y2),
	}
}

// IoU returns intersection-over-union of two boxes in [0,1].
func (b BBox) IoU(o BBox) float64 {
	inter := b.Intersect(o).Area()
	if inter <= 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// OverlapRatio returns intersection area over the smaller box's area. This is
// the suppression metric: a small box fully inside a large one scores 1.0
// where IoU would stay low.
func (b BBox) OverlapRatio(o BBox) float64 {
	inter := b.Intersect(o).Area()
	if inter <= 0 {
		return 0
	}
	smaller := minf(b.Area(), o.Area())
	if smaller <= 0 {
		return 0
	}
	return inter / smaller
}

// Contains reports whether the point (x,y) lies inside the box.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.X1 && x <= b.X2 && y >= b.Y1 && y <= b.Y2
}

// Inside reports whether the box lies entirely within the outer box.
func (b BBox) Inside(outer BBox) bool {
	return b.X1 >= outer.X1 && b.Y1 >= outer.Y1 && b.X2 <= outer.X2 && b.Y2 <= outer.Y2
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
