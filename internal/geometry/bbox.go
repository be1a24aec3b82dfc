package geometry

import "math"

// BBox2i is an integer pixel-space bounding box. MinX/MinY are inclusive,
// MaxX/MaxY exclusive. An empty box has Max <= Min on either axis.
type BBox2i struct {
	MinX, MinY int
	MaxX, MaxY int
}

func NewBBox2i(x, y, width, height int) BBox2i {
	return BBox2i{MinX: x, MinY: y, MaxX: x + width, MaxY: y + height}
}

func (b BBox2i) Width() int  { return b.MaxX - b.MinX }
func (b BBox2i) Height() int { return b.MaxY - b.MinY }

func (b BBox2i) Empty() bool {
	return b.MaxX <= b.MinX || b.MaxY <= b.MinY
}

func (b BBox2i) Contains(other BBox2i) bool {
	return other.MinX >= b.MinX && other.MaxX <= b.MaxX &&
		other.MinY >= b.MinY && other.MaxY <= b.MaxY
}

func (b BBox2i) ContainsPoint(x, y int) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

func (b BBox2i) Intersects(other BBox2i) bool {
	return !b.Intersect(other).Empty()
}

// Intersect returns the overlapping region of the two boxes.
func (b BBox2i) Intersect(other BBox2i) BBox2i {
	return BBox2i{
		MinX: max(b.MinX, other.MinX),
		MinY: max(b.MinY, other.MinY),
		MaxX: min(b.MaxX, other.MaxX),
		MaxY: min(b.MaxY, other.MaxY),
	}
}

// Union returns the minimum box enclosing both boxes. Empty operands are
// ignored so a zero BBox2i works as the identity for accumulation.
func (b BBox2i) Union(other BBox2i) BBox2i {
	if b.Empty() {
		return other
	}
	if other.Empty() {
		return b
	}
	return BBox2i{
		MinX: min(b.MinX, other.MinX),
		MinY: min(b.MinY, other.MinY),
		MaxX: max(b.MaxX, other.MaxX),
		MaxY: max(b.MaxY, other.MaxY),
	}
}

// Crop clips the box to the given bounds.
func (b BBox2i) Crop(bounds BBox2i) BBox2i {
	return b.Intersect(bounds)
}

func (b BBox2i) Translate(dx, dy int) BBox2i {
	return BBox2i{MinX: b.MinX + dx, MinY: b.MinY + dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

// BBox2 is a float bounding box, used for projected and lonlat extents.
type BBox2 struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewEmptyBBox2 returns a box that grows from nothing.
func NewEmptyBBox2() BBox2 {
	return BBox2{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

func NewBBox2(x, y, width, height float64) BBox2 {
	return BBox2{MinX: x, MinY: y, MaxX: x + width, MaxY: y + height}
}

func (b BBox2) Width() float64  { return b.MaxX - b.MinX }
func (b BBox2) Height() float64 { return b.MaxY - b.MinY }

func (b BBox2) Empty() bool {
	return b.MaxX <= b.MinX || b.MaxY <= b.MinY
}

// GrowPoint expands the box to include the given point.
func (b *BBox2) GrowPoint(v Vector2) {
	b.MinX = math.Min(b.MinX, v.X)
	b.MinY = math.Min(b.MinY, v.Y)
	b.MaxX = math.Max(b.MaxX, v.X)
	b.MaxY = math.Max(b.MaxY, v.Y)
}

func (b BBox2) Contains(v Vector2) bool {
	return v.X >= b.MinX && v.X < b.MaxX && v.Y >= b.MinY && v.Y < b.MaxY
}

// Rounded returns the smallest integer box covering the float box.
func (b BBox2) Rounded() BBox2i {
	return BBox2i{
		MinX: int(math.Floor(b.MinX)),
		MinY: int(math.Floor(b.MinY)),
		MaxX: int(math.Ceil(b.MaxX)),
		MaxY: int(math.Ceil(b.MaxY)),
	}
}
