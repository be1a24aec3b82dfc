package geometry

import "testing"

func TestBBox2iUnionIgnoresEmpty(t *testing.T) {
	var acc BBox2i
	acc = acc.Union(NewBBox2i(10, 20, 5, 5))
	acc = acc.Union(NewBBox2i(0, 0, 3, 3))

	want := BBox2i{MinX: 0, MinY: 0, MaxX: 15, MaxY: 25}
	if acc != want {
		t.Fatalf("union = %+v, want %+v", acc, want)
	}
	if got := acc.Union(BBox2i{}); got != want {
		t.Fatalf("union with empty = %+v, want %+v", got, want)
	}
}

func TestBBox2iIntersect(t *testing.T) {
	a := NewBBox2i(0, 0, 10, 10)
	b := NewBBox2i(5, 5, 10, 10)
	got := a.Intersect(b)
	want := BBox2i{MinX: 5, MinY: 5, MaxX: 10, MaxY: 10}
	if got != want {
		t.Fatalf("intersect = %+v, want %+v", got, want)
	}

	c := NewBBox2i(20, 20, 2, 2)
	if !a.Intersect(c).Empty() {
		t.Fatal("disjoint boxes should intersect to an empty box")
	}
	if a.Intersects(c) {
		t.Fatal("disjoint boxes should not report an intersection")
	}
}

func TestBBox2iContains(t *testing.T) {
	a := NewBBox2i(0, 0, 10, 10)
	if !a.Contains(NewBBox2i(2, 3, 4, 4)) {
		t.Fatal("inner box should be contained")
	}
	if a.Contains(NewBBox2i(8, 8, 4, 4)) {
		t.Fatal("overhanging box should not be contained")
	}
	if !a.ContainsPoint(9, 9) || a.ContainsPoint(10, 9) {
		t.Fatal("pixel containment should be inclusive-exclusive")
	}
}

func TestBBox2iTranslate(t *testing.T) {
	got := NewBBox2i(1, 2, 3, 4).Translate(-1, -2)
	want := BBox2i{MinX: 0, MinY: 0, MaxX: 3, MaxY: 4}
	if got != want {
		t.Fatalf("translate = %+v, want %+v", got, want)
	}
}

func TestBBox2Rounded(t *testing.T) {
	b := BBox2{MinX: -0.5, MinY: 1.0, MaxX: 2.3, MaxY: 4.0}
	got := b.Rounded()
	want := BBox2i{MinX: -1, MinY: 1, MaxX: 3, MaxY: 4}
	if got != want {
		t.Fatalf("rounded = %+v, want %+v", got, want)
	}
}

func TestBBox2GrowPoint(t *testing.T) {
	b := NewEmptyBBox2()
	if !b.Empty() {
		t.Fatal("fresh box should be empty")
	}
	b.GrowPoint(Vector2{X: 1, Y: 2})
	b.GrowPoint(Vector2{X: -3, Y: 5})
	want := BBox2{MinX: -3, MinY: 2, MaxX: 1, MaxY: 5}
	if b != want {
		t.Fatalf("grown = %+v, want %+v", b, want)
	}
}
