package geo

import "testing"

func mustBox(t *testing.T, ranges ...Range) Box {
	t.Helper()
	b, err := NewBox(ranges...)
	if err != nil {
		t.Fatalf("NewBox(%v) returned error: %s", ranges, err)
	}
	return b
}

func TestNewBoxRejectsInvertedRange(t *testing.T) {
	_, err := NewBox(Range{Min: 5, Max: 1})
	if err != ErrInvalidBox {
		t.Fatalf("expected ErrInvalidBox, got %v", err)
	}
}

func TestAreaOfPointIsZero(t *testing.T) {
	p := mustBox(t, Range{4, 4}, Range{6, 6})
	if a := p.Area(); a != 0 {
		t.Errorf("area of a point should be 0, got %f", a)
	}
}

func TestAreaOfRectangle(t *testing.T) {
	b := mustBox(t, Range{0, 2}, Range{0, 3})
	if a := b.Area(); a != 6 {
		t.Errorf("expected area 6, got %f", a)
	}
}

func TestUnion(t *testing.T) {
	a := mustBox(t, Range{0, 1}, Range{0, 1})
	b := mustBox(t, Range{2, 3}, Range{-1, 0})
	u := Union(a, b)
	want := mustBox(t, Range{0, 3}, Range{-1, 1})
	if !Equal(u, want) {
		t.Errorf("Union(%v,%v) = %v, want %v", a, b, u, want)
	}
}

func TestEnlargement(t *testing.T) {
	container := mustBox(t, Range{0, 10}, Range{0, 10})
	insideBox := mustBox(t, Range{1, 2}, Range{1, 2})
	if e := Enlargement(container, insideBox); e != 0 {
		t.Errorf("enlarging to include a contained box should cost 0, got %f", e)
	}
	outside := mustBox(t, Range{10, 20}, Range{0, 10})
	if e := Enlargement(container, outside); e != 100 {
		t.Errorf("expected enlargement 100, got %f", e)
	}
}

func TestOverlapsTouchingCountsAsOverlap(t *testing.T) {
	a := mustBox(t, Range{0, 1}, Range{0, 1})
	b := mustBox(t, Range{1, 2}, Range{0, 1})
	if !Overlaps(a, b) {
		t.Error("boxes that only touch should be considered overlapping")
	}
}

func TestOverlapsDisjoint(t *testing.T) {
	a := mustBox(t, Range{0, 1}, Range{0, 1})
	b := mustBox(t, Range{2, 3}, Range{2, 3})
	if Overlaps(a, b) {
		t.Error("disjoint boxes should not overlap")
	}
}

func TestContains(t *testing.T) {
	outer := mustBox(t, Range{0, 10}, Range{0, 10})
	inner := mustBox(t, Range{2, 3}, Range{2, 3})
	if !Contains(outer, inner) {
		t.Error("outer should contain inner")
	}
	if Contains(inner, outer) {
		t.Error("inner should not contain outer")
	}
}

func TestOverlapArea(t *testing.T) {
	a := mustBox(t, Range{0, 4}, Range{0, 4})
	b := mustBox(t, Range{2, 6}, Range{2, 6})
	if o := OverlapArea(a, b); o != 4 {
		t.Errorf("expected overlap area 4, got %f", o)
	}
	c := mustBox(t, Range{10, 12}, Range{10, 12})
	if o := OverlapArea(a, c); o != 0 {
		t.Errorf("expected overlap area 0 for disjoint boxes, got %f", o)
	}
}

func TestZeroBoxIsDistinguished(t *testing.T) {
	z := Zero(2)
	if !z.IsZero() {
		t.Error("Zero(2) should report IsZero() == true")
	}
	nonZero := mustBox(t, Range{0, 0}, Range{0, 1})
	if nonZero.IsZero() {
		t.Error("a box with a non-zero span should not report IsZero()")
	}
}

func TestThreeDimensionalBox(t *testing.T) {
	a := mustBox(t, Range{0, 1}, Range{0, 1}, Range{0, 1})
	b := mustBox(t, Range{0.5, 2}, Range{0.5, 2}, Range{0.5, 2})
	if !Overlaps(a, b) {
		t.Error("3-D boxes should overlap")
	}
	u := Union(a, b)
	if u.Dim() != 3 {
		t.Errorf("expected union to stay 3-dimensional, got %d", u.Dim())
	}
}
