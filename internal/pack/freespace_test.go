package pack

import "testing"

func TestFreeSpaceSplitCorner(t *testing.T) {
	bay := Volume{DX: 1000, DY: 1000, DZ: 1000}
	f := NewFreeSpaceSet(bay)
	used := Volume{DX: 400, DY: 300, DZ: 500}
	f.Occupy(used)

	if f.Len() != 3 {
		t.Fatalf("corner occupy: got %d residuals, want 3", f.Len())
	}
	for i := 0; i < f.Len(); i++ {
		s := f.At(i)
		if s.Intersects(used) {
			t.Fatalf("residual %d %+v intersects occupied volume", i, s)
		}
		if !bay.Contains(s) {
			t.Fatalf("residual %d %+v leaves the bay", i, s)
		}
	}
}

func TestFreeSpaceSplitFloating(t *testing.T) {
	bay := Volume{DX: 1000, DY: 1000, DZ: 1000}
	f := NewFreeSpaceSet(bay)
	// floats in the middle: all six residuals survive
	f.Occupy(Volume{X: 300, Y: 300, Z: 300, DX: 200, DY: 200, DZ: 200})
	if f.Len() != 6 {
		t.Fatalf("floating occupy: got %d residuals, want 6", f.Len())
	}
}

func TestFreeSpaceDiscardsSlivers(t *testing.T) {
	bay := Volume{DX: 1000, DY: 1000, DZ: 1000}
	f := NewFreeSpaceSet(bay)
	// leaves a 5 mm shell on x, below the 10 mm sliver threshold
	f.Occupy(Volume{DX: 995, DY: 1000, DZ: 1000})
	for i := 0; i < f.Len(); i++ {
		if f.At(i).DX < minSliver {
			t.Fatalf("sliver residual survived: %+v", f.At(i))
		}
	}
}

func TestFreeSpaceFindFitIsBottomLeft(t *testing.T) {
	bay := Volume{DX: 1000, DY: 1000, DZ: 1000}
	f := NewFreeSpaceSet(bay)
	f.Occupy(Volume{DX: 400, DY: 400, DZ: 400})

	idx := f.FindFit(300, 300, 300)
	if idx < 0 {
		t.Fatal("expected a fit")
	}
	s := f.At(idx)
	// lowest y first, then x, then z: the space behind the box at z=400
	// starts at x=0 and beats the space at x=400
	if s.Y != 0 || s.X != 0 {
		t.Fatalf("not bottom-left: got %+v", s)
	}
}

func TestFreeSpaceNoFit(t *testing.T) {
	f := NewFreeSpaceSet(Volume{DX: 100, DY: 100, DZ: 100})
	if idx := f.FindFit(200, 50, 50); idx != -1 {
		t.Fatalf("oversized unit fit at %d", idx)
	}
}
