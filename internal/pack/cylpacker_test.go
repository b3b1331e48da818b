package pack

import (
	"math"
	"testing"
)

func cylItem(id string, d, h, kg float64) *Item {
	return &Item{
		ID:          id,
		Shape:       ShapeCylinder,
		Diameter:    d,
		Height:      h,
		Weight:      kg,
		Quantity:    1,
		Stackable:   true,
		Orientation: OrientVertical,
		Priority:    PriorityMedium,
	}
}

func packCyls(t *testing.T, spec ContainerSpec, items []*Item) ([]Placement, []Unit, []Violation, *Occupancy) {
	t.Helper()
	p := NewCylPacker(NewConstraints(DefaultConfig()))
	occ := NewOccupancy()
	free := NewFreeSpaceSet(spec.Bay())
	placed, unplaced, notes := p.Pack(spec, ExpandUnits(items), occ, free)
	return placed, unplaced, notes, occ
}

func TestCylPackerFirstRingIsCenter(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 2000, Height: 1500, MaxWeight: 5000}
	it := cylItem("drum", 500, 800, 60)
	it.Quantity = 3

	placed, unplaced, _, occ := packCyls(t, spec, []*Item{it})
	if len(unplaced) != 0 {
		t.Fatalf("unplaced: %d", len(unplaced))
	}
	// Dead center of a 2000x2000 floor for a 500 mm drum.
	if placed[0].Pos.X != 750 || placed[0].Pos.Z != 750 {
		t.Fatalf("first drum not centered: %+v", placed[0].Pos)
	}
	for _, pl := range placed {
		if pl.Pos.Y != 0 || pl.Horizontal || pl.NestedIn != -1 {
			t.Fatalf("unexpected placement: %+v", pl)
		}
	}
	assertNoOverlap(t, occ, spec)
}

func TestCylPackerNestsDeadCenter(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 2000, Height: 1500, MaxWeight: 5000}
	host := cylItem("host", 1000, 1000, 120)
	inner := cylItem("inner", 400, 500, 20)
	inner.Nestable = true

	placed, unplaced, _, _ := packCyls(t, spec, []*Item{host, inner})
	if len(unplaced) != 0 {
		t.Fatalf("unplaced: %d", len(unplaced))
	}
	var nested Placement
	for _, pl := range placed {
		if pl.Unit.Item.ID == "inner" {
			nested = pl
		}
	}
	if nested.NestedIn != 0 || nested.NestDepth != 1 {
		t.Fatalf("inner not nested in host: %+v", nested)
	}
	// Concentric: nested center matches host center.
	hb := placed[0].Bounds()
	nb := nested.Bounds()
	if math.Abs(hb.Center().X-nb.Center().X) > geomEps || math.Abs(hb.Center().Z-nb.Center().Z) > geomEps {
		t.Fatalf("nest not concentric: host %+v inner %+v", hb.Center(), nb.Center())
	}
}

func TestCylPackerNestRespectsDiameterMargin(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 2000, Height: 1500, MaxWeight: 5000}
	host := cylItem("host", 460, 800, 60)
	inner := cylItem("inner", 400, 500, 20)
	inner.Nestable = true

	// 460 < 400 + 100 margin: must not nest.
	placed, _, _, _ := packCyls(t, spec, []*Item{host, inner})
	for _, pl := range placed {
		if pl.Unit.Item.ID == "inner" && pl.NestedIn != -1 {
			t.Fatalf("inner nested despite tight margin: %+v", pl)
		}
	}
}

func TestCylPackerHorizontalFloor(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 3000, Width: 1500, Height: 1500, MaxWeight: 5000}
	it := cylItem("pipe", 300, 2000, 40)
	it.Orientation = OrientHorizontal

	placed, unplaced, notes, _ := packCyls(t, spec, []*Item{it})
	if len(unplaced) != 0 || len(notes) != 0 {
		t.Fatalf("unplaced=%d notes=%d", len(unplaced), len(notes))
	}
	pl := placed[0]
	if !pl.Horizontal || pl.Pos.Y != 0 {
		t.Fatalf("pipe not laid on the floor: %+v", pl)
	}
	if pl.Support != nil {
		t.Fatalf("floor placement should not synthesize a wedge")
	}
	b := pl.Bounds()
	if b.DX != 2000 || b.DY != 300 || b.DZ != 300 {
		t.Fatalf("horizontal bounds wrong: %+v", b)
	}
}

func TestCylPackerFragileForcedVertical(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 2000, Height: 1500, MaxWeight: 5000}
	it := cylItem("glass", 400, 900, 25)
	it.Orientation = OrientHorizontal
	it.Fragile = true

	placed, unplaced, notes, _ := packCyls(t, spec, []*Item{it})
	if len(unplaced) != 0 {
		t.Fatalf("unplaced: %d", len(unplaced))
	}
	if len(notes) != 1 || notes[0].Kind != ViolationFragileHorizontal {
		t.Fatalf("expected fragile_horizontal note, got %+v", notes)
	}
	if placed[0].Horizontal {
		t.Fatalf("fragile cylinder placed horizontally")
	}
}

func TestCylPackerSharesOccupancyWithBoxes(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 1000, Height: 1500, MaxWeight: 5000}
	engine := NewConstraints(DefaultConfig())
	occ := NewOccupancy()
	free := NewFreeSpaceSet(spec.Bay())

	box := boxItem("crate", 1500, 1000, 600, 100)
	bp := NewBoxPacker(engine)
	if placed, _ := bp.Pack(spec, ExpandUnits([]*Item{box}), occ, free); len(placed) != 1 {
		t.Fatalf("crate not placed")
	}

	drum := cylItem("drum", 400, 800, 30)
	cp := NewCylPacker(engine)
	placed, unplaced, _ := cp.Pack(spec, ExpandUnits([]*Item{drum}), occ, free)
	if len(placed) != 1 || len(unplaced) != 0 {
		t.Fatalf("drum not placed beside crate: placed=%d", len(placed))
	}
	if placed[0].Pos.Y != 0 || placed[0].Pos.X < 1500 {
		t.Fatalf("drum should sit on the floor past the crate, got %+v", placed[0].Pos)
	}
	assertNoOverlap(t, occ, spec)
}
