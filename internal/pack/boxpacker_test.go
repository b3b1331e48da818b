package pack

import "testing"

func packBoxes(t *testing.T, spec ContainerSpec, items []*Item) ([]Placement, []Unit, *Occupancy) {
	t.Helper()
	e := NewConstraints(DefaultConfig())
	p := NewBoxPacker(e)
	occ := NewOccupancy()
	free := NewFreeSpaceSet(spec.Bay())
	placed, unplaced := p.Pack(spec, ExpandUnits(items), occ, free)
	return placed, unplaced, occ
}

func TestBoxPackerFillsFloorFirst(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 1000, Height: 2000, MaxWeight: 10000}
	items := []*Item{boxItem("a", 1000, 1000, 500, 50)}
	items[0].Quantity = 3

	placed, unplaced, _ := packBoxes(t, spec, items)
	if len(unplaced) != 0 {
		t.Fatalf("unplaced: %d", len(unplaced))
	}
	if placed[0].Pos.Y != 0 || placed[1].Pos.Y != 0 {
		t.Fatalf("floor not filled first: %+v %+v", placed[0].Pos, placed[1].Pos)
	}
	if placed[2].Pos.Y != 500 {
		t.Fatalf("third unit should stack at 500, got %+v", placed[2].Pos)
	}
}

func TestBoxPackerLargestFirst(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 3000, Width: 1500, Height: 1500, MaxWeight: 10000}
	small := boxItem("small", 400, 400, 400, 5)
	big := boxItem("big", 1200, 1200, 600, 80)
	placed, _, _ := packBoxes(t, spec, []*Item{small, big})

	if placed[0].Unit.Item.ID != "big" {
		t.Fatalf("first placed = %s, want big", placed[0].Unit.Item.ID)
	}
}

func TestBoxPackerRespectsWeightLimit(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 3000, Width: 1500, Height: 1500, MaxWeight: 100}
	it := boxItem("w", 500, 500, 500, 40)
	it.Quantity = 3

	placed, unplaced, occ := packBoxes(t, spec, []*Item{it})
	if len(placed) != 2 || len(unplaced) != 1 {
		t.Fatalf("placed=%d unplaced=%d, want 2/1", len(placed), len(unplaced))
	}
	if occ.Weight() > spec.MaxWeight {
		t.Fatalf("weight %v exceeds max %v", occ.Weight(), spec.MaxWeight)
	}
}

func TestBoxPackerNonStackableStaysOnFloor(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 1000, Width: 1000, Height: 3000, MaxWeight: 10000}
	it := boxItem("ns", 1000, 1000, 500, 50)
	it.Stackable = false
	it.Quantity = 2

	placed, unplaced, _ := packBoxes(t, spec, []*Item{it})
	if len(placed) != 1 || len(unplaced) != 1 {
		t.Fatalf("placed=%d unplaced=%d, want 1/1", len(placed), len(unplaced))
	}
	if placed[0].Pos.Y != 0 {
		t.Fatalf("non-stackable placed at height %v", placed[0].Pos.Y)
	}
}

func TestBoxPackerNoOverlap(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2400, Width: 1200, Height: 1200, MaxWeight: 10000}
	a := boxItem("a", 800, 600, 600, 20)
	a.Quantity = 4
	b := boxItem("b", 600, 600, 600, 15)
	b.Quantity = 4

	_, _, occ := packBoxes(t, spec, []*Item{a, b})
	assertNoOverlap(t, occ, spec)
}

func assertNoOverlap(t *testing.T, occ *Occupancy, spec ContainerSpec) {
	t.Helper()
	bay := spec.Bay()
	for i := 0; i < occ.Len(); i++ {
		bi := occ.BoundsAt(i)
		if !bay.Contains(bi) {
			t.Fatalf("placement %s outside bay: %+v", occ.At(i).Unit.ID, bi)
		}
		for j := i + 1; j < occ.Len(); j++ {
			if occ.At(j).NestedIn == i || occ.At(i).NestedIn == j {
				continue
			}
			if bi.Intersects(occ.BoundsAt(j)) {
				t.Fatalf("placements %s and %s overlap", occ.At(i).Unit.ID, occ.At(j).Unit.ID)
			}
		}
	}
}
