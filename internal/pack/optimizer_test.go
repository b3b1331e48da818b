package pack

import (
	"math"
	"reflect"
	"testing"
)

func hasWarning(ws []Warning, kind string) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func assertPlanGeometry(t *testing.T, plan LoadPlan) {
	t.Helper()
	bay := plan.Spec.Bay()
	for i, a := range plan.Placements {
		ab := a.Bounds()
		if !bay.Contains(ab) {
			t.Fatalf("unit %s outside container: %+v", a.Unit.ID, ab)
		}
		for j := i + 1; j < len(plan.Placements); j++ {
			b := plan.Placements[j]
			if a.NestedIn >= 0 || b.NestedIn >= 0 {
				continue
			}
			if ab.Intersects(b.Bounds()) {
				t.Fatalf("units %s and %s overlap", a.Unit.ID, b.Unit.ID)
			}
		}
	}
}

func TestOptimizeHomogeneousBoxes(t *testing.T) {
	spec := ContainerSpec{
		Name: "truck-7m", Length: 7000, Width: 2400, Height: 2400,
		MaxWeight: 25000, MaxVolume: 38.5,
	}
	var items []*Item
	for _, id := range []string{"a", "b", "c"} {
		it := boxItem(id, 1000, 800, 600, 50)
		it.Quantity = 10
		items = append(items, it)
	}

	plan := NewOptimizer(DefaultConfig()).Optimize(spec, items, Options{})
	if len(plan.Placements) != 30 || len(plan.UnplacedIDs) != 0 {
		t.Fatalf("placed=%d unplaced=%d, want 30/0", len(plan.Placements), len(plan.UnplacedIDs))
	}
	if plan.TotalWeight != 1500 {
		t.Fatalf("total weight %v, want 1500", plan.TotalWeight)
	}
	if plan.WeightUtil != 0.06 {
		t.Fatalf("weight util %v, want 0.06", plan.WeightUtil)
	}
	if want := 14.4 / 38.5; math.Abs(plan.VolumeUtil-want) > 1e-9 {
		t.Fatalf("volume util %v, want %v", plan.VolumeUtil, want)
	}
	if plan.WeightUtil > 1 || plan.VolumeUtil > 1 {
		t.Fatalf("utilization exceeds 100%%: %v %v", plan.WeightUtil, plan.VolumeUtil)
	}
	assertPlanGeometry(t, plan)
}

func TestOptimizeDeterministic(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 4000, Width: 2000, Height: 2000, MaxWeight: 8000}
	build := func() []*Item {
		box := boxItem("crate", 900, 700, 500, 40)
		box.Quantity = 6
		drum := cylItem("drum", 500, 900, 70)
		drum.Quantity = 3
		keg := cylItem("keg", 350, 500, 25)
		keg.Nestable = true
		return []*Item{box, drum, keg}
	}

	o := NewOptimizer(DefaultConfig())
	first := o.Optimize(spec, build(), Options{})
	second := o.Optimize(spec, build(), Options{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different plans")
	}
}

func TestOptimizeHazmatFallbackWarns(t *testing.T) {
	// Two 1200 mm hazmat crates in a 3000 mm hold can never reach the
	// 1000 mm separation distance; both must still be placed, with the
	// shortfall surfaced as a critical warning.
	spec := ContainerSpec{Name: "t", Length: 3000, Width: 1500, Height: 1500, MaxWeight: 5000}
	it := boxItem("haz", 1200, 500, 500, 100)
	it.Hazardous = true
	it.Quantity = 2

	plan := NewOptimizer(DefaultConfig()).Optimize(spec, []*Item{it}, Options{})
	if len(plan.Placements) != 2 || len(plan.UnplacedIDs) != 0 {
		t.Fatalf("placed=%d unplaced=%d, want 2/0", len(plan.Placements), len(plan.UnplacedIDs))
	}
	if !hasWarning(plan.Warnings, ViolationHazmatSeparation) {
		t.Fatalf("missing hazardous-separation warning: %+v", plan.Warnings)
	}
	for _, w := range plan.Warnings {
		if w.Kind == ViolationHazmatSeparation && w.Severity != SeverityCritical {
			t.Fatalf("hazmat warning severity %s, want critical", w.Severity)
		}
	}
	assertPlanGeometry(t, plan)
}

func TestOptimizeTempConflictFallbackWarns(t *testing.T) {
	// A chilled and an ambient unit can never share a small hold within
	// the 5° tolerance; both still place, with the conflict surfaced.
	spec := ContainerSpec{Name: "t", Length: 3000, Width: 1500, Height: 1500, MaxWeight: 5000}
	cold := boxItem("chilled", 800, 500, 500, 50)
	cold.TempControl = true
	cold.TargetTemp = 2
	warm := boxItem("ambient", 800, 500, 500, 50)
	warm.TempControl = true
	warm.TargetTemp = 20

	plan := NewOptimizer(DefaultConfig()).Optimize(spec, []*Item{cold, warm}, Options{})
	if len(plan.Placements) != 2 || len(plan.UnplacedIDs) != 0 {
		t.Fatalf("placed=%d unplaced=%d, want 2/0", len(plan.Placements), len(plan.UnplacedIDs))
	}
	if !hasWarning(plan.Warnings, ViolationTempConflict) {
		t.Fatalf("missing temperature-conflict warning: %+v", plan.Warnings)
	}
	assertPlanGeometry(t, plan)
}

func TestOptimizeAxleImbalanceWarning(t *testing.T) {
	// A single box in a 9 m hold packs at the nose, putting the whole
	// load on the front axle.
	spec := ContainerSpec{Name: "t", Length: 9000, Width: 2000, Height: 2000, MaxWeight: 10000}
	plan := NewOptimizer(DefaultConfig()).Optimize(spec, []*Item{boxItem("slab", 1000, 1000, 500, 800)}, Options{})
	if !hasWarning(plan.Warnings, ViolationAxleImbalance) {
		t.Fatalf("missing axle-imbalance warning: %+v", plan.Warnings)
	}
}

func TestAuditPlanAxleBalance(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 9000, Width: 2000, Height: 2000, MaxWeight: 10000}
	u := ExpandUnits([]*Item{boxItem("slab", 1000, 1000, 500, 800)})[0]
	at := func(x float64) []Violation {
		plan := LoadPlan{Spec: spec, Placements: []Placement{{Unit: u, Pos: Point{X: x}, NestedIn: -1}}}
		return NewOptimizer(DefaultConfig()).AuditPlan(spec, plan)
	}

	if !hasViolation(at(8000), ViolationAxleImbalance) {
		t.Fatalf("rear-loaded plan missing %s", ViolationAxleImbalance)
	}
	if !hasViolation(at(0), ViolationAxleImbalance) {
		t.Fatalf("front-loaded plan missing %s", ViolationAxleImbalance)
	}
	// Centered at 6000 mm the front axle carries 26% of the load, inside
	// the 20-40% band.
	if vs := at(5500); hasViolation(vs, ViolationAxleImbalance) {
		t.Fatalf("balanced plan flagged: %+v", vs)
	}
}

func TestOptimizeOverCapacity(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 2000, Height: 2000, MaxWeight: 100}
	it := boxItem("dense", 400, 400, 400, 60)
	it.Quantity = 3

	plan := NewOptimizer(DefaultConfig()).Optimize(spec, []*Item{it}, Options{})
	if !hasWarning(plan.Warnings, ViolationOverCapacity) {
		t.Fatalf("missing over_capacity warning: %+v", plan.Warnings)
	}
	if !hasWarning(plan.Warnings, ViolationUnplaced) {
		t.Fatalf("missing unplaced warning: %+v", plan.Warnings)
	}
	if len(plan.Placements) != 1 || len(plan.UnplacedIDs) != 2 {
		t.Fatalf("placed=%d unplaced=%d, want 1/2", len(plan.Placements), len(plan.UnplacedIDs))
	}
	if plan.TotalWeight > spec.MaxWeight {
		t.Fatalf("plan weight %v exceeds rating %v", plan.TotalWeight, spec.MaxWeight)
	}
}

func TestOptimizeMaxStackHeight(t *testing.T) {
	spec := ContainerSpec{Name: "box-truck", Length: 1000, Width: 1000, Height: 2000, MaxWeight: 1000}
	it := boxItem("tote", 1000, 1000, 500, 20)
	it.Quantity = 3

	full := NewOptimizer(DefaultConfig()).Optimize(spec, []*Item{it}, Options{})
	if len(full.Placements) != 3 {
		t.Fatalf("uncapped: placed %d, want 3", len(full.Placements))
	}

	capped := NewOptimizer(DefaultConfig()).Optimize(spec, []*Item{it}, Options{MaxStackHeight: 1000})
	if len(capped.Placements) != 2 || len(capped.UnplacedIDs) != 1 {
		t.Fatalf("capped: placed=%d unplaced=%d, want 2/1", len(capped.Placements), len(capped.UnplacedIDs))
	}
	for _, pl := range capped.Placements {
		if top := pl.Bounds().MaxY(); top > 1000+geomEps {
			t.Fatalf("unit %s tops out at %.0f above the 1000mm cap", pl.Unit.ID, top)
		}
	}
}

func TestOptimizeLoadingSequence(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 4000, Width: 2000, Height: 2000, MaxWeight: 5000}
	var items []*Item
	for i, id := range []string{"first", "second", "third"} {
		it := boxItem(id, 600, 600, 600, 30)
		it.RouteID = "r1"
		it.DeliveryOrder = i + 1
		items = append(items, it)
	}

	o := NewOptimizer(DefaultConfig())

	lifo := o.Optimize(spec, items, Options{LoadingSequence: SequenceLIFO})
	if got := lifo.Placements[0].Unit.Item.DeliveryOrder; got != 3 {
		t.Fatalf("lifo loads drop %d first, want 3", got)
	}
	if got := lifo.Placements[2].Unit.Item.DeliveryOrder; got != 1 {
		t.Fatalf("lifo loads drop %d last, want 1", got)
	}

	fifo := o.Optimize(spec, items, Options{LoadingSequence: SequenceFIFO})
	for i, pl := range fifo.Placements {
		if pl.Unit.Item.DeliveryOrder != i+1 {
			t.Fatalf("fifo out of order at %d: %+v", i, pl.Unit.Item.DeliveryOrder)
		}
	}

	heavyFirst := o.Optimize(spec, items, Options{LoadingSequence: SequenceWeight})
	for i := 1; i < len(heavyFirst.Placements); i++ {
		if heavyFirst.Placements[i-1].Unit.Item.Weight < heavyFirst.Placements[i].Unit.Item.Weight {
			t.Fatalf("weight sequence not descending")
		}
	}
}

func TestAuditPlanFlagsOverlap(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 2000, Width: 1000, Height: 1000, MaxWeight: 1000}
	units := ExpandUnits([]*Item{
		boxItem("x", 800, 600, 600, 50),
		boxItem("y", 800, 600, 600, 50),
	})

	plan := LoadPlan{
		Spec: spec,
		Placements: []Placement{
			{Unit: units[0], Pos: Point{}, NestedIn: -1},
			{Unit: units[1], Pos: Point{X: 400}, NestedIn: -1},
		},
	}
	violations := NewOptimizer(DefaultConfig()).AuditPlan(spec, plan)
	found := false
	for _, v := range violations {
		if v.Kind == ViolationOutOfBounds && v.Hard {
			found = true
		}
	}
	if !found {
		t.Fatalf("audit missed overlapping placements: %+v", violations)
	}
}

func TestAuditPlanAcceptsOptimizerOutput(t *testing.T) {
	spec := ContainerSpec{Name: "t", Length: 4000, Width: 2000, Height: 2000, MaxWeight: 5000}
	it := boxItem("ok", 800, 800, 800, 40)
	it.Quantity = 4

	o := NewOptimizer(DefaultConfig())
	plan := o.Optimize(spec, []*Item{it}, Options{})
	for _, v := range o.AuditPlan(spec, plan) {
		if v.Hard {
			t.Fatalf("audit found hard violation in optimizer output: %+v", v)
		}
	}
}
