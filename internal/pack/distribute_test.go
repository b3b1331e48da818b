package pack

import "testing"

func TestDistributeSplitsAcrossFleet(t *testing.T) {
	pallet := boxItem("pallet", 500, 500, 500, 900)
	pallet.Quantity = 30
	pallet.RouteID = "r1"
	pool := []ContainerSpec{
		{Name: "typeA", Length: 6000, Width: 2400, Height: 2400, MaxWeight: 20000, CostPerKm: 1.0},
		{Name: "typeB", Length: 7000, Width: 2400, Height: 2400, MaxWeight: 25000, CostPerKm: 1.5},
	}

	loads, err := Distribute([]*Item{pallet}, pool, Options{})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(loads) != 2 {
		t.Fatalf("got %d loads, want 2", len(loads))
	}
	for i, ld := range loads {
		if ld.Spec.Name != "typeA" {
			t.Fatalf("load %d uses %s, want the cheaper typeA", i, ld.Spec.Name)
		}
		if ld.Plan.TotalWeight > ld.Spec.MaxWeight {
			t.Fatalf("load %d weight %v exceeds rating %v", i, ld.Plan.TotalWeight, ld.Spec.MaxWeight)
		}
		if ld.Plan.WeightUtil >= 1 {
			t.Fatalf("load %d at %.0f%% weight utilization", i, ld.Plan.WeightUtil*100)
		}
	}
	// Best fit keeps filling the first instance until it runs out.
	if loads[0].Plan.TotalWeight != 19800 || loads[1].Plan.TotalWeight != 7200 {
		t.Fatalf("weights %v/%v, want 19800/7200", loads[0].Plan.TotalWeight, loads[1].Plan.TotalWeight)
	}
	if loads[0].InstanceID != "ctr-1" || loads[1].InstanceID != "ctr-2" {
		t.Fatalf("instance ids %s/%s", loads[0].InstanceID, loads[1].InstanceID)
	}
}

func TestDistributeSeparateKeepsRoutesApart(t *testing.T) {
	north := boxItem("north", 600, 600, 600, 400)
	north.Quantity = 4
	north.RouteID = "north"
	south := boxItem("south", 600, 600, 600, 400)
	south.Quantity = 4
	south.RouteID = "south"
	pool := []ContainerSpec{
		{Name: "van", Length: 3000, Width: 1800, Height: 1800, MaxWeight: 2000, CostPerKm: 0.8},
	}

	loads, err := Distribute([]*Item{north, south}, pool, Options{RouteStrategy: StrategySeparate})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(loads) < 2 {
		t.Fatalf("got %d loads, want at least one per route", len(loads))
	}
	for _, ld := range loads {
		routes := map[string]bool{}
		for _, it := range ld.Items {
			routes[it.RouteID] = true
		}
		if len(routes) != 1 {
			t.Fatalf("load %s mixes routes: %v", ld.InstanceID, routes)
		}
	}
}

func TestDistributeConsolidateMixesRoutes(t *testing.T) {
	a := boxItem("a", 600, 600, 600, 200)
	a.Quantity = 2
	a.RouteID = "r1"
	b := boxItem("b", 600, 600, 600, 200)
	b.Quantity = 2
	b.RouteID = "r2"
	pool := []ContainerSpec{
		{Name: "van", Length: 4000, Width: 1800, Height: 1800, MaxWeight: 2000, CostPerKm: 0.8},
	}

	loads, err := Distribute([]*Item{a, b}, pool, Options{
		RouteStrategy:    StrategyConsolidate,
		AllowMixedRoutes: true,
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(loads) != 1 {
		t.Fatalf("got %d loads, want 1 consolidated van", len(loads))
	}
	routes := map[string]bool{}
	for _, it := range loads[0].Items {
		routes[it.RouteID] = true
	}
	if !routes["r1"] || !routes["r2"] {
		t.Fatalf("consolidated load missing a route: %v", routes)
	}
}

func TestDistributeRejectsEmptyPool(t *testing.T) {
	if _, err := Distribute([]*Item{boxItem("x", 100, 100, 100, 1)}, nil, Options{}); err == nil {
		t.Fatalf("expected error for empty pool")
	}
}

func TestDistributeRejectsInvalidItem(t *testing.T) {
	bad := boxItem("bad", 100, 100, 100, 1)
	bad.Weight = 0
	pool := []ContainerSpec{{Name: "van", Length: 3000, Width: 1800, Height: 1800, MaxWeight: 2000}}
	if _, err := Distribute([]*Item{bad}, pool, Options{}); err == nil {
		t.Fatalf("expected error for zero-weight item")
	}
}

func TestSuggestFleetPicksCheapest(t *testing.T) {
	pool := []ContainerSpec{
		{Name: "typeA", Length: 6000, Width: 2400, Height: 2400, MaxWeight: 20000, CostPerKm: 1.0},
		{Name: "typeB", Length: 7000, Width: 2400, Height: 2400, MaxWeight: 25000, CostPerKm: 1.5},
	}
	fleet := SuggestFleet(pool, 27000, 4)
	if len(fleet) != 2 {
		t.Fatalf("fleet size %d, want 2", len(fleet))
	}
	for _, spec := range fleet {
		if spec.Name != "typeA" {
			t.Fatalf("fleet uses %s, want typeA (2x1.0 beats 2x1.5)", spec.Name)
		}
	}
}

func TestSuggestFleetMixesTypes(t *testing.T) {
	pool := []ContainerSpec{
		{Name: "small", Length: 4000, Width: 2000, Height: 2200, MaxWeight: 9000, CostPerKm: 1.0},
		{Name: "big", Length: 7000, Width: 2400, Height: 2400, MaxWeight: 24000, CostPerKm: 1.5},
	}
	// 27000 kg / 36 m³: three small or two big both cost 3.0, but one of
	// each covers the demand at 2.5.
	fleet := SuggestFleet(pool, 27000, 36)
	if len(fleet) != 2 {
		t.Fatalf("fleet size %d, want 2", len(fleet))
	}
	byName := map[string]int{}
	var cost float64
	for _, spec := range fleet {
		byName[spec.Name]++
		cost += spec.CostPerKm
	}
	if byName["small"] != 1 || byName["big"] != 1 {
		t.Fatalf("fleet mix %v, want one small and one big", byName)
	}
	if cost != 2.5 {
		t.Fatalf("fleet cost %v, want 2.5", cost)
	}
}

func TestSuggestFleetCostTieFallsToFewerContainers(t *testing.T) {
	pool := []ContainerSpec{
		{Name: "half", Length: 5000, Width: 2000, Height: 2000, MaxWeight: 10000, CostPerKm: 1.0},
		{Name: "full", Length: 5000, Width: 2000, Height: 2000, MaxWeight: 20000, CostPerKm: 2.0},
	}
	// 20000 kg: two half and one full both cost 2.0 with one type each;
	// the single-container fleet wins the tie.
	fleet := SuggestFleet(pool, 20000, 1)
	if len(fleet) != 1 || fleet[0].Name != "full" {
		t.Fatalf("fleet %+v, want one full", fleet)
	}
}

func TestSuggestFleetVolumeBound(t *testing.T) {
	pool := []ContainerSpec{
		{Name: "box", Length: 2000, Width: 1000, Height: 1000, MaxWeight: 100000, CostPerKm: 1.0},
	}
	// 2 m³ per container, 5 m³ demand: volume forces three instances.
	fleet := SuggestFleet(pool, 10, 5)
	if len(fleet) != 3 {
		t.Fatalf("fleet size %d, want 3", len(fleet))
	}
}

func TestSuggestFleetEmptyDemand(t *testing.T) {
	pool := []ContainerSpec{{Name: "van", Length: 3000, Width: 1800, Height: 1800, MaxWeight: 2000}}
	if fleet := SuggestFleet(pool, 0, 0); fleet != nil {
		t.Fatalf("expected nil fleet for empty demand, got %d", len(fleet))
	}
}
