package pack

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Route strategies.
const (
	StrategySeparate    = "separate"
	StrategyConsolidate = "consolidate"
)

// ContainerLoad is one planned container instance.
type ContainerLoad struct {
	InstanceID string
	Spec       ContainerSpec
	Items      []*Item // the order subset assigned to this instance
	Plan       LoadPlan
}

// Distribute assigns an order set across one or more containers and runs
// the Load Optimizer per container. The separate strategy sizes a fleet
// per route; consolidate shares one fleet across routes, best-fit first.
func Distribute(items []*Item, pool []ContainerSpec, opts Options) ([]ContainerLoad, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("distribute: container pool must not be empty")
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("distribute: %w", err)
		}
	}
	for _, c := range pool {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("distribute: %w", err)
		}
	}
	opts.Config = opts.Config.withDefaults()

	var loads []ContainerLoad
	switch opts.RouteStrategy {
	case StrategyConsolidate:
		loads = consolidate(items, pool, opts)
	default: // StrategySeparate
		for _, route := range routeKeys(items) {
			var group []*Item
			for _, it := range items {
				if it.RouteID == route {
					group = append(group, it)
				}
			}
			loads = append(loads, consolidate(group, pool, opts)...)
		}
	}

	opt := NewOptimizer(opts.Config)
	for i := range loads {
		loads[i].InstanceID = fmt.Sprintf("ctr-%d", i+1)
		loads[i].Plan = opt.Optimize(loads[i].Spec, loads[i].Items, opts)
	}
	return loads, nil
}

func routeKeys(items []*Item) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if !seen[it.RouteID] {
			seen[it.RouteID] = true
			out = append(out, it.RouteID)
		}
	}
	sort.Strings(out)
	return out
}

// instance is the mutable assignment state for one container while the
// best-fit pass runs.
type instance struct {
	spec     ContainerSpec
	weight   float64
	volumeM3 float64
	units    []Unit
	routes   map[string]bool
}

func (n *instance) fits(u Unit) bool {
	it := u.Item
	return n.weight+it.Weight <= n.spec.MaxWeight &&
		n.volumeM3+it.UnitVolumeM3() <= n.spec.VolumeM3()
}

// utilization is the instance's limiting capacity fraction.
func (n *instance) utilization() float64 {
	return maxFloat(n.weight/n.spec.MaxWeight, n.volumeM3/n.spec.VolumeM3())
}

// remaining is the instance's spare capacity, normalized so weight-bound
// and volume-bound containers compare fairly.
func (n *instance) remaining() float64 {
	return minFloat(1-n.weight/n.spec.MaxWeight, 1-n.volumeM3/n.spec.VolumeM3())
}

func (n *instance) assign(u Unit) {
	n.weight += u.Item.Weight
	n.volumeM3 += u.Item.UnitVolumeM3()
	n.units = append(n.units, u)
	n.routes[u.Item.RouteID] = true
}

// consolidate instantiates a suggested fleet for the item set and
// distributes units across it with the best-fit rule: prefer the
// instance with the highest current utilization that still has capacity;
// when nothing has capacity, overflow onto the instance with the most
// remaining room so the plan still completes (the optimizer flags the
// over-capacity condition).
func consolidate(items []*Item, pool []ContainerSpec, opts Options) []ContainerLoad {
	if len(items) == 0 {
		return nil
	}
	var fleet []ContainerSpec
	if opts.RouteStrategy == StrategyConsolidate && !opts.AllowMixedRoutes {
		// Routes stay segregated, so the shared fleet must be sized per
		// route or later routes would find only foreign containers.
		for _, route := range routeKeys(items) {
			var w, v float64
			for _, it := range items {
				if it.RouteID != route {
					continue
				}
				w += it.Weight * float64(it.Quantity)
				v += it.UnitVolumeM3() * float64(it.Quantity)
			}
			fleet = append(fleet, SuggestFleet(pool, w, v)...)
		}
	} else {
		var totalW, totalV float64
		for _, it := range items {
			totalW += it.Weight * float64(it.Quantity)
			totalV += it.UnitVolumeM3() * float64(it.Quantity)
		}
		fleet = SuggestFleet(pool, totalW, totalV)
	}
	instances := make([]*instance, 0, len(fleet))
	for _, spec := range fleet {
		instances = append(instances, &instance{spec: spec, routes: map[string]bool{}})
	}

	units := ExpandUnits(items)
	orderUnits(units, opts.LoadingSequence)
	for _, u := range units {
		best := -1
		for i, n := range instances {
			if !n.fits(u) {
				continue
			}
			if !opts.AllowMixedRoutes && opts.RouteStrategy == StrategyConsolidate && !routeCompatible(n, u) {
				continue
			}
			if best < 0 || n.utilization() > instances[best].utilization() {
				best = i
			}
		}
		if best < 0 {
			// Controlled overflow: keep the plan complete and let the
			// optimizer attach the over-capacity warning.
			for i, n := range instances {
				if !opts.AllowMixedRoutes && opts.RouteStrategy == StrategyConsolidate && !routeCompatible(n, u) {
					continue
				}
				if best < 0 || n.remaining() > instances[best].remaining() {
					best = i
				}
			}
		}
		if best < 0 {
			best = 0
		}
		instances[best].assign(u)
	}

	var out []ContainerLoad
	for _, n := range instances {
		if len(n.units) == 0 {
			continue
		}
		out = append(out, ContainerLoad{Spec: n.spec, Items: regroup(n.units)})
	}
	return out
}

// routeCompatible reports whether the unit's route can join the instance
// when routes must stay segregated.
func routeCompatible(n *instance, u Unit) bool {
	if len(n.routes) == 0 {
		return true
	}
	return n.routes[u.Item.RouteID]
}

// regroup folds assigned units back into Items with per-instance
// quantities, preserving first-seen order.
func regroup(units []Unit) []*Item {
	index := map[string]int{}
	var out []*Item
	for _, u := range units {
		if i, ok := index[u.Item.ID]; ok {
			out[i].Quantity++
			continue
		}
		cp := *u.Item
		cp.Quantity = 1
		index[u.Item.ID] = len(out)
		out = append(out, &cp)
	}
	return out
}

// orderUnits sorts units by the loading sequence, mirroring the
// placement ordering so distribution and reporting agree.
func orderUnits(units []Unit, sequence string) {
	switch sequence {
	case SequenceFIFO:
		sort.SliceStable(units, func(i, j int) bool {
			return units[i].Item.DeliveryOrder < units[j].Item.DeliveryOrder
		})
	case SequenceRoute:
		sort.SliceStable(units, func(i, j int) bool {
			if units[i].Item.RouteID != units[j].Item.RouteID {
				return units[i].Item.RouteID < units[j].Item.RouteID
			}
			return units[i].Item.DeliveryOrder < units[j].Item.DeliveryOrder
		})
	case SequenceWeight:
		sort.SliceStable(units, func(i, j int) bool {
			return units[i].Item.Weight > units[j].Item.Weight
		})
	case SequencePriority:
		sort.SliceStable(units, func(i, j int) bool {
			return units[i].Item.priorityRank() < units[j].Item.priorityRank()
		})
	default: // SequenceLIFO
		sort.SliceStable(units, func(i, j int) bool {
			return units[i].Item.DeliveryOrder > units[j].Item.DeliveryOrder
		})
	}
}

// maxMixedPrefix caps the same-type instances tried ahead of the second
// type when sizing a mixed fleet.
const maxMixedPrefix = 16

// SuggestFleet sizes a fleet whose combined weight and volume capacity
// covers the demand. Single-type fleets and two-type combinations are
// evaluated; every candidate covers the full demand, so ranking by total
// cost minimizes the spend per demanded capacity unit. Ties fall to
// fewer container types, then fewer containers, then type names, so the
// suggestion is deterministic.
func SuggestFleet(pool []ContainerSpec, totalWeight, totalVolumeM3 float64) []ContainerSpec {
	if totalWeight <= 0 && totalVolumeM3 <= 0 {
		return nil
	}
	var best *fleetOption
	consider := func(fleet []ContainerSpec) {
		o := newFleetOption(fleet)
		if best == nil || o.betterThan(*best) {
			best = &o
		}
	}
	for i, a := range pool {
		na := coverCount(a, totalWeight, totalVolumeM3)
		consider(repeatSpec(a, na))
		for j, b := range pool {
			if j == i {
				continue
			}
			for k := 1; k < na && k <= maxMixedPrefix; k++ {
				rw := totalWeight - float64(k)*a.MaxWeight
				rv := totalVolumeM3 - float64(k)*a.VolumeM3()
				consider(append(repeatSpec(a, k), repeatSpec(b, coverCount(b, rw, rv))...))
			}
		}
	}
	return best.fleet
}

// coverCount is the number of instances of spec needed to cover the
// demand, at least 1.
func coverCount(spec ContainerSpec, weight, volumeM3 float64) int {
	n := 1
	if weight > 0 {
		if byW := int(math.Ceil(weight / spec.MaxWeight)); byW > n {
			n = byW
		}
	}
	if volumeM3 > 0 {
		if byV := int(math.Ceil(volumeM3 / spec.VolumeM3())); byV > n {
			n = byV
		}
	}
	return n
}

func repeatSpec(spec ContainerSpec, n int) []ContainerSpec {
	out := make([]ContainerSpec, n)
	for i := range out {
		out[i] = spec
	}
	return out
}

// fleetOption is one candidate fleet with its ranking terms. The key is
// the sorted multiset of type names, so equivalent fleets reached from
// either pairing order compare equal.
type fleetOption struct {
	fleet []ContainerSpec
	cost  float64
	types int
	key   string
}

func newFleetOption(fleet []ContainerSpec) fleetOption {
	o := fleetOption{fleet: fleet}
	names := map[string]bool{}
	parts := make([]string, 0, len(fleet))
	for _, spec := range fleet {
		o.cost += spec.CostPerKm
		names[spec.Name] = true
		parts = append(parts, spec.Name)
	}
	o.types = len(names)
	sort.Strings(parts)
	o.key = strings.Join(parts, ",")
	return o
}

func (o fleetOption) betterThan(b fleetOption) bool {
	if o.cost != b.cost {
		return o.cost < b.cost
	}
	if o.types != b.types {
		return o.types < b.types
	}
	if len(o.fleet) != len(b.fleet) {
		return len(o.fleet) < len(b.fleet)
	}
	return o.key < b.key
}
