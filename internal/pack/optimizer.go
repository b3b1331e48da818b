package pack

import (
	"fmt"
	"sort"
	"strings"
)

// Loading sequence modes.
const (
	SequenceLIFO     = "lifo"
	SequenceFIFO     = "fifo"
	SequenceRoute    = "route"
	SequenceWeight   = "weight"
	SequencePriority = "priority"
)

// Warning is a non-fatal finding attached to a LoadPlan. Warnings never
// block plan generation.
type Warning struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// LoadPlan is the per-container packing result.
type LoadPlan struct {
	Spec          ContainerSpec
	Placements    []Placement // in loading-sequence order
	TotalWeight   float64     // kg
	TotalVolumeM3 float64
	WeightUtil    float64 // fraction of max weight
	VolumeUtil    float64 // fraction of usable volume
	CoG           Point
	Warnings      []Warning
	UnplacedIDs   []string
}

// Options steer one planning run.
type Options struct {
	RouteStrategy    string // StrategySeparate | StrategyConsolidate
	LoadingSequence  string // SequenceLIFO et al.; defaults to lifo
	AllowMixedRoutes bool
	// MaxStackHeight caps the usable load height in mm. Zero means the
	// full container height.
	MaxStackHeight float64
	Config         Config
}

// Optimizer orchestrates both packers against one container and
// aggregates the result.
type Optimizer struct {
	engine *Constraints
	boxes  *BoxPacker
	cyls   *CylPacker
}

func NewOptimizer(cfg Config) *Optimizer {
	e := NewConstraints(cfg)
	return &Optimizer{engine: e, boxes: NewBoxPacker(e), cyls: NewCylPacker(e)}
}

// Engine exposes the constraints engine for independent plan audits.
func (o *Optimizer) Engine() *Constraints { return o.engine }

// Optimize packs the item set into one container of the given spec.
// Boxes are packed first to establish a stable floor, then cylinders run
// against the remaining free volume over the same occupancy. The
// returned plan is always usable; infeasibility and rule findings are
// reported as warnings.
func (o *Optimizer) Optimize(spec ContainerSpec, items []*Item, opts Options) LoadPlan {
	occ := NewOccupancy()
	// Packing runs against a height-capped working spec when the caller
	// limits stack height; totals and utilization stay on the real one.
	work := spec
	if opts.MaxStackHeight > 0 && opts.MaxStackHeight < spec.Height {
		work.Height = opts.MaxStackHeight
	}
	free := NewFreeSpaceSet(work.Bay())

	var boxUnits, cylUnits []Unit
	for _, u := range ExpandUnits(items) {
		if u.Item.Shape == ShapeCylinder {
			cylUnits = append(cylUnits, u)
		} else {
			boxUnits = append(boxUnits, u)
		}
	}

	plan := LoadPlan{Spec: spec}

	requested := 0.0
	for _, it := range items {
		requested += it.Weight * float64(it.Quantity)
	}
	if requested > spec.MaxWeight {
		plan.Warnings = append(plan.Warnings, Warning{
			Kind:     ViolationOverCapacity,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("requested load %.1f kg exceeds container rating %.0f kg", requested, spec.MaxWeight),
		})
	}

	_, boxLeft := o.boxes.Pack(work, boxUnits, occ, free)
	_, cylLeft, notes := o.cyls.Pack(work, cylUnits, occ, free)
	for _, n := range notes {
		plan.Warnings = append(plan.Warnings, Warning{Kind: n.Kind, Severity: n.Severity, Message: n.Message})
	}

	plan.Placements = occ.Placements()
	plan.TotalWeight = occ.Weight()
	plan.TotalVolumeM3 = occ.VolumeM3()
	if spec.MaxWeight > 0 {
		plan.WeightUtil = plan.TotalWeight / spec.MaxWeight
	}
	if v := spec.VolumeM3(); v > 0 {
		plan.VolumeUtil = plan.TotalVolumeM3 / v
	}
	plan.CoG = occ.CenterOfGravity()

	for _, u := range boxLeft {
		plan.UnplacedIDs = append(plan.UnplacedIDs, u.ID)
	}
	for _, u := range cylLeft {
		plan.UnplacedIDs = append(plan.UnplacedIDs, u.ID)
	}
	if len(plan.UnplacedIDs) > 0 {
		plan.Warnings = append(plan.Warnings, Warning{
			Kind:     ViolationUnplaced,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("no feasible position for %d unit(s): %s", len(plan.UnplacedIDs), strings.Join(plan.UnplacedIDs, ", ")),
		})
	}

	plan.Warnings = append(plan.Warnings, o.planChecks(spec, occ)...)
	orderPlacements(plan.Placements, opts.LoadingSequence)
	return plan
}

// planChecks runs the aggregate validations over an assembled plan:
// plan-wide center of gravity, axle-load distribution, the stacking
// compliance sweep and pairwise safety rules.
func (o *Optimizer) planChecks(spec ContainerSpec, occ *Occupancy) []Warning {
	var out []Warning
	if occ.Len() == 0 {
		return nil
	}

	if v, bad := o.engine.cogViolation(spec, occ.CenterOfGravity()); bad {
		out = append(out, Warning{Kind: v.Kind, Severity: v.Severity, Message: "plan: " + v.Message})
	}

	if w, ok := o.axleCheck(spec, occ); !ok {
		out = append(out, w)
	}

	out = append(out, o.stackingSweep(occ)...)
	out = append(out, o.pairwiseSweep(occ)...)
	return out
}

// Representative axle positions as fractions of container length.
const (
	frontAxlePos = 0.15
	rearAxlePos  = 0.85
)

// axleCheck distributes each unit's weight to the two axles inversely by
// distance and verifies the front share stays within the configured band.
func (o *Optimizer) axleCheck(spec ContainerSpec, occ *Occupancy) (Warning, bool) {
	cfg := o.engine.Cfg()
	fx := spec.Length * frontAxlePos
	rx := spec.Length * rearAxlePos
	span := rx - fx
	front := 0.0
	for i := 0; i < occ.Len(); i++ {
		w := occ.At(i).Unit.Item.Weight
		x := occ.BoundsAt(i).Center().X
		share := (rx - x) / span
		if share < 0 {
			share = 0
		}
		if share > 1 {
			share = 1
		}
		front += w * share
	}
	total := occ.Weight()
	if total <= 0 {
		return Warning{}, true
	}
	frac := front / total
	if frac >= cfg.FrontShareMin && frac <= cfg.FrontShareMax {
		return Warning{}, true
	}
	return Warning{
		Kind:     ViolationAxleImbalance,
		Severity: SeverityMedium,
		Message:  fmt.Sprintf("front axle carries %.0f%% of load, want %.0f-%.0f%%", frac*100, cfg.FrontShareMin*100, cfg.FrontShareMax*100),
	}, false
}

// stackingSweep re-checks every committed placement's support without
// re-deriving geometry.
func (o *Optimizer) stackingSweep(occ *Occupancy) []Warning {
	cfg := o.engine.Cfg()
	var out []Warning
	for i := 0; i < occ.Len(); i++ {
		pl := occ.At(i)
		b := occ.BoundsAt(i)
		if b.Y <= geomEps || pl.NestedIn >= 0 {
			continue
		}
		if pl.Unit.Item.Shape == ShapeBox {
			if r := occ.supportedRatio(b, i); r < cfg.SupportRatio {
				out = append(out, Warning{
					Kind:     ViolationInsufficientBase,
					Severity: SeverityHigh,
					Message:  fmt.Sprintf("unit %s ended with %.0f%% base support", pl.Unit.ID, r*100),
				})
			}
			continue
		}
		if pl.Horizontal && len(occ.supportsUnder(b, i)) < 2 {
			out = append(out, Warning{
				Kind:     ViolationRollingRisk,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("horizontal cylinder %s ended with fewer than 2 supports", pl.Unit.ID),
			})
		}
	}
	return out
}

// pairwiseSweep reports material-buffer and safety findings once per
// unordered pair.
func (o *Optimizer) pairwiseSweep(occ *Occupancy) []Warning {
	cfg := o.engine.Cfg()
	var out []Warning
	for i := 0; i < occ.Len(); i++ {
		for j := i + 1; j < occ.Len(); j++ {
			a, b := occ.At(i), occ.At(j)
			av, bv := occ.BoundsAt(i), occ.BoundsAt(j)
			ai, bi := a.Unit.Item, b.Unit.Item
			if ai.Hazardous && bi.Hazardous {
				if gap := volumeGap(av, bv); gap < cfg.HazmatSeparation {
					out = append(out, Warning{
						Kind:     ViolationHazmatSeparation,
						Severity: SeverityCritical,
						Message:  fmt.Sprintf("hazardous units %s and %s only %.0f mm apart, need %.0f mm", a.Unit.ID, b.Unit.ID, gap, cfg.HazmatSeparation),
					})
				}
			}
			if ai.TempControl && bi.TempControl {
				if d := absFloat(ai.TargetTemp - bi.TargetTemp); d > cfg.TempTolerance {
					out = append(out, Warning{
						Kind:     ViolationTempConflict,
						Severity: SeverityHigh,
						Message:  fmt.Sprintf("units %s (%.0f°) and %s (%.0f°) exceed %.0f° co-location tolerance", a.Unit.ID, ai.TargetTemp, b.Unit.ID, bi.TargetTemp, cfg.TempTolerance),
					})
				}
			}
			if cfg.SeparateMaterials && ai.Material != "" && bi.Material != "" && ai.Material != bi.Material {
				if gap := volumeGap(av, bv); gap < cfg.MaterialClearance {
					out = append(out, Warning{
						Kind:     ViolationMaterialBuffer,
						Severity: SeverityLow,
						Message:  fmt.Sprintf("units %s (%s) and %s (%s) within %.0f mm", a.Unit.ID, ai.Material, b.Unit.ID, bi.Material, cfg.MaterialClearance),
					})
				}
			}
		}
	}
	return out
}

// orderPlacements reorders the placement list (never the positions) per
// the loading sequence. LIFO puts later-delivered units first, so the
// earliest drop sits nearest the doors when loading runs down the list.
// NestedIn indexes are rewritten to follow their hosts into the new
// order.
func orderPlacements(pls []Placement, sequence string) {
	less := sequenceLess(sequence)
	idx := make([]int, len(pls))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return less(pls[idx[a]], pls[idx[b]])
	})
	pos := make([]int, len(pls))
	for newI, oldI := range idx {
		pos[oldI] = newI
	}
	out := make([]Placement, len(pls))
	for newI, oldI := range idx {
		p := pls[oldI]
		if p.NestedIn >= 0 {
			p.NestedIn = pos[p.NestedIn]
		}
		out[newI] = p
	}
	copy(pls, out)
}

func sequenceLess(sequence string) func(a, b Placement) bool {
	switch sequence {
	case SequenceFIFO:
		return func(a, b Placement) bool {
			return a.Unit.Item.DeliveryOrder < b.Unit.Item.DeliveryOrder
		}
	case SequenceRoute:
		return func(a, b Placement) bool {
			if a.Unit.Item.RouteID != b.Unit.Item.RouteID {
				return a.Unit.Item.RouteID < b.Unit.Item.RouteID
			}
			return a.Unit.Item.DeliveryOrder < b.Unit.Item.DeliveryOrder
		}
	case SequenceWeight:
		return func(a, b Placement) bool {
			return a.Unit.Item.Weight > b.Unit.Item.Weight
		}
	case SequencePriority:
		return func(a, b Placement) bool {
			return a.Unit.Item.priorityRank() < b.Unit.Item.priorityRank()
		}
	default: // SequenceLIFO
		return func(a, b Placement) bool {
			return a.Unit.Item.DeliveryOrder > b.Unit.Item.DeliveryOrder
		}
	}
}

// AuditPlan independently re-validates a finished plan's placements,
// returning the violations a fresh constraint pass reports. Useful for
// callers that want to re-check a stored plan against a different rule
// configuration.
func (o *Optimizer) AuditPlan(spec ContainerSpec, plan LoadPlan) []Violation {
	occ := NewOccupancy()
	for _, pl := range plan.Placements {
		occ.Insert(pl)
	}
	var out []Violation
	// Replay each placement against the others.
	for i := 0; i < occ.Len(); i++ {
		pl := occ.At(i)
		b := occ.BoundsAt(i)
		ignore := i
		if c := occ.conflict(b, ignore); c >= 0 && c != pl.NestedIn && occ.At(c).NestedIn != i {
			out = append(out, Violation{
				Kind: ViolationOutOfBounds, Severity: SeverityCritical, Hard: true,
				Message: fmt.Sprintf("units %s and %s overlap", pl.Unit.ID, occ.At(c).Unit.ID),
			})
		}
		if !spec.Bay().Contains(b) {
			out = append(out, Violation{
				Kind: ViolationOutOfBounds, Severity: SeverityCritical, Hard: true,
				Message: fmt.Sprintf("unit %s outside container bounds", pl.Unit.ID),
			})
		}
	}
	for _, w := range o.planChecks(spec, occ) {
		out = append(out, Violation{Kind: w.Kind, Severity: w.Severity, Message: w.Message})
	}
	return out
}
