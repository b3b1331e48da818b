package pack

import (
	"fmt"
	"math"
)

// Warning severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Violation kinds.
const (
	ViolationOutOfBounds       = "out_of_bounds"
	ViolationOverweight        = "overweight"
	ViolationCoGOffset         = "cog_offset"
	ViolationNonStackable      = "non_stackable_elevated"
	ViolationStackingRatio     = "stacking_weight_ratio"
	ViolationInsufficientBase  = "insufficient_support"
	ViolationRollingRisk       = "rolling_risk"
	ViolationFragileHorizontal = "fragile_horizontal"
	ViolationNestingDepth      = "nesting_depth"
	ViolationMaterialBuffer    = "material_buffer"
	ViolationHazmatSeparation  = "hazardous_separation"
	ViolationTempConflict      = "temperature_conflict"
	ViolationAxleImbalance     = "axle_imbalance"
	ViolationUnplaced          = "unplaced_items"
	ViolationOverCapacity      = "over_capacity"
)

// Violation is one failed constraint check.
type Violation struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	// Hard violations block the candidate placement; soft ones are
	// surfaced as plan warnings.
	Hard bool `json:"-"`
}

// Result is the outcome of validating one candidate placement.
type Result struct {
	Valid      bool        // no hard violations
	Violations []Violation // hard and soft
	Score      float64     // tie-break desirability, higher is better
}

// Config holds every tunable numeric rule. All fields have working
// defaults from DefaultConfig; zero values are backfilled on load.
type Config struct {
	SupportRatio       float64 `yaml:"supportRatio"`       // min supported base fraction for elevated boxes
	StackingRatio      float64 `yaml:"stackingRatio"`      // heavier-above-lighter weight ratio limit
	CoGTolerance       float64 `yaml:"cogTolerance"`       // CoG offset tolerance, fraction of each axis
	MaterialClearance  float64 `yaml:"materialClearance"`  // mm between differing material kinds
	SeparateMaterials  bool    `yaml:"separateMaterials"`  // disable to drop the material buffer check
	HazmatSeparation   float64 `yaml:"hazmatSeparation"`   // mm between hazardous units
	TempTolerance      float64 `yaml:"tempTolerance"`      // °C between co-located temp-controlled units
	MaxNestingDepth    int     `yaml:"maxNestingDepth"`    // concentric containment levels
	NestDiameterMargin float64 `yaml:"nestDiameterMargin"` // mm of host diameter over nested diameter
	NestClearance      float64 `yaml:"nestClearance"`      // mm of free height above a nest host's base
	FrontAxleZone      float64 `yaml:"frontAxleZone"`      // fraction of length counted as the front zone
	FrontShareMin      float64 `yaml:"frontShareMin"`      // min front axle share of total weight
	FrontShareMax      float64 `yaml:"frontShareMax"`      // max front axle share of total weight
}

// DefaultConfig returns the standard rule set.
func DefaultConfig() Config {
	return Config{
		SupportRatio:       0.80,
		StackingRatio:      1.5,
		CoGTolerance:       0.10,
		MaterialClearance:  50,
		SeparateMaterials:  true,
		HazmatSeparation:   1000,
		TempTolerance:      5,
		MaxNestingDepth:    3,
		NestDiameterMargin: 100,
		NestClearance:      100,
		FrontAxleZone:      0.20,
		FrontShareMin:      0.20,
		FrontShareMax:      0.40,
	}
}

// withDefaults backfills zero fields so partial configs stay usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SupportRatio <= 0 {
		c.SupportRatio = d.SupportRatio
	}
	if c.StackingRatio <= 0 {
		c.StackingRatio = d.StackingRatio
	}
	if c.CoGTolerance <= 0 {
		c.CoGTolerance = d.CoGTolerance
	}
	if c.MaterialClearance <= 0 {
		c.MaterialClearance = d.MaterialClearance
	}
	if c.HazmatSeparation <= 0 {
		c.HazmatSeparation = d.HazmatSeparation
	}
	if c.TempTolerance <= 0 {
		c.TempTolerance = d.TempTolerance
	}
	if c.MaxNestingDepth <= 0 {
		c.MaxNestingDepth = d.MaxNestingDepth
	}
	if c.NestDiameterMargin <= 0 {
		c.NestDiameterMargin = d.NestDiameterMargin
	}
	if c.NestClearance <= 0 {
		c.NestClearance = d.NestClearance
	}
	if c.FrontAxleZone <= 0 {
		c.FrontAxleZone = d.FrontAxleZone
	}
	if c.FrontShareMin <= 0 {
		c.FrontShareMin = d.FrontShareMin
	}
	if c.FrontShareMax <= 0 {
		c.FrontShareMax = d.FrontShareMax
	}
	return c
}

// Constraints is the stateless validator and scorer shared by both
// packers. A zero-value Constraints is not usable; build one with
// NewConstraints.
type Constraints struct {
	cfg Config
}

func NewConstraints(cfg Config) *Constraints {
	return &Constraints{cfg: cfg.withDefaults()}
}

// Cfg returns the effective configuration.
func (e *Constraints) Cfg() Config { return e.cfg }

const scoreBaseline = 100.0

// Validate checks a candidate placement against the container and the
// already committed occupancy. It never mutates its inputs, so calling it
// twice with the same arguments yields the identical Result.
func (e *Constraints) Validate(spec ContainerSpec, cand Placement, occ *Occupancy) Result {
	res := Result{Valid: true, Score: scoreBaseline}
	b := cand.Bounds()
	bay := spec.Bay()
	it := cand.Unit.Item

	// Boundary.
	if cand.Pos.Y < 0 || !bay.Contains(b) {
		res.add(Violation{
			Kind: ViolationOutOfBounds, Severity: SeverityHigh, Hard: true,
			Message: fmt.Sprintf("unit %s at (%.0f,%.0f,%.0f) exceeds container bounds", cand.Unit.ID, cand.Pos.X, cand.Pos.Y, cand.Pos.Z),
		})
	}

	// Weight ceiling.
	if occ.Weight()+it.Weight > spec.MaxWeight {
		res.add(Violation{
			Kind: ViolationOverweight, Severity: SeverityHigh, Hard: true,
			Message: fmt.Sprintf("unit %s would raise load to %.1f kg over the %.0f kg limit", cand.Unit.ID, occ.Weight()+it.Weight, spec.MaxWeight),
		})
	}

	// Center of gravity drift (soft; re-checked plan-wide after packing).
	if v, ok := e.cogViolation(spec, candCoG(occ, b, it.Weight)); ok {
		res.add(v)
	}

	if it.Shape == ShapeBox {
		e.checkBoxStacking(&res, cand, b, occ)
	} else {
		e.checkCylinderStacking(&res, cand, b, occ)
	}
	e.checkMaterials(&res, cand, b, occ)
	e.checkSafety(&res, cand, b, occ)

	// Desirability: lower and more central placements are preferred.
	if spec.Height > 0 {
		res.Score -= 20 * (cand.Pos.Y / spec.Height)
	}
	c := b.Center()
	dx := absFloat(c.X-spec.Length/2) / maxFloat(spec.Length, 1)
	dz := absFloat(c.Z-spec.Width/2) / maxFloat(spec.Width, 1)
	res.Score -= 10 * (dx + dz)
	if it.Shape == ShapeBox && occ.supportedRatio(b, -1) >= e.cfg.SupportRatio {
		res.Score += 10
	}
	return res
}

// candCoG projects the center of gravity after adding weight w at the
// candidate's bounding-volume center.
func candCoG(occ *Occupancy, b Volume, w float64) Point {
	cur := occ.CenterOfGravity()
	tw := occ.Weight() + w
	if tw <= 0 {
		return b.Center()
	}
	c := b.Center()
	return Point{
		X: (cur.X*occ.Weight() + c.X*w) / tw,
		Y: (cur.Y*occ.Weight() + c.Y*w) / tw,
		Z: (cur.Z*occ.Weight() + c.Z*w) / tw,
	}
}

func (e *Constraints) cogViolation(spec ContainerSpec, cog Point) (Violation, bool) {
	offX := absFloat(cog.X - spec.Length/2)
	offZ := absFloat(cog.Z - spec.Width/2)
	if offX <= spec.Length*e.cfg.CoGTolerance && offZ <= spec.Width*e.cfg.CoGTolerance {
		return Violation{}, false
	}
	return Violation{
		Kind: ViolationCoGOffset, Severity: SeverityMedium,
		Message: fmt.Sprintf("center of gravity offset (%.0f mm, %.0f mm) exceeds %.0f%% tolerance", offX, offZ, e.cfg.CoGTolerance*100),
	}, true
}

func (e *Constraints) checkBoxStacking(res *Result, cand Placement, b Volume, occ *Occupancy) {
	it := cand.Unit.Item
	if b.Y <= geomEps {
		return
	}
	if !it.Stackable {
		res.add(Violation{
			Kind: ViolationNonStackable, Severity: SeverityHigh, Hard: true,
			Message: fmt.Sprintf("non-stackable unit %s cannot be placed at height %.0f mm", cand.Unit.ID, b.Y),
		})
		return
	}
	supports := occ.supportsUnder(b, -1)
	for _, si := range supports {
		below := occ.At(si).Unit.Item
		if below.Weight < it.Weight/e.cfg.StackingRatio {
			res.add(Violation{
				Kind: ViolationStackingRatio, Severity: SeverityHigh, Hard: true,
				Message: fmt.Sprintf("unit %s (%.1f kg) too heavy to rest on %s (%.1f kg)", cand.Unit.ID, it.Weight, occ.At(si).Unit.ID, below.Weight),
			})
			return
		}
		if below.Fragile {
			res.add(Violation{
				Kind: ViolationStackingRatio, Severity: SeverityHigh, Hard: true,
				Message: fmt.Sprintf("unit %s cannot rest on fragile unit %s", cand.Unit.ID, occ.At(si).Unit.ID),
			})
			return
		}
	}
	if r := occ.supportedRatio(b, -1); r < e.cfg.SupportRatio {
		res.add(Violation{
			Kind: ViolationInsufficientBase, Severity: SeverityHigh, Hard: true,
			Message: fmt.Sprintf("unit %s has %.0f%% base support, need %.0f%%", cand.Unit.ID, r*100, e.cfg.SupportRatio*100),
		})
	}
}

func (e *Constraints) checkCylinderStacking(res *Result, cand Placement, b Volume, occ *Occupancy) {
	it := cand.Unit.Item
	if cand.Horizontal && it.Fragile {
		res.add(Violation{
			Kind: ViolationFragileHorizontal, Severity: SeverityHigh, Hard: true,
			Message: fmt.Sprintf("fragile cylinder %s may not be placed horizontally", cand.Unit.ID),
		})
	}
	if cand.Horizontal && b.Y > geomEps {
		if len(occ.supportsUnder(b, -1)) < 2 {
			res.add(Violation{
				Kind: ViolationRollingRisk, Severity: SeverityHigh, Hard: true,
				Message: fmt.Sprintf("elevated horizontal cylinder %s needs at least 2 supports", cand.Unit.ID),
			})
		}
	}
	if cand.NestDepth > e.cfg.MaxNestingDepth {
		res.add(Violation{
			Kind: ViolationNestingDepth, Severity: SeverityMedium, Hard: true,
			Message: fmt.Sprintf("unit %s nested %d deep, max %d", cand.Unit.ID, cand.NestDepth, e.cfg.MaxNestingDepth),
		})
	}
	if !cand.Horizontal && b.Y > geomEps && cand.NestedIn < 0 {
		if len(occ.supportsUnder(b, -1)) == 0 {
			res.add(Violation{
				Kind: ViolationInsufficientBase, Severity: SeverityHigh, Hard: true,
				Message: fmt.Sprintf("elevated cylinder %s has nothing beneath it", cand.Unit.ID),
			})
		}
	}
}

func (e *Constraints) checkMaterials(res *Result, cand Placement, b Volume, occ *Occupancy) {
	if !e.cfg.SeparateMaterials || cand.Unit.Item.Material == "" {
		return
	}
	for i := 0; i < occ.Len(); i++ {
		other := occ.At(i)
		om := other.Unit.Item.Material
		if om == "" || om == cand.Unit.Item.Material {
			continue
		}
		if volumeGap(b, occ.BoundsAt(i)) < e.cfg.MaterialClearance {
			res.add(Violation{
				Kind: ViolationMaterialBuffer, Severity: SeverityLow,
				Message: fmt.Sprintf("unit %s (%s) within %.0f mm of %s (%s)", cand.Unit.ID, cand.Unit.Item.Material, e.cfg.MaterialClearance, other.Unit.ID, om),
			})
			return
		}
	}
}

func (e *Constraints) checkSafety(res *Result, cand Placement, b Volume, occ *Occupancy) {
	it := cand.Unit.Item
	for i := 0; i < occ.Len(); i++ {
		other := occ.At(i)
		oit := other.Unit.Item
		ob := occ.BoundsAt(i)
		if it.Hazardous && oit.Hazardous {
			if gap := volumeGap(b, ob); gap < e.cfg.HazmatSeparation {
				res.add(Violation{
					Kind: ViolationHazmatSeparation, Severity: SeverityCritical, Hard: true,
					Message: fmt.Sprintf("hazardous units %s and %s only %.0f mm apart, need %.0f mm", cand.Unit.ID, other.Unit.ID, gap, e.cfg.HazmatSeparation),
				})
			}
		}
		if it.TempControl && oit.TempControl {
			if d := absFloat(it.TargetTemp - oit.TargetTemp); d > e.cfg.TempTolerance {
				res.add(Violation{
					Kind: ViolationTempConflict, Severity: SeverityHigh, Hard: true,
					Message: fmt.Sprintf("units %s (%.0f°) and %s (%.0f°) differ by more than %.0f°", cand.Unit.ID, it.TargetTemp, other.Unit.ID, oit.TargetTemp, e.cfg.TempTolerance),
				})
			}
		}
	}
}

// volumeGap returns the minimum axis-aligned distance between two
// volumes, 0 when they touch or overlap.
func volumeGap(a, b Volume) float64 {
	gx := axisGap(a.X, a.MaxX(), b.X, b.MaxX())
	gy := axisGap(a.Y, a.MaxY(), b.Y, b.MaxY())
	gz := axisGap(a.Z, a.MaxZ(), b.Z, b.MaxZ())
	return math.Sqrt(gx*gx + gy*gy + gz*gz)
}

func axisGap(aMin, aMax, bMin, bMax float64) float64 {
	if aMax < bMin {
		return bMin - aMax
	}
	if bMax < aMin {
		return aMin - bMax
	}
	return 0
}

// BlockedOnlyBySeparation reports whether every hard violation is a
// separation-class check (hazmat distance, temperature co-location).
// Those depend on every other unit in the container: when they cannot be
// satisfied anywhere, the unit is still placed and the violation
// surfaces as a critical plan warning instead of a silent drop.
func (r Result) BlockedOnlyBySeparation() bool {
	for _, v := range r.Violations {
		if v.Hard && v.Kind != ViolationHazmatSeparation && v.Kind != ViolationTempConflict {
			return false
		}
	}
	return true
}

func (r *Result) add(v Violation) {
	r.Violations = append(r.Violations, v)
	if v.Hard {
		r.Valid = false
	}
	switch v.Severity {
	case SeverityCritical:
		r.Score -= 40
	case SeverityHigh:
		r.Score -= 25
	case SeverityMedium:
		r.Score -= 10
	default:
		r.Score -= 5
	}
}
