package pack

import (
	"fmt"
	"math"
	"sort"
)

// CylPacker places circular-footprint units. Vertical orientation is
// preferred for stability; smaller nestable cylinders are dropped into
// larger already-placed hosts; horizontal units are laid row-major along
// the floor and, when elevated, require a validated support condition.
type CylPacker struct {
	engine *Constraints
}

func NewCylPacker(engine *Constraints) *CylPacker {
	return &CylPacker{engine: engine}
}

// Pack places as many units as fit, sharing the occupancy already filled
// by the cuboidal packer. Returned notes carry non-blocking violations
// discovered while packing (e.g. a fragile cylinder requested
// horizontal, which is forced upright).
func (p *CylPacker) Pack(spec ContainerSpec, units []Unit, occ *Occupancy, free *FreeSpaceSet) (placed []Placement, unplaced []Unit, notes []Violation) {
	var vertical, horizontal []Unit
	for _, u := range units {
		if u.Item.Orientation == OrientHorizontal {
			if u.Item.Fragile {
				// Fragile cylinders may never lie on their side; force
				// upright and surface the violation.
				notes = append(notes, Violation{
					Kind:     ViolationFragileHorizontal,
					Severity: SeverityHigh,
					Message:  fmt.Sprintf("fragile cylinder %s requested horizontal, placed vertically instead", u.ID),
				})
				vertical = append(vertical, u)
				continue
			}
			horizontal = append(horizontal, u)
			continue
		}
		vertical = append(vertical, u)
	}

	sort.SliceStable(vertical, func(i, j int) bool {
		di, dj := vertical[i].Item.Diameter, vertical[j].Item.Diameter
		if di != dj {
			return di > dj
		}
		return vertical[i].ID < vertical[j].ID
	})

	for _, u := range vertical {
		pl, ok := p.placeVertical(spec, u, occ, free)
		if !ok {
			unplaced = append(unplaced, u)
			continue
		}
		placed = append(placed, pl)
	}
	for _, u := range horizontal {
		pl, ok := p.placeHorizontal(spec, u, occ, free)
		if !ok {
			unplaced = append(unplaced, u)
			continue
		}
		placed = append(placed, pl)
	}
	return placed, unplaced, notes
}

func (p *CylPacker) placeVertical(spec ContainerSpec, u Unit, occ *Occupancy, free *FreeSpaceSet) (Placement, bool) {
	if u.Item.Nestable {
		if pl, ok := p.tryNest(spec, u, occ); ok {
			occ.Insert(pl)
			// Nested volume already lies inside the host; free space
			// was consumed when the host was committed.
			return pl, true
		}
	}
	for _, relaxed := range []bool{false, true} {
		if pl, ok := p.tryRings(spec, u, occ, relaxed); ok {
			occ.Insert(pl)
			free.Occupy(pl.Bounds())
			return pl, true
		}
		// Ring pattern exhausted (typically crowded out by boxes);
		// sweep the floor row-major before giving up. The relaxed round
		// commits past separation-class blocks so the plan sweep can
		// report them.
		if pl, ok := p.tryFloorSweep(spec, u, occ, false, relaxed); ok {
			occ.Insert(pl)
			free.Occupy(pl.Bounds())
			return pl, true
		}
	}
	return Placement{}, false
}

// tryNest searches already-placed vertical cylinders whose diameter
// exceeds the candidate's by the configured margin and whose open height
// leaves the minimum clearance. The concentric offset tie-break is
// deterministic: the smallest offset wins, i.e. dead center.
func (p *CylPacker) tryNest(spec ContainerSpec, u Unit, occ *Occupancy) (Placement, bool) {
	cfg := p.engine.Cfg()
	it := u.Item
	for i := 0; i < occ.Len(); i++ {
		host := occ.At(i)
		hit := host.Unit.Item
		if hit.Shape != ShapeCylinder || host.Horizontal {
			continue
		}
		if hit.Diameter < it.Diameter+cfg.NestDiameterMargin {
			continue
		}
		if hit.Height < cfg.NestClearance {
			continue
		}
		hb := occ.BoundsAt(i)
		center := hb.Center()
		cand := Placement{
			Unit:       u,
			Pos:        Point{X: center.X - it.Diameter/2, Y: host.Pos.Y, Z: center.Z - it.Diameter/2},
			NestedIn:   i,
			NestDepth:  host.NestDepth + 1,
			Horizontal: false,
		}
		if occ.conflict(cand.Bounds(), i) >= 0 {
			continue
		}
		if res := p.engine.Validate(spec, cand, occ); !res.Valid {
			continue
		}
		return cand, true
	}
	return Placement{}, false
}

// tryRings walks concentric rings of increasing radius out from the
// container's center: ring 0 is the center itself, ring k holds the
// maximum whole number of units that fit its circumference with the
// minimum angular spacing.
func (p *CylPacker) tryRings(spec ContainerSpec, u Unit, occ *Occupancy, relaxed bool) (Placement, bool) {
	it := u.Item
	d := it.Diameter
	cx, cz := spec.Length/2, spec.Width/2
	usable := minFloat(spec.Length, spec.Width)/2 - d/2

	if usable < 0 {
		return Placement{}, false
	}
	// Ring 0: dead center.
	if pl, ok := p.tryCylAt(spec, u, cx-d/2, 0, cz-d/2, occ, relaxed); ok {
		return pl, true
	}
	ringStep := d + ringSpacing
	for radius := ringStep; radius <= usable; radius += ringStep {
		circumference := 2 * math.Pi * radius
		n := int(circumference / (d + ringSpacing))
		if n < 1 {
			continue
		}
		for j := 0; j < n; j++ {
			theta := 2 * math.Pi * float64(j) / float64(n)
			x := cx + radius*math.Cos(theta) - d/2
			z := cz + radius*math.Sin(theta) - d/2
			if pl, ok := p.tryCylAt(spec, u, x, 0, z, occ, relaxed); ok {
				return pl, true
			}
		}
	}
	return Placement{}, false
}

// ringSpacing is the minimum clear arc distance between ring units (mm).
const ringSpacing = 20.0

// tryFloorSweep scans row-major floor positions (x outer, z inner) at a
// half-diameter step.
func (p *CylPacker) tryFloorSweep(spec ContainerSpec, u Unit, occ *Occupancy, horizontal, relaxed bool) (Placement, bool) {
	it := u.Item
	footX, footZ := it.Diameter, it.Diameter
	if horizontal {
		footX = it.Height
	}
	step := maxFloat(it.Diameter/2, minSliver)
	for x := 0.0; x+footX <= spec.Length+geomEps; x += step {
		for z := 0.0; z+footZ <= spec.Width+geomEps; z += step {
			cand := Placement{Unit: u, Pos: Point{X: x, Z: z}, NestedIn: -1, Horizontal: horizontal}
			if occ.Intersects(cand.Bounds()) {
				continue
			}
			res := p.engine.Validate(spec, cand, occ)
			if res.Valid || (relaxed && res.BlockedOnlyBySeparation()) {
				return cand, true
			}
		}
	}
	return Placement{}, false
}

func (p *CylPacker) tryCylAt(spec ContainerSpec, u Unit, x, y, z float64, occ *Occupancy, relaxed bool) (Placement, bool) {
	cand := Placement{Unit: u, Pos: Point{X: x, Y: y, Z: z}, NestedIn: -1}
	if occ.Intersects(cand.Bounds()) {
		return Placement{}, false
	}
	res := p.engine.Validate(spec, cand, occ)
	if !res.Valid && !(relaxed && res.BlockedOnlyBySeparation()) {
		return Placement{}, false
	}
	return cand, true
}

// placeHorizontal lays the cylinder axis along the container length.
// Floor rows are tried first; elevated levels only where the constraints
// engine confirms at least two independent supports. Elevated placements
// get a synthesized support wedge for the downstream layers.
func (p *CylPacker) placeHorizontal(spec ContainerSpec, u Unit, occ *Occupancy, free *FreeSpaceSet) (Placement, bool) {
	if pl, ok := p.tryFloorSweep(spec, u, occ, true, false); ok {
		occ.Insert(pl)
		free.Occupy(pl.Bounds())
		return pl, true
	}
	it := u.Item
	step := maxFloat(it.Diameter/2, minSliver)
	for _, y := range p.restLevels(occ) {
		for x := 0.0; x+it.Height <= spec.Length+geomEps; x += step {
			for z := 0.0; z+it.Diameter <= spec.Width+geomEps; z += step {
				cand := Placement{Unit: u, Pos: Point{X: x, Y: y, Z: z}, NestedIn: -1, Horizontal: true}
				if occ.Intersects(cand.Bounds()) {
					continue
				}
				if res := p.engine.Validate(spec, cand, occ); !res.Valid {
					continue
				}
				if !it.Fragile {
					cand.Support = &SupportWedge{
						Pos:    cand.Pos,
						Length: it.Height,
						Width:  it.Diameter,
						Height: it.Diameter / 4,
					}
				}
				occ.Insert(cand)
				free.Occupy(cand.Bounds())
				return cand, true
			}
		}
	}
	if pl, ok := p.tryFloorSweep(spec, u, occ, true, true); ok {
		occ.Insert(pl)
		free.Occupy(pl.Bounds())
		return pl, true
	}
	return Placement{}, false
}

// restLevels returns the distinct top faces of committed placements in
// ascending order; these are the only heights an elevated horizontal
// cylinder can rest at.
func (p *CylPacker) restLevels(occ *Occupancy) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for i := 0; i < occ.Len(); i++ {
		top := occ.BoundsAt(i).MaxY()
		if top <= geomEps || seen[top] {
			continue
		}
		seen[top] = true
		out = append(out, top)
	}
	sort.Float64s(out)
	return out
}
