package pack

// BoxPacker places rectangular units with Bottom-Left-Fill over an
// explicit Free-Space Set. Placement order is descending unit volume then
// descending weight, so the largest and heaviest units form the base.
type BoxPacker struct {
	engine *Constraints
}

func NewBoxPacker(engine *Constraints) *BoxPacker {
	return &BoxPacker{engine: engine}
}

// Pack places as many units as fit into the container, committing into
// the shared occupancy and consuming free space. Units with no valid
// position are returned in input order for the caller to report.
func (p *BoxPacker) Pack(spec ContainerSpec, units []Unit, occ *Occupancy, free *FreeSpaceSet) (placed []Placement, unplaced []Unit) {
	ordered := make([]Unit, len(units))
	copy(ordered, units)
	sortUnitsForPacking(ordered)

	for _, u := range ordered {
		pl, ok := p.placeOne(spec, u, occ, free)
		if !ok {
			unplaced = append(unplaced, u)
			continue
		}
		placed = append(placed, pl)
	}
	return placed, unplaced
}

// placeOne scans free volumes in BLF order until one passes the
// constraints engine. Spaces that fit geometrically but fail validation
// are skipped, not consumed. If every candidate is blocked solely by
// separation-class checks, a second relaxed pass commits the best BLF
// spot anyway so the plan-level sweep can report the condition.
func (p *BoxPacker) placeOne(spec ContainerSpec, u Unit, occ *Occupancy, free *FreeSpaceSet) (Placement, bool) {
	if pl, ok := p.scan(spec, u, occ, free, false); ok {
		return pl, true
	}
	return p.scan(spec, u, occ, free, true)
}

func (p *BoxPacker) scan(spec ContainerSpec, u Unit, occ *Occupancy, free *FreeSpaceSet, relaxed bool) (Placement, bool) {
	it := u.Item
	tried := make(map[int]bool)
	for {
		idx := p.nextFit(free, it.Length, it.Height, it.Width, tried)
		if idx < 0 {
			return Placement{}, false
		}
		tried[idx] = true
		s := free.At(idx)
		cand := Placement{Unit: u, Pos: Point{X: s.X, Y: s.Y, Z: s.Z}, NestedIn: -1}
		b := cand.Bounds()
		if occ.Intersects(b) {
			continue
		}
		res := p.engine.Validate(spec, cand, occ)
		if !res.Valid && !(relaxed && res.BlockedOnlyBySeparation()) {
			continue
		}
		occ.Insert(cand)
		free.Occupy(b)
		return cand, true
	}
}

// nextFit is FindFit restricted to spaces not yet tried for this unit.
func (p *BoxPacker) nextFit(free *FreeSpaceSet, dx, dy, dz float64, tried map[int]bool) int {
	best := -1
	for i := 0; i < free.Len(); i++ {
		if tried[i] {
			continue
		}
		s := free.At(i)
		if s.DX+geomEps < dx || s.DY+geomEps < dy || s.DZ+geomEps < dz {
			continue
		}
		if best < 0 || blfLess(s, free.At(best)) {
			best = i
		}
	}
	return best
}
