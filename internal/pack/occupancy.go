package pack

// Placement is the committed position of one physical unit.
type Placement struct {
	Unit       Unit
	Pos        Point
	Horizontal bool // cylinders only
	NestedIn   int  // index of host placement, -1 when not nested
	NestDepth  int  // concentric containment level, 0 = free-standing
	Support    *SupportWedge
}

// SupportWedge describes the synthesized chock for an elevated horizontal
// cylinder. Emitted for the visualization/reporting layers.
type SupportWedge struct {
	Pos    Point   `json:"pos"`
	Length float64 `json:"length"` // mm along the cylinder axis
	Width  float64 `json:"width"`  // mm
	Height float64 `json:"height"` // mm
}

// Bounds returns the placement's occupied bounding volume.
func (p Placement) Bounds() Volume {
	return p.Unit.Bounds(p.Pos, p.Horizontal)
}

// Occupancy is the shared occupied-volume state for one container. Both
// packers place into the same Occupancy so mixed-shape orders never
// collide. Entries are referenced by index; the backing slices are owned
// here and never aliased out.
type Occupancy struct {
	placements []Placement
	bounds     []Volume // parallel to placements

	weight   float64 // kg
	volumeM3 float64
}

func NewOccupancy() *Occupancy {
	return &Occupancy{}
}

// Intersects reports whether v overlaps any occupied volume.
func (o *Occupancy) Intersects(v Volume) bool {
	return o.conflict(v, -1) >= 0
}

// conflict returns the index of the first occupied volume overlapping v,
// skipping the placement at index ignore (a nested cylinder legitimately
// sits inside its host's bounding volume), or -1.
func (o *Occupancy) conflict(v Volume, ignore int) int {
	for i, b := range o.bounds {
		if i == ignore {
			continue
		}
		if b.Intersects(v) {
			return i
		}
	}
	return -1
}

// Insert commits a placement and returns its index.
func (o *Occupancy) Insert(p Placement) int {
	o.placements = append(o.placements, p)
	o.bounds = append(o.bounds, p.Bounds())
	o.weight += p.Unit.Item.Weight
	o.volumeM3 += p.Unit.Item.UnitVolumeM3()
	return len(o.placements) - 1
}

// Len returns the number of committed placements.
func (o *Occupancy) Len() int { return len(o.placements) }

// At returns the placement at index i.
func (o *Occupancy) At(i int) Placement { return o.placements[i] }

// BoundsAt returns the occupied bounding volume at index i.
func (o *Occupancy) BoundsAt(i int) Volume { return o.bounds[i] }

// Placements returns a copy of all committed placements in commit order.
func (o *Occupancy) Placements() []Placement {
	out := make([]Placement, len(o.placements))
	copy(out, o.placements)
	return out
}

// Weight returns the running total weight in kg.
func (o *Occupancy) Weight() float64 { return o.weight }

// VolumeM3 returns the running total cargo volume in m³.
func (o *Occupancy) VolumeM3() float64 { return o.volumeM3 }

// CenterOfGravity returns the weighted-average position of all placed
// mass, using each unit's bounding-volume center.
func (o *Occupancy) CenterOfGravity() Point {
	if o.weight <= 0 {
		return Point{}
	}
	var cx, cy, cz float64
	for i, b := range o.bounds {
		w := o.placements[i].Unit.Item.Weight
		c := b.Center()
		cx += c.X * w
		cy += c.Y * w
		cz += c.Z * w
	}
	return Point{X: cx / o.weight, Y: cy / o.weight, Z: cz / o.weight}
}

// supportedRatio returns the fraction of the base footprint of v that
// rests on top faces of occupied volumes directly beneath it. Units on
// the floor are fully supported.
func (o *Occupancy) supportedRatio(v Volume, ignore int) float64 {
	if v.Y <= geomEps {
		return 1
	}
	base := v.DX * v.DZ
	if base <= 0 {
		return 0
	}
	covered := 0.0
	for i, b := range o.bounds {
		if i == ignore {
			continue
		}
		if absFloat(b.MaxY()-v.Y) > supportContactTol {
			continue
		}
		dx := minFloat(v.MaxX(), b.MaxX()) - maxFloat(v.X, b.X)
		dz := minFloat(v.MaxZ(), b.MaxZ()) - maxFloat(v.Z, b.Z)
		if dx > 0 && dz > 0 {
			covered += dx * dz
		}
	}
	if covered > base {
		covered = base
	}
	return covered / base
}

// supportsUnder returns the indices of distinct placements whose top face
// touches the base plane of v with positive footprint overlap.
func (o *Occupancy) supportsUnder(v Volume, ignore int) []int {
	var out []int
	for i, b := range o.bounds {
		if i == ignore {
			continue
		}
		if absFloat(b.MaxY()-v.Y) > supportContactTol {
			continue
		}
		dx := minFloat(v.MaxX(), b.MaxX()) - maxFloat(v.X, b.X)
		dz := minFloat(v.MaxZ(), b.MaxZ()) - maxFloat(v.Z, b.Z)
		if dx > 0 && dz > 0 {
			out = append(out, i)
		}
	}
	return out
}

// supportContactTol is the vertical tolerance (mm) for treating one
// volume as resting on another.
const supportContactTol = 1.0

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func absFloat(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}
