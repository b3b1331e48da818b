package pack

// FreeSpaceSet tracks the unoccupied rectangular volumes of a container
// for the cuboidal packer. It always exactly covers the container volume
// minus the union of occupied volumes; every committed placement splits
// the intersecting free volumes into residuals.
//
// Entries keep stable insertion order so the Bottom-Left-Fill scan is
// deterministic. Residuals smaller than minSliver on any axis are dropped
// to bound growth.
type FreeSpaceSet struct {
	spaces []Volume
}

// minSliver is the smallest residual extent (mm) worth tracking.
const minSliver = 10.0

// NewFreeSpaceSet seeds the set with the whole container bay.
func NewFreeSpaceSet(bay Volume) *FreeSpaceSet {
	return &FreeSpaceSet{spaces: []Volume{bay}}
}

// Len returns the number of free volumes.
func (f *FreeSpaceSet) Len() int { return len(f.spaces) }

// At returns the free volume at index i.
func (f *FreeSpaceSet) At(i int) Volume { return f.spaces[i] }

// FindFit returns the index of the first free volume, in Bottom-Left-Fill
// order (lowest y, then x, then z), whose extents can hold dx×dy×dz, or
// -1 when none fits.
func (f *FreeSpaceSet) FindFit(dx, dy, dz float64) int {
	best := -1
	for i, s := range f.spaces {
		if s.DX+geomEps < dx || s.DY+geomEps < dy || s.DZ+geomEps < dz {
			continue
		}
		if best < 0 || blfLess(s, f.spaces[best]) {
			best = i
		}
	}
	return best
}

func blfLess(a, b Volume) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}

// Occupy subtracts the occupied volume from every intersecting free
// volume, replacing each with up to six residual volumes: left and right
// of the occupied box along x, front and back along z, above it, and
// below it when the box floats inside the free volume.
func (f *FreeSpaceSet) Occupy(used Volume) {
	next := f.spaces[:0:0]
	for _, s := range f.spaces {
		if !s.Intersects(used) {
			next = append(next, s)
			continue
		}
		next = appendResiduals(next, s, used)
	}
	f.spaces = next
}

func appendResiduals(out []Volume, free, used Volume) []Volume {
	// left of used along x
	if used.X > free.X {
		out = keep(out, Volume{X: free.X, Y: free.Y, Z: free.Z, DX: used.X - free.X, DY: free.DY, DZ: free.DZ})
	}
	// right of used along x
	if used.MaxX() < free.MaxX() {
		out = keep(out, Volume{X: used.MaxX(), Y: free.Y, Z: free.Z, DX: free.MaxX() - used.MaxX(), DY: free.DY, DZ: free.DZ})
	}
	// front of used along z
	if used.Z > free.Z {
		out = keep(out, Volume{X: free.X, Y: free.Y, Z: free.Z, DX: free.DX, DY: free.DY, DZ: used.Z - free.Z})
	}
	// back of used along z
	if used.MaxZ() < free.MaxZ() {
		out = keep(out, Volume{X: free.X, Y: free.Y, Z: used.MaxZ(), DX: free.DX, DY: free.DY, DZ: free.MaxZ() - used.MaxZ()})
	}
	// above used
	if used.MaxY() < free.MaxY() {
		out = keep(out, Volume{X: free.X, Y: used.MaxY(), Z: free.Z, DX: free.DX, DY: free.MaxY() - used.MaxY(), DZ: free.DZ})
	}
	// below used (only when the occupied box floats within this space)
	if used.Y > free.Y {
		out = keep(out, Volume{X: free.X, Y: free.Y, Z: free.Z, DX: free.DX, DY: used.Y - free.Y, DZ: free.DZ})
	}
	return out
}

func keep(out []Volume, v Volume) []Volume {
	if v.DX < minSliver || v.DY < minSliver || v.DZ < minSliver {
		return out
	}
	return append(out, v)
}
