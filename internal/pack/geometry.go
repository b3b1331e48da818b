// Package pack implements the load optimization engine: spatial packing of
// boxed and cylindrical cargo into containers, constraint validation, plan
// aggregation and multi-vehicle distribution. The package is pure
// computation; callers own all I/O.
package pack

import (
	"fmt"
	"math"
	"sort"
)

// Shape kinds.
const (
	ShapeBox      = "box"
	ShapeCylinder = "cylinder"
)

// Orientation preferences for cylinders.
const (
	OrientVertical   = "vertical"
	OrientHorizontal = "horizontal"
)

// Priority classes.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Point is a container-local position in millimeters.
// X runs along the container length, Y is vertical, Z runs along the width.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Volume is an axis-aligned box in container-local millimeters.
type Volume struct {
	X, Y, Z    float64 // minimum corner
	DX, DY, DZ float64 // extent along each axis
}

func (v Volume) MaxX() float64 { return v.X + v.DX }
func (v Volume) MaxY() float64 { return v.Y + v.DY }
func (v Volume) MaxZ() float64 { return v.Z + v.DZ }

// CubicMeters returns the enclosed volume in m³.
func (v Volume) CubicMeters() float64 {
	return v.DX * v.DY * v.DZ / 1e9
}

// Center returns the geometric center of the volume.
func (v Volume) Center() Point {
	return Point{X: v.X + v.DX/2, Y: v.Y + v.DY/2, Z: v.Z + v.DZ/2}
}

// Intersects reports whether two volumes overlap with positive extent on
// every axis. Touching faces do not count as overlap.
func (v Volume) Intersects(o Volume) bool {
	return v.X < o.MaxX() && o.X < v.MaxX() &&
		v.Y < o.MaxY() && o.Y < v.MaxY() &&
		v.Z < o.MaxZ() && o.Z < v.MaxZ()
}

// Contains reports whether o lies entirely within v.
func (v Volume) Contains(o Volume) bool {
	return o.X >= v.X-geomEps && o.MaxX() <= v.MaxX()+geomEps &&
		o.Y >= v.Y-geomEps && o.MaxY() <= v.MaxY()+geomEps &&
		o.Z >= v.Z-geomEps && o.MaxZ() <= v.MaxZ()+geomEps
}

// geomEps absorbs float drift in containment checks (1/100 mm).
const geomEps = 0.01

// Item is one logical cargo entry supplied by the caller. An Item with
// Quantity n expands into n independently placed physical units.
type Item struct {
	ID          string
	Shape       string  // ShapeBox | ShapeCylinder
	Length      float64 // mm, boxes only
	Width       float64 // mm, boxes only
	Height      float64 // mm
	Diameter    float64 // mm, cylinders only
	Weight      float64 // kg per unit
	Quantity    int
	Stackable   bool
	Fragile     bool
	Hazardous   bool
	TempControl bool
	TargetTemp  float64 // °C, meaningful when TempControl
	Nestable    bool    // cylinders only
	Orientation string  // cylinders only, OrientVertical | OrientHorizontal
	Priority    string  // PriorityHigh | PriorityMedium | PriorityLow
	Material    string  // material kind for mixed-load buffering
	RouteID     string
	Pickup      string
	Delivery    string
	// DeliveryOrder is the position of this item's drop in its route
	// (lower = delivered earlier). Drives lifo/fifo/route sequencing.
	DeliveryOrder int
}

// Validate rejects malformed items before any packing attempt.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item: missing id")
	}
	if it.Quantity < 1 {
		return fmt.Errorf("item %s: quantity must be >= 1", it.ID)
	}
	if it.Weight <= 0 {
		return fmt.Errorf("item %s: weight must be > 0", it.ID)
	}
	switch it.Shape {
	case ShapeBox:
		if it.Length <= 0 || it.Width <= 0 || it.Height <= 0 {
			return fmt.Errorf("item %s: box dimensions must be > 0", it.ID)
		}
	case ShapeCylinder:
		if it.Diameter <= 0 || it.Height <= 0 {
			return fmt.Errorf("item %s: cylinder dimensions must be > 0", it.ID)
		}
	default:
		return fmt.Errorf("item %s: unknown shape %q", it.ID, it.Shape)
	}
	return nil
}

// UnitVolumeM3 is the volume of one physical unit in m³.
func (it Item) UnitVolumeM3() float64 {
	if it.Shape == ShapeCylinder {
		r := it.Diameter / 2
		return math.Pi * r * r * it.Height / 1e9
	}
	return it.Length * it.Width * it.Height / 1e9
}

func (it Item) priorityRank() int {
	switch it.Priority {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Unit is one physical unit expanded from an Item.
type Unit struct {
	Item    *Item
	Replica int    // 0-based replica index within the item
	ID      string // "<itemID>#<replica>"
}

// ExpandUnits expands items into physical units in a deterministic order:
// input item order, then ascending replica index.
func ExpandUnits(items []*Item) []Unit {
	var out []Unit
	for _, it := range items {
		for r := 0; r < it.Quantity; r++ {
			out = append(out, Unit{Item: it, Replica: r, ID: fmt.Sprintf("%s#%d", it.ID, r)})
		}
	}
	return out
}

// Bounds returns the bounding volume of the unit placed at p. Horizontal
// applies only to cylinders and lays the axis along the container length.
func (u Unit) Bounds(p Point, horizontal bool) Volume {
	it := u.Item
	if it.Shape == ShapeCylinder {
		if horizontal {
			return Volume{X: p.X, Y: p.Y, Z: p.Z, DX: it.Height, DY: it.Diameter, DZ: it.Diameter}
		}
		return Volume{X: p.X, Y: p.Y, Z: p.Z, DX: it.Diameter, DY: it.Height, DZ: it.Diameter}
	}
	return Volume{X: p.X, Y: p.Y, Z: p.Z, DX: it.Length, DY: it.Height, DZ: it.Width}
}

// ContainerSpec is a read-only vehicle type definition.
type ContainerSpec struct {
	Name      string
	Length    float64 // mm
	Width     float64 // mm
	Height    float64 // mm
	MaxWeight float64 // kg
	MaxVolume float64 // m³; derived from dimensions when zero
	CostPerKm float64
}

// Validate rejects malformed container specifications.
func (c ContainerSpec) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("container: missing name")
	}
	if c.Length <= 0 || c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("container %s: dimensions must be > 0", c.Name)
	}
	if c.MaxWeight <= 0 {
		return fmt.Errorf("container %s: max weight must be > 0", c.Name)
	}
	return nil
}

// Bay returns the empty cargo bay volume.
func (c ContainerSpec) Bay() Volume {
	return Volume{DX: c.Length, DY: c.Height, DZ: c.Width}
}

// VolumeM3 returns the usable volume in m³, preferring the declared value.
func (c ContainerSpec) VolumeM3() float64 {
	if c.MaxVolume > 0 {
		return c.MaxVolume
	}
	return c.Bay().CubicMeters()
}

// sortUnitsForPacking orders units for the cuboidal packer: descending
// unit volume, ties broken by descending unit weight, then by unit ID so
// repeated runs are identical.
func sortUnitsForPacking(units []Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		vi, vj := units[i].Item.UnitVolumeM3(), units[j].Item.UnitVolumeM3()
		if vi != vj {
			return vi > vj
		}
		wi, wj := units[i].Item.Weight, units[j].Item.Weight
		if wi != wj {
			return wi > wj
		}
		return units[i].ID < units[j].ID
	})
}
