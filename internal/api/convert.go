package api

import (
	"fmt"
	"hash/fnv"
	"strings"

	"loadplan/internal/model"
	"loadplan/internal/pack"
)

func itemFromIn(in model.ItemIn) *pack.Item {
	return &pack.Item{
		ID:            in.ID,
		Shape:         in.Shape,
		Length:        in.LengthMm,
		Width:         in.WidthMm,
		Height:        in.HeightMm,
		Diameter:      in.DiameterMm,
		Weight:        in.WeightKg,
		Quantity:      in.Quantity,
		Stackable:     in.Stackable,
		Fragile:       in.Fragile,
		Hazardous:     in.Hazardous,
		TempControl:   in.TempControl,
		TargetTemp:    in.TargetTempC,
		Nestable:      in.Nestable,
		Orientation:   in.Orientation,
		Priority:      in.Priority,
		Material:      in.Material,
		RouteID:       in.RouteID,
		Pickup:        in.Pickup,
		Delivery:      in.Delivery,
		DeliveryOrder: in.DeliveryOrder,
	}
}

func itemsFromIns(ins []model.ItemIn) []*pack.Item {
	out := make([]*pack.Item, 0, len(ins))
	for _, in := range ins {
		out = append(out, itemFromIn(in))
	}
	return out
}

func specFromType(in model.ContainerTypeIn) pack.ContainerSpec {
	return pack.ContainerSpec{
		Name:      in.Name,
		Length:    in.LengthMm,
		Width:     in.WidthMm,
		Height:    in.HeightMm,
		MaxWeight: in.MaxWeight,
		MaxVolume: in.MaxVolume,
		CostPerKm: in.CostPerKm,
	}
}

func specsFromTypes(ins []model.ContainerTypeIn) []pack.ContainerSpec {
	out := make([]pack.ContainerSpec, 0, len(ins))
	for _, in := range ins {
		out = append(out, specFromType(in))
	}
	return out
}

func typeFromSpec(spec pack.ContainerSpec) model.ContainerTypeIn {
	return model.ContainerTypeIn{
		Name:      spec.Name,
		LengthMm:  spec.Length,
		WidthMm:   spec.Width,
		HeightMm:  spec.Height,
		MaxWeight: spec.MaxWeight,
		MaxVolume: spec.MaxVolume,
		CostPerKm: spec.CostPerKm,
	}
}

func warningsOut(ws []pack.Warning) []model.WarningOut {
	if len(ws) == 0 {
		return nil
	}
	out := make([]model.WarningOut, 0, len(ws))
	for _, w := range ws {
		out = append(out, model.WarningOut{Kind: w.Kind, Severity: w.Severity, Message: w.Message})
	}
	return out
}

// containerOut converts one planned container instance to its wire shape.
// Placements come out in loading-sequence order, so LoadOrder is just the
// position in the list.
func containerOut(load pack.ContainerLoad) model.ContainerOut {
	plan := load.Plan
	placements := make([]model.PlacementOut, 0, len(plan.Placements))
	for i, pl := range plan.Placements {
		b := pl.Bounds()
		p := model.PlacementOut{
			UnitID:     pl.Unit.ID,
			ItemID:     pl.Unit.Item.ID,
			Shape:      pl.Unit.Item.Shape,
			X:          pl.Pos.X,
			Y:          pl.Pos.Y,
			Z:          pl.Pos.Z,
			LengthMm:   b.DX,
			WidthMm:    b.DZ,
			HeightMm:   b.DY,
			Horizontal: pl.Horizontal,
			LoadOrder:  i + 1,
			Color:      colorFor(pl.Unit.Item.ID),
		}
		if pl.NestedIn >= 0 && pl.NestedIn < len(plan.Placements) {
			p.NestedIn = plan.Placements[pl.NestedIn].Unit.ID
		}
		placements = append(placements, p)
	}
	return model.ContainerOut{
		InstanceID:    load.InstanceID,
		Type:          typeFromSpec(load.Spec),
		Placements:    placements,
		TotalWeightKg: plan.TotalWeight,
		TotalVolumeM3: plan.TotalVolumeM3,
		WeightUtil:    plan.WeightUtil,
		VolumeUtil:    plan.VolumeUtil,
		CoG:           [3]float64{plan.CoG.X, plan.CoG.Y, plan.CoG.Z},
		Warnings:      warningsOut(plan.Warnings),
		UnplacedIDs:   plan.UnplacedIDs,
	}
}

// planOut assembles the persisted plan document from the distribution
// result. ID and CreatedAt are filled in by the store.
func planOut(tenantID, externalRef string, loads []pack.ContainerLoad) model.PlanOut {
	out := model.PlanOut{TenantID: tenantID, ExternalRef: externalRef, Status: "completed"}
	var volUtil float64
	for _, load := range loads {
		c := containerOut(load)
		out.Containers = append(out.Containers, c)
		out.Summary.PlacedUnits += len(c.Placements)
		out.Summary.UnplacedUnits += len(c.UnplacedIDs)
		out.Summary.TotalWeightKg += c.TotalWeightKg
		out.Summary.Warnings += len(c.Warnings)
		volUtil += c.VolumeUtil
	}
	out.Summary.Containers = len(out.Containers)
	if len(loads) > 0 {
		out.Summary.AvgVolumeUtil = volUtil / float64(len(loads))
	}
	if out.Summary.Warnings > 0 || out.Summary.UnplacedUnits > 0 {
		out.Status = "completed_with_warnings"
	}
	return out
}

// colorFor derives a stable pastel hex tint from the item ID so repeated
// plans render each item in the same color.
func colorFor(itemID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(itemID)))
	v := h.Sum32()
	// keep each channel in 0x40..0xBF so tints stay readable
	r := 0x40 + byte(v)&0x7f
	g := 0x40 + byte(v>>8)&0x7f
	b := 0x40 + byte(v>>16)&0x7f
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
