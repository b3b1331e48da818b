package api

import (
	"fmt"

	"loadplan/internal/model"
	"loadplan/internal/pack"
)

func validatePlanRequest(req *model.PlanRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	if len(req.Containers) == 0 {
		return fmt.Errorf("containers must not be empty")
	}
	for i := range req.Items {
		if err := validateItem(&req.Items[i]); err != nil {
			return err
		}
	}
	for i := range req.Containers {
		if err := validateContainerType(&req.Containers[i]); err != nil {
			return err
		}
	}
	switch req.Options.RouteStrategy {
	case "", pack.StrategySeparate, pack.StrategyConsolidate:
	default:
		return fmt.Errorf("invalid routeStrategy: %s", req.Options.RouteStrategy)
	}
	switch req.Options.LoadingSequence {
	case "", pack.SequenceLIFO, pack.SequenceFIFO, pack.SequenceRoute, pack.SequenceWeight, pack.SequencePriority:
	default:
		return fmt.Errorf("invalid loadingSequence: %s", req.Options.LoadingSequence)
	}
	if req.Options.MaxStackHeightMm < 0 {
		return fmt.Errorf("maxStackHeightMm must be >= 0")
	}
	if t := req.Options.WeightDistributionTolerance; t < 0 || t > 1 {
		return fmt.Errorf("weightDistributionTolerance must be in [0,1]")
	}
	if sr := req.Options.StackingRules; sr != nil {
		if sr.MaxWeightRatio < 0 || sr.SupportRatio < 0 || sr.SupportRatio > 1 {
			return fmt.Errorf("invalid stackingRules")
		}
	}
	return nil
}

func validateItem(in *model.ItemIn) error {
	if in.ID == "" {
		return fmt.Errorf("item: id is required")
	}
	if in.WeightKg <= 0 {
		return fmt.Errorf("item %s: weightKg must be > 0", in.ID)
	}
	if in.Quantity < 1 {
		return fmt.Errorf("item %s: quantity must be >= 1", in.ID)
	}
	switch in.Shape {
	case pack.ShapeBox:
		if in.LengthMm <= 0 || in.WidthMm <= 0 || in.HeightMm <= 0 {
			return fmt.Errorf("item %s: box needs lengthMm, widthMm and heightMm > 0", in.ID)
		}
	case pack.ShapeCylinder:
		if in.DiameterMm <= 0 || in.HeightMm <= 0 {
			return fmt.Errorf("item %s: cylinder needs diameterMm and heightMm > 0", in.ID)
		}
	default:
		return fmt.Errorf("item %s: shape must be box or cylinder", in.ID)
	}
	switch in.Orientation {
	case "", pack.OrientVertical, pack.OrientHorizontal:
	default:
		return fmt.Errorf("item %s: invalid orientation %s", in.ID, in.Orientation)
	}
	switch in.Priority {
	case "", pack.PriorityHigh, pack.PriorityMedium, pack.PriorityLow:
	default:
		return fmt.Errorf("item %s: invalid priority %s", in.ID, in.Priority)
	}
	return nil
}

func validateContainerType(in *model.ContainerTypeIn) error {
	if in.Name == "" {
		return fmt.Errorf("container: name is required")
	}
	if in.LengthMm <= 0 || in.WidthMm <= 0 || in.HeightMm <= 0 {
		return fmt.Errorf("container %s: dimensions must be > 0", in.Name)
	}
	if in.MaxWeight <= 0 {
		return fmt.Errorf("container %s: maxWeightKg must be > 0", in.Name)
	}
	if in.MaxVolume < 0 || in.CostPerKm < 0 {
		return fmt.Errorf("container %s: maxVolumeM3 and costPerKm must be >= 0", in.Name)
	}
	return nil
}
