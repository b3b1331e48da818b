// Package ingest parses external cargo manifests into plan request
// items. The CSV layout follows the common TMS export: one row per
// item, header row required.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"loadplan/internal/model"
)

// Supported manifest columns. Unknown columns are ignored so exports
// with extra fields still import.
var csvColumns = map[string]struct{}{
	"id": {}, "name": {}, "shape": {}, "length_mm": {}, "width_mm": {},
	"height_mm": {}, "diameter_mm": {}, "weight_kg": {}, "quantity": {},
	"stackable": {}, "fragile": {}, "hazardous": {}, "temp_control": {},
	"target_temp_c": {}, "nestable": {}, "orientation": {}, "priority": {},
	"material": {}, "route_id": {}, "pickup": {}, "delivery": {},
	"delivery_order": {},
}

// ReadItems parses a CSV cargo manifest. The first record is a header;
// column order is free. Rows with a blank id are skipped.
func ReadItems(r io.Reader) ([]model.ItemIn, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("manifest header: %w", err)
	}
	cols := make([]string, len(header))
	seenID := false
	for i, h := range header {
		c := strings.ToLower(strings.TrimSpace(h))
		if _, ok := csvColumns[c]; ok {
			cols[i] = c
			if c == "id" {
				seenID = true
			}
		}
	}
	if !seenID {
		return nil, fmt.Errorf("manifest header: id column is required")
	}

	var items []model.ItemIn
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		var it model.ItemIn
		it.Quantity = 1
		for i, v := range rec {
			if i >= len(cols) || cols[i] == "" {
				continue
			}
			if err := setField(&it, cols[i], strings.TrimSpace(v)); err != nil {
				return nil, fmt.Errorf("manifest line %d: %w", line, err)
			}
		}
		if it.ID == "" {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("manifest contains no items")
	}
	return items, nil
}

func setField(it *model.ItemIn, col, v string) error {
	if v == "" {
		return nil
	}
	switch col {
	case "id":
		it.ID = v
	case "name":
		it.Name = v
	case "shape":
		it.Shape = strings.ToLower(v)
	case "length_mm":
		return setFloat(&it.LengthMm, col, v)
	case "width_mm":
		return setFloat(&it.WidthMm, col, v)
	case "height_mm":
		return setFloat(&it.HeightMm, col, v)
	case "diameter_mm":
		return setFloat(&it.DiameterMm, col, v)
	case "weight_kg":
		return setFloat(&it.WeightKg, col, v)
	case "quantity":
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		it.Quantity = n
	case "stackable":
		return setBool(&it.Stackable, col, v)
	case "fragile":
		return setBool(&it.Fragile, col, v)
	case "hazardous":
		return setBool(&it.Hazardous, col, v)
	case "temp_control":
		return setBool(&it.TempControl, col, v)
	case "target_temp_c":
		return setFloat(&it.TargetTempC, col, v)
	case "nestable":
		return setBool(&it.Nestable, col, v)
	case "orientation":
		it.Orientation = strings.ToLower(v)
	case "priority":
		it.Priority = strings.ToLower(v)
	case "material":
		it.Material = v
	case "route_id":
		it.RouteID = v
	case "pickup":
		it.Pickup = v
	case "delivery":
		it.Delivery = v
	case "delivery_order":
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("delivery_order: %w", err)
		}
		it.DeliveryOrder = n
	}
	return nil
}

func setFloat(dst *float64, col, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", col, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, col, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "y":
			*dst = true
			return nil
		case "no", "n":
			*dst = false
			return nil
		}
		return fmt.Errorf("%s: %w", col, err)
	}
	*dst = b
	return nil
}
