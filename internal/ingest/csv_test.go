package ingest

import (
	"strings"
	"testing"
)

func TestReadItemsFullRow(t *testing.T) {
	in := `id,shape,length_mm,width_mm,height_mm,weight_kg,quantity,stackable,route_id,delivery_order
crate,box,1200,800,600,45.5,3,yes,r1,2
`
	items, err := ReadItems(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.ID != "crate" || it.Shape != "box" || it.LengthMm != 1200 || it.WeightKg != 45.5 {
		t.Fatalf("bad item: %+v", it)
	}
	if it.Quantity != 3 || !it.Stackable || it.RouteID != "r1" || it.DeliveryOrder != 2 {
		t.Fatalf("bad item flags: %+v", it)
	}
}

func TestReadItemsCylinderAndDefaults(t *testing.T) {
	in := `id,shape,diameter_mm,height_mm,weight_kg,orientation,nestable
drum,CYLINDER,600,900,80,Vertical,true
`
	items, err := ReadItems(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	it := items[0]
	if it.Shape != "cylinder" || it.Orientation != "vertical" || !it.Nestable {
		t.Fatalf("case folding failed: %+v", it)
	}
	if it.Quantity != 1 {
		t.Fatalf("quantity should default to 1, got %d", it.Quantity)
	}
}

func TestReadItemsIgnoresUnknownColumnsAndBlankIDs(t *testing.T) {
	in := `id,shape,weight_kg,warehouse_zone
a,box,10,Z1
,box,20,Z2
b,box,30,Z3
`
	items, err := ReadItems(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestReadItemsRejectsMissingIDColumn(t *testing.T) {
	in := "shape,weight_kg\nbox,10\n"
	if _, err := ReadItems(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for missing id column")
	}
}

func TestReadItemsRejectsBadNumber(t *testing.T) {
	in := "id,weight_kg\na,heavy\n"
	if _, err := ReadItems(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for non-numeric weight")
	}
}

func TestReadItemsRejectsEmptyManifest(t *testing.T) {
	in := "id,shape\n"
	if _, err := ReadItems(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}
