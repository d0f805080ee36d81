package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/cory-johannsen/tabletop/internal/game/inventory"
)

func TestItemDef_Validate_RejectsEmptyID(t *testing.T) {
	d := &inventory.ItemDef{
		Name:     "Rope",
		Kind:     inventory.KindGear,
		MaxStack: 1,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for empty ID, got nil")
	}
}

func TestItemDef_Validate_RejectsInvalidKind(t *testing.T) {
	d := &inventory.ItemDef{
		ID:       "rope",
		Name:     "Rope",
		Kind:     "junk",
		MaxStack: 1,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for invalid Kind, got nil")
	}
}

func TestItemDef_Validate_RejectsNegativeWeight(t *testing.T) {
	d := &inventory.ItemDef{
		ID:       "rope",
		Name:     "Rope",
		Kind:     inventory.KindGear,
		MaxStack: 1,
		Weight:   -1.0,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for negative Weight, got nil")
	}
}

func TestItemDef_Validate_ArmorRequiresRef(t *testing.T) {
	d := &inventory.ItemDef{
		ID:       "chain_mail",
		Name:     "Chain Mail",
		Kind:     inventory.KindArmor,
		MaxStack: 1,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for armor without ArmorRef, got nil")
	}
}

func TestItemDef_Validate_AcceptsMinimalGear(t *testing.T) {
	d := &inventory.ItemDef{
		ID:       "rope",
		Name:     "Rope",
		Kind:     inventory.KindGear,
		MaxStack: 1,
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected no error for minimal gear, got: %v", err)
	}
}

func TestLoadItems_LoadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := `id: torch
name: Torch
kind: gear
weight: 1
stackable: true
max_stack: 10
value: 1
`
	if err := os.WriteFile(filepath.Join(dir, "torch.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	items, err := inventory.LoadItems(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "torch" || items[0].MaxStack != 10 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestLoadItems_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nkind: gear\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := inventory.LoadItems(dir); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestItemDef_Validate_NonNegativeWeightProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.Float64Range(0, 500).Draw(rt, "weight")
		d := &inventory.ItemDef{ID: "x", Name: "X", Kind: inventory.KindGear, MaxStack: 1, Weight: w}
		if err := d.Validate(); err != nil {
			rt.Fatalf("weight %v rejected: %v", w, err)
		}
	})
}
