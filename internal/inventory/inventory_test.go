package inventory

import "testing"

func TestDefaultInventoryShape(t *testing.T) {
	entries := Default()
	if len(entries) == 0 {
		t.Fatal("inventory must not be empty")
	}

	seen := make(map[string]bool)
	keyed := 0
	for _, e := range entries {
		if seen[e.Name] {
			t.Fatalf("duplicate collection %q in inventory", e.Name)
		}
		seen[e.Name] = true
		if e.Relation != KeyedByUser && e.Relation != FieldReference {
			t.Fatalf("collection %q has unknown relation %q", e.Name, e.Relation)
		}
		if e.Relation == KeyedByUser {
			keyed++
		}
	}
	if keyed != 1 {
		t.Fatalf("expected exactly one keyed collection, got %d", keyed)
	}
	if entries[0].Name != Settings || entries[0].Relation != KeyedByUser {
		t.Fatal("the keyed settings collection must come first for attribute precedence")
	}
	if !seen[UsageLogs] {
		t.Fatal("usage logs collection missing from inventory")
	}
}
