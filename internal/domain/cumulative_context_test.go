package domain

import "testing"

func TestCumulativeContext_Merge_LastWriterWins(t *testing.T) {
	c := CumulativeContextFrom(map[string]any{
		"domain":  "acme.com",
		"nested":  map[string]any{"a": 1, "b": 2},
		"dropped": "keep-me",
	})

	c.Merge(map[string]any{
		"domain": "acme.io",
		"nested": map[string]any{"b": 20, "c": 3},
		"new":    "value",
	})

	got, _ := c.GetString("domain")
	if got != "acme.io" {
		t.Errorf("domain = %q, want acme.io", got)
	}

	nested, ok := c.GetMap("nested")
	if !ok {
		t.Fatal("nested map missing")
	}
	if nested["a"] != 1 || nested["b"] != 20 || nested["c"] != 3 {
		t.Errorf("nested = %v, want deep-merged map", nested)
	}

	if v, _ := c.GetString("dropped"); v != "keep-me" {
		t.Errorf("dropped = %q, want keep-me (unmerged keys survive)", v)
	}
}

func TestCumulativeContext_Merge_NilValuesIgnored(t *testing.T) {
	c := CumulativeContextFrom(map[string]any{"name": "Old"})
	c.Merge(map[string]any{"name": nil})

	got, ok := c.GetString("name")
	if !ok || got != "Old" {
		t.Errorf("name = %q, %v; want Old, true (nil must not overwrite)", got, ok)
	}
}

func TestCumulativeContext_GetStringList_PreservesEmptyVsAbsent(t *testing.T) {
	c := CumulativeContextFrom(map[string]any{
		"present_empty": []any{},
		"present":       []any{"a", "b"},
	})

	if got, ok := c.GetStringList("present_empty"); !ok || len(got) != 0 {
		t.Errorf("present_empty = %v, %v; want empty slice, true", got, ok)
	}
	if _, ok := c.GetStringList("absent"); ok {
		t.Error("absent key should return ok=false")
	}
	if got, ok := c.GetStringList("present"); !ok || len(got) != 2 {
		t.Errorf("present = %v, %v; want [a b], true", got, ok)
	}
}

func TestCumulativeContext_TypedGetters(t *testing.T) {
	c := CumulativeContextFrom(map[string]any{
		"count":   float64(42), // JSON round-trip shape
		"ratio":   1.5,
		"enabled": true,
		"blank":   "   ",
	})

	if got, ok := c.GetInt("count"); !ok || got != 42 {
		t.Errorf("GetInt(count) = %d, %v; want 42, true", got, ok)
	}
	if got, ok := c.GetFloat("ratio"); !ok || got != 1.5 {
		t.Errorf("GetFloat(ratio) = %v, %v; want 1.5, true", got, ok)
	}
	if got, ok := c.GetBool("enabled"); !ok || !got {
		t.Errorf("GetBool(enabled) = %v, %v; want true, true", got, ok)
	}
	if _, ok := c.GetString("blank"); ok {
		t.Error("whitespace-only string should collapse to absent")
	}
}

func TestBlueprint_Snapshot_IsIndependentCopy(t *testing.T) {
	b := Blueprint{
		BlueprintID: "bp-1",
		Steps: []BlueprintStep{
			{Position: 1, OperationID: "company.search.blitzapi", StepConfig: map[string]any{"k": "v"}},
		},
	}

	snap := b.Snapshot()
	snap.Steps[0].StepConfig["k"] = "mutated"
	snap.Steps[0].OperationID = "changed"

	if b.Steps[0].StepConfig["k"] != "v" {
		t.Error("mutating the snapshot's step_config must not affect the original blueprint")
	}
	if b.Steps[0].OperationID != "company.search.blitzapi" {
		t.Error("mutating the snapshot's step must not affect the original blueprint")
	}
}
