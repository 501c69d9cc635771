package parameter

import "testing"

func TestFromAlternateTotality(t *testing.T) {
	p, ok := Canonical("temperature_sl")
	if !ok {
		t.Fatal("expected temperature_sl to be registered")
	}
	for _, alt := range p.Alternates {
		got, err := FromAlternate(alt)
		if err != nil {
			t.Errorf("alternate %q: unexpected error: %v", alt, err)
		}
		if got.Name != p.Name {
			t.Errorf("alternate %q: got %q, want %q", alt, got.Name, p.Name)
		}
	}
}

func TestFromAlternateUnknown(t *testing.T) {
	if _, err := FromAlternate("mystery"); err == nil {
		t.Fatal("expected error for unknown alternate")
	}
}

func TestAlternatesInjective(t *testing.T) {
	seen := make(map[string]string)
	for _, p := range registry {
		for _, alt := range p.Alternates {
			if owner, dup := seen[alt]; dup {
				t.Fatalf("alternate %q claimed by both %q and %q", alt, owner, p.Name)
			}
			seen[alt] = p.Name
		}
	}
}

func TestRenameElseDropTotality(t *testing.T) {
	allowed := map[string]bool{"temperature_sl": true}
	ds := map[string]int{
		"t2m":     1,
		"mystery": 2,
		"u10":     3, // not in allowed set, dropped even though known
	}
	got := RenameElseDrop(ds, allowed)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 surviving entry, got %d: %v", len(got), got)
	}
	if v, ok := got["temperature_sl"]; !ok || v != 1 {
		t.Fatalf("expected temperature_sl=1, got %v", got)
	}
}

func TestCheckBoundsOutlierThreshold(t *testing.T) {
	p := Parameter{Name: "x", Lower: 0, Upper: 10, OutlierThreshold: 0.1}
	ok := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if err := p.CheckBounds(ok); err != nil {
		t.Errorf("expected no error within bounds, got %v", err)
	}
	bad := []float64{1, 2, 3, -1, -2, 6, 7, 8, 9, 10}
	if err := p.CheckBounds(bad); err == nil {
		t.Error("expected error when 20%% of values are outliers against a 10%% threshold")
	}
}
