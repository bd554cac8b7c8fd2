package waste

import "testing"

func TestNew_SixUniqueRules(t *testing.T) {
	rs := New()
	if len(rs) != 6 {
		t.Fatalf("expected 6 rules, got %d", len(rs))
	}
	seen := map[string]bool{}
	for _, r := range rs {
		if seen[r.ID()] {
			t.Errorf("duplicate rule ID %q", r.ID())
		}
		seen[r.ID()] = true
	}
}

func TestNewRegistry_RegistersEveryRule(t *testing.T) {
	// Register panics on duplicates, so constructing is itself the check.
	reg := NewRegistry()
	if got := len(reg.All()); got != len(New()) {
		t.Errorf("registry has %d rules, want %d", got, len(New()))
	}
}
