package theme

import "testing"

func TestByName_FallsBackToDefault(t *testing.T) {
	if got := ByName("tokyo-night"); got.Name != "tokyo-night" {
		t.Fatalf("ByName(tokyo-night) = %q", got.Name)
	}
	if got := ByName("nope"); got.Name != FlexokiDark.Name {
		t.Fatalf("ByName(nope) = %q, want %q", got.Name, FlexokiDark.Name)
	}
}

func TestBalanceColor(t *testing.T) {
	th := FlexokiDark
	if got := th.BalanceColor(-1, 500); got != th.Critical {
		t.Fatalf("BalanceColor(-1) = %v, want Critical", got)
	}
	if got := th.BalanceColor(499.99, 500); got != th.Warning {
		t.Fatalf("BalanceColor(499.99) = %v, want Warning", got)
	}
	if got := th.BalanceColor(500, 500); got != th.Income {
		t.Fatalf("BalanceColor(500) = %v, want Income", got)
	}
}
