package quant

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input     string
		precision int32
		want      int64
	}{
		{"1.23", 2, 123},
		{"1.23", 6, 1230000},
		{"0.00000001", 8, 1},
		{"0", 2, 0},
		{"-1.5", 2, -150},
		{"100", 2, 10000},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.input, tt.precision)
		if err != nil {
			t.Fatalf("ParseAmount(%q, %d) error: %v", tt.input, tt.precision, err)
		}
		if got.Mantissa != tt.want {
			t.Errorf("ParseAmount(%q, %d) = %d; want %d", tt.input, tt.precision, got.Mantissa, tt.want)
		}
	}
}

func TestAmount_String_RoundTrip(t *testing.T) {
	a := MustParseAmount("49098.00", 2)
	if got := a.String(); got != "49098.00" {
		t.Errorf("String() = %s; want 49098.00", got)
	}
}

func TestRoundToStep_HalfToEven(t *testing.T) {
	tick := MustParseAmount("0.01", 2)
	tests := []struct {
		value string
		want  string
	}{
		{"49050.005", "49050.00"}, // halfway, rounds to even cent
		{"49050.015", "49050.02"}, // halfway, rounds to even cent
		{"49050.004", "49050.00"},
		{"49050.006", "49050.01"},
	}
	for _, tt := range tests {
		v := MustParseAmount(tt.value, 3)
		got := RoundToStep(v, tick)
		if got.String() != tt.want {
			t.Errorf("RoundToStep(%s) = %s; want %s", tt.value, got.String(), tt.want)
		}
	}
}

func TestDeviationRatio(t *testing.T) {
	a := MustParseAmount("50050.50", 2)
	b := MustParseAmount("50050.00", 2)
	got := DeviationRatio(a, b)
	want := 0.5 / 50050.00
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("DeviationRatio = %v; want ~%v", got, want)
	}
}

func TestAmount_Cmp(t *testing.T) {
	bid := MustParseAmount("49049.00", 2)
	ask := MustParseAmount("51051.00", 2)
	if !bid.LessThan(ask) {
		t.Error("expected bid < ask")
	}
}
