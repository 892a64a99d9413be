// ABOUTME: Tests for Camelot parsing, key round-trip mapping and harmonic sub-scores
// ABOUTME: Covers the §8 round-trip law: Camelot -> key -> Camelot is the identity

package camelot

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Code
		wantErr bool
	}{
		{name: "minor single digit", input: "8A", want: Code{Number: 8, Letter: 'A'}},
		{name: "major double digit", input: "12B", want: Code{Number: 12, Letter: 'B'}},
		{name: "invalid letter", input: "8C", wantErr: true},
		{name: "out of range", input: "13A", wantErr: true},
		{name: "malformed", input: "A8", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}

			if err == nil && got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyCamelotRoundTrip(t *testing.T) {
	for root := 0; root < 12; root++ {
		for _, mode := range []string{"major", "minor"} {
			code, err := FromKey(root, mode)
			if err != nil {
				t.Fatalf("FromKey(%d, %q) error: %v", root, mode, err)
			}

			rtRoot, rtMode, err := ToKey(code)
			if err != nil {
				t.Fatalf("ToKey(%v) error: %v", code, err)
			}

			if rtRoot != root || rtMode != mode {
				t.Errorf("round trip mismatch for root=%d mode=%s: got root=%d mode=%s via %s",
					root, mode, rtRoot, rtMode, code)
			}
		}
	}
}

func TestHarmonicSubScore(t *testing.T) {
	tests := []struct {
		name              string
		a, b              Code
		allowExperimental bool
		want              float64
	}{
		{name: "identical", a: Code{8, 'A'}, b: Code{8, 'A'}, want: 100},
		{name: "relative major/minor", a: Code{8, 'A'}, b: Code{8, 'B'}, want: 95},
		{name: "adjacent same letter", a: Code{8, 'A'}, b: Code{9, 'A'}, want: 90},
		{name: "adjacent other letter", a: Code{8, 'A'}, b: Code{9, 'B'}, want: 0},
		{name: "two steps", a: Code{8, 'A'}, b: Code{10, 'A'}, want: 70},
		{name: "three steps", a: Code{8, 'A'}, b: Code{11, 'A'}, want: 40},
		{name: "far, experimental disallowed", a: Code{8, 'A'}, b: Code{2, 'A'}, want: 0},
		{name: "far, experimental allowed", a: Code{8, 'A'}, b: Code{2, 'A'}, allowExperimental: true, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HarmonicSubScore(tt.a, tt.b, tt.allowExperimental)
			if got != tt.want {
				t.Errorf("HarmonicSubScore(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.allowExperimental, got, tt.want)
			}
		})
	}
}

func TestWheelDistance(t *testing.T) {
	tests := []struct {
		a, b int
		want int
	}{
		{1, 1, 0},
		{1, 12, 1},
		{1, 7, 6},
		{3, 9, 6},
		{2, 5, 3},
	}

	for _, tt := range tests {
		got := WheelDistance(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("WheelDistance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
