package speaker

import "testing"

func TestMinSamplesScalesWithRate(t *testing.T) {
	cases := []struct {
		rate int
		want int
	}{
		{16000, 8000},
		{8000, 4000},
		{48000, 24000},
	}
	for _, tc := range cases {
		if got := MinSamples(tc.rate); got != tc.want {
			t.Fatalf("MinSamples(%d) = %d, want %d", tc.rate, got, tc.want)
		}
	}
}
