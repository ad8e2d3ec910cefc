package broadcast

import "testing"

func TestDecimateChannelsKeepsEveryFactorthSample(t *testing.T) {
	raw := [][]float64{
		{0, 1, 2, 3, 4, 5, 6, 7},
		{10, 11, 12, 13, 14, 15, 16, 17},
	}
	got := DecimateChannels(raw, 4)

	want := [][]float64{{0, 4}, {10, 14}}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("channel %d: expected %v, got %v", i, want[i], got[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("channel %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	}
}

func TestDecimateChannelsFactorOneOrLessIsIdentity(t *testing.T) {
	raw := [][]float64{{1, 2, 3}}
	if got := DecimateChannels(raw, 1); len(got[0]) != 3 {
		t.Fatalf("factor 1 should not decimate, got %v", got)
	}
	if got := DecimateChannels(raw, 0); len(got[0]) != 3 {
		t.Fatalf("factor 0 should not decimate, got %v", got)
	}
}
