package journey

import "testing"

// journeyWith builds a single-connection journey with a forced metric and
// the given departure/arrival times.
func journeyWith(t *testing.T, vehicles uint32, travel uint64, dep, arr uint64) *Journey {
	t.Helper()
	j := backwardChain(NewGenesis(stop(1), arr, NewTransferMetric()), conn(stop(0), stop(1), dep, uint16(arr-dep), 1), 0)
	j.Metric = &TransferMetric{VehiclesTaken: vehicles, TravelTime: travel}
	return j
}

func TestParetoComparator(t *testing.T) {
	cmp := ParetoComparator{}
	tests := []struct {
		name string
		a, b *Journey
		want Ordering
	}{
		{"BetterInBoth", journeyWith(t, 1, 600, 0, 600), journeyWith(t, 2, 900, 0, 900), Less},
		{"WorseInBoth", journeyWith(t, 3, 900, 0, 900), journeyWith(t, 1, 600, 0, 600), Greater},
		{"Tradeoff", journeyWith(t, 1, 900, 0, 900), journeyWith(t, 2, 600, 0, 600), Incomparable},
		{"FewerVehiclesSameTime", journeyWith(t, 1, 600, 0, 600), journeyWith(t, 2, 600, 0, 600), Less},
		{"Identical", journeyWith(t, 1, 600, 0, 600), journeyWith(t, 1, 600, 0, 600), Equal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmp.Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileComparator(t *testing.T) {
	cmp := ProfileComparator{}
	tests := []struct {
		name string
		a, b *Journey
		want Ordering
	}{
		{"LaterDepartureSameArrival", journeyWith(t, 1, 0, 1000, 2000), journeyWith(t, 1, 0, 500, 2000), Less},
		{"EarlierArrivalSameDeparture", journeyWith(t, 1, 0, 1000, 1800), journeyWith(t, 1, 0, 1000, 2000), Less},
		{"FewerVehicles", journeyWith(t, 1, 0, 1000, 2000), journeyWith(t, 2, 0, 1000, 2000), Less},
		{"ProfileTradeoff", journeyWith(t, 1, 0, 500, 1800), journeyWith(t, 1, 0, 1000, 2000), Incomparable},
		{"Identical", journeyWith(t, 1, 0, 1000, 2000), journeyWith(t, 1, 0, 1000, 2000), Equal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmp.Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare = %v, want %v", got, tt.want)
			}
			// domination is antisymmetric
			back := cmp.Compare(tt.b, tt.a)
			switch tt.want {
			case Less:
				if back != Greater {
					t.Errorf("reverse Compare = %v, want Greater", back)
				}
			case Equal, Incomparable:
				if back != tt.want {
					t.Errorf("reverse Compare = %v, want %v", back, tt.want)
				}
			}
		})
	}
}

func TestChainedComparator(t *testing.T) {
	cmp := ChainedComparator{First: VehiclesComparator{}, Second: TravelTimeComparator{}}

	fewSlow := journeyWith(t, 1, 900, 0, 900)
	manyFast := journeyWith(t, 2, 600, 0, 600)
	fewFast := journeyWith(t, 1, 600, 0, 600)

	if got := cmp.Compare(fewSlow, manyFast); got != Less {
		t.Errorf("fewer vehicles should win outright, got %v", got)
	}
	if got := cmp.Compare(fewSlow, fewFast); got != Greater {
		t.Errorf("equal vehicles should fall through to travel time, got %v", got)
	}
	if got := cmp.Compare(fewFast, fewFast); got != Equal {
		t.Errorf("identical journeys should compare Equal, got %v", got)
	}
}
