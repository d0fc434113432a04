package config

import "sort"

// Presets are the canonical parameter sets: the three reference cases with
// known <R²> and the three worked examples.
var Presets = map[string]*Config{
	"case1": {
		N: 5, M: 2.0, Quasiholes: [][2]float64{{0, 0}, {0, 0.3}}, Delta: 0.6,
		Thermalization: 10000, NSteps: 1000000, SkipForRSq: 100, XMax: 20.0,
		Reference: &Reference{RSq: 6.9951, RSqErr: 0.0037},
	},
	"case2": {
		N: 8, M: 3.0, Quasiholes: [][2]float64{{1, 1}, {20, -20}, {2, 0}}, Delta: 0.5,
		Thermalization: 10000, NSteps: 1000000, SkipForRSq: 100, XMax: 20.0,
		Reference: &Reference{RSq: 13.2948, RSqErr: 0.0041},
	},
	"case3": {
		N: 7, M: 100.0, Delta: 0.5,
		Thermalization: 10000, NSteps: 1000000, SkipForRSq: 100, XMax: 20.0,
		Reference: &Reference{RSq: 300.994, RSqErr: 0.021},
	},
	"mean_square_radius": {
		N: 10, M: 2.0, Quasiholes: [][2]float64{{0, 0}, {1, 0}}, Delta: 0.5,
		Thermalization: 10000, NSteps: 200000, SkipForRSq: 100, XMax: 20.0,
	},
	"density_profile": {
		N: 20, M: 2.0, Quasiholes: [][2]float64{{-2.5, 0}, {2.5, 0}}, Delta: 0.4,
		Thermalization: 10000, NSteps: 500000, SkipForXYHist: 5, XMax: 30.0,
		Histogram: HistogramConfig{BinWidth: 0.2, XMax: 10.0},
	},
	"wigner_crystal": {
		N: 45, M: 120.0, Delta: 0.2,
		NSteps: 500000, SkipForRSq: 100, XMax: 150.0,
	},
}

// GetPreset returns a copy of the named preset with defaults filled in, or
// nil when it does not exist.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := p.Clone()
	if cfg.Histogram.BinWidth == 0 {
		cfg.Histogram.BinWidth = DefaultConfig().Histogram.BinWidth
	}
	if cfg.Histogram.XMax == 0 {
		cfg.Histogram.XMax = DefaultConfig().Histogram.XMax
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
