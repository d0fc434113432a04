package config

import (
	"os"

	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"gopkg.in/yaml.v3"
)

const (
	DefaultN          = 10
	DefaultM          = 2.0
	DefaultDelta      = 0.5
	DefaultNSteps     = 10000
	DefaultXMax       = 20.0
	DefaultSkipForRSq = 100
)

type Config struct {
	N              int             `yaml:"n"`
	M              float64         `yaml:"m"`
	Quasiholes     [][2]float64    `yaml:"quasiholes"`
	Delta          float64         `yaml:"delta"`
	NSteps         int             `yaml:"nsteps"`
	Thermalization int             `yaml:"thermalization"`
	SkipForRSq     int             `yaml:"skip_for_rsq"`
	SkipForXYHist  int             `yaml:"skip_for_xy_hist"`
	XMax           float64         `yaml:"xmax"`
	Seed           uint64          `yaml:"seed"`
	Histogram      HistogramConfig `yaml:"histogram"`
	Reference      *Reference      `yaml:"reference,omitempty"`
}

type HistogramConfig struct {
	BinWidth float64 `yaml:"binwidth"`
	XMax     float64 `yaml:"xmax_hist"`
}

// Reference is a known value of <R²> with its standard error.
type Reference struct {
	RSq    float64 `yaml:"rsq"`
	RSqErr float64 `yaml:"rsq_err"`
}

func DefaultConfig() *Config {
	return &Config{
		N:          DefaultN,
		M:          DefaultM,
		Delta:      DefaultDelta,
		NSteps:     DefaultNSteps,
		SkipForRSq: DefaultSkipForRSq,
		XMax:       DefaultXMax,
		Histogram: HistogramConfig{
			BinWidth: plasma.DefaultHistBinWidth,
			XMax:     plasma.DefaultHistXMax,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) QuasiholeSet() plasma.QuasiholeSet {
	qh := make(plasma.QuasiholeSet, len(c.Quasiholes))
	for a, w := range c.Quasiholes {
		qh[a] = complex(w[0], w[1])
	}
	return qh
}

// Params converts the file representation into sampler parameters. Nqh is
// taken from the quasihole list.
func (c *Config) Params() plasma.Params {
	return plasma.Params{
		N:             c.N,
		M:             c.M,
		Nqh:           len(c.Quasiholes),
		Quasiholes:    c.QuasiholeSet(),
		Delta:         c.Delta,
		NSteps:        c.NSteps,
		SkipForRSq:    c.SkipForRSq,
		SkipForXYHist: c.SkipForXYHist,
		HistBinWidth:  c.Histogram.BinWidth,
		HistXMax:      c.Histogram.XMax,
	}.WithDefaults()
}

func (c *Config) Clone() *Config {
	out := *c
	out.Quasiholes = append([][2]float64(nil), c.Quasiholes...)
	if c.Reference != nil {
		ref := *c.Reference
		out.Reference = &ref
	}
	return &out
}
