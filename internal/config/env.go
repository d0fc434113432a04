package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings that may come from the environment instead of flags.
type Env struct {
	DataDir string `env:"LAUGHLIN_DATA" envDefault:".laughlin"`
	Store   string `env:"LAUGHLIN_STORE" envDefault:"file"`
	Seed    uint64 `env:"LAUGHLIN_SEED"`
	Verbose bool   `env:"LAUGHLIN_VERBOSE"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
