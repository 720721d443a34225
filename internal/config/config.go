// Package config provides typed, environment-variable-driven
// configuration for ambient VM resource limits. Not named in spec.md;
// carried because every teacher-repo-adjacent example configures its
// runtime through a typed struct rather than loose globals (SPEC_FULL.md
// §7).
package config

import "github.com/caarlos0/env/v6"

// VM holds the resource limits an embedder may want to cap before running
// untrusted Ely source, mapping directly onto machine.Thread.MaxSteps and
// machine.Thread.MaxCallStackDepth. The zero value means unlimited, the
// same default machine.Thread itself uses.
type VM struct {
	MaxSteps          int `env:"ELY_MAX_STEPS" envDefault:"0"`
	MaxCallStackDepth int `env:"ELY_MAX_CALL_DEPTH" envDefault:"0"`
}

// Load populates a VM from the process environment.
func Load() (VM, error) {
	var cfg VM
	if err := env.Parse(&cfg); err != nil {
		return VM{}, err
	}
	return cfg, nil
}
