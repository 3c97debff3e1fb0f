package config

import "fmt"

// Decimals maps an environment and a lowercase affiliate or solver address to the
// collateral decimals of that environment. It is built once at startup and never
// mutated afterwards. One address may appear in several environments with different scales.
type Decimals struct {
	byEnv map[string]map[string]int
}

// BuildDecimals registers every affiliate and solver of every environment.
// All environments must have CollateralDecimal set and distinct names.
func BuildDecimals(envs []Environment) (*Decimals, error) {
	d := &Decimals{byEnv: make(map[string]map[string]int, len(envs))}
	for _, env := range envs {
		if env.CollateralDecimal == nil {
			return nil, fmt.Errorf("environment %s has no collateral decimals", env.Name)
		}
		dec := *env.CollateralDecimal
		if dec < 0 || dec > 18 {
			return nil, fmt.Errorf("environment %s collateral decimals %d out of range", env.Name, dec)
		}
		if _, dup := d.byEnv[env.Name]; dup {
			return nil, fmt.Errorf("environment %s declared twice", env.Name)
		}
		table := make(map[string]int, len(env.Affiliates)+len(env.Solvers))
		for _, a := range env.Affiliates {
			table[NormalizeAddress(a.Address)] = dec
		}
		for _, s := range env.Solvers {
			table[NormalizeAddress(s.Address)] = dec
		}
		d.byEnv[env.Name] = table
	}
	return d, nil
}

// Lookup returns the decimals registered for address in environment.
func (d *Decimals) Lookup(environment, address string) (int, bool) {
	if d == nil {
		return 0, false
	}
	dec, ok := d.byEnv[environment][NormalizeAddress(address)]
	return dec, ok
}

// All returns a copy of the table keyed by environment, then address.
func (d *Decimals) All() map[string]map[string]int {
	out := make(map[string]map[string]int, len(d.byEnv))
	for env, table := range d.byEnv {
		inner := make(map[string]int, len(table))
		for k, v := range table {
			inner[k] = v
		}
		out[env] = inner
	}
	return out
}
