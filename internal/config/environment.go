package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// Environment is one subgraph deployment and the entities tracked on it.
type Environment struct {
	Name              string      `mapstructure:"name" validate:"required"`
	SubgraphURL       string      `mapstructure:"subgraph-url" validate:"required,url"`
	RPCURL            string      `mapstructure:"rpc-url" validate:"omitempty,url"`
	CollateralDecimal *int        `mapstructure:"collateral-decimal" validate:"omitempty,min=0,max=18"`
	Collaterals       []string    `mapstructure:"collaterals" validate:"dive,eth_addr"`
	Affiliates        []Affiliate `mapstructure:"affiliates" validate:"dive"`
	Solvers           []Solver    `mapstructure:"solvers" validate:"dive"`
}

// Affiliate is a front end routing trades through the protocol.
type Affiliate struct {
	Name      string `mapstructure:"name" validate:"required"`
	Address   string `mapstructure:"address" validate:"required,eth_addr"`
	MainColor string `mapstructure:"main-color" default:"#8884d8"`
	// FromTimestamp is unix seconds or RFC3339; daily history is fetched from there on.
	FromTimestamp string `mapstructure:"from-timestamp"`
}

// Solver is a counterparty filling quotes.
type Solver struct {
	Name      string `mapstructure:"name" validate:"required"`
	Address   string `mapstructure:"address" validate:"required,eth_addr"`
	MainColor string `mapstructure:"main-color" default:"#82ca9d"`
}

var validate = validator.New()

// PrepareEnvironments applies defaults, validates every environment and
// normalizes addresses to lowercase hex and timestamps to unix seconds.
func PrepareEnvironments(envs []Environment) error {
	for i := range envs {
		env := &envs[i]
		if err := defaults.Set(env); err != nil {
			return fmt.Errorf("environment %d defaults: %w", i, err)
		}
		if err := validate.StructCtx(context.Background(), env); err != nil {
			return fmt.Errorf("environment %q: %w", env.Name, describe(err))
		}

		for j, c := range env.Collaterals {
			env.Collaterals[j] = NormalizeAddress(c)
		}
		for j := range env.Affiliates {
			aff := &env.Affiliates[j]
			aff.Address = NormalizeAddress(aff.Address)
			if aff.FromTimestamp == "" {
				continue
			}
			ts, err := ParseTimestamp(aff.FromTimestamp)
			if err != nil {
				return fmt.Errorf("affiliate %s from-timestamp: %w", aff.Name, err)
			}
			aff.FromTimestamp = fmt.Sprintf("%d", ts)
		}
		for j := range env.Solvers {
			env.Solvers[j].Address = NormalizeAddress(env.Solvers[j].Address)
		}
	}
	return nil
}

// NormalizeAddress returns the lowercase 0x form used as filter value and lookup key.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return strings.ToLower(addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex())
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "eth_addr":
			msgs = append(msgs, fmt.Sprintf("%s must be a hex address", fe.Namespace()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be within [0,18]", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
