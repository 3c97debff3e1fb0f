package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"analyticsScope/internal/config"
)

// DecimalsSource returns the decimals of a token reachable through rpcURL.
type DecimalsSource func(ctx context.Context, rpcURL string, token common.Address) (uint8, error)

// RPCDecimals dials rpcURL for each lookup and reads decimals() from the token.
func RPCDecimals(ctx context.Context, rpcURL string, token common.Address) (uint8, error) {
	client, err := NewClient(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()
	return client.TokenDecimals(ctx, token)
}

// ResolveCollateralDecimals fills CollateralDecimal for every environment that omits it,
// reading decimals() of its collateral tokens. All collaterals of one environment must agree.
func ResolveCollateralDecimals(ctx context.Context, envs []config.Environment, source DecimalsSource, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i := range envs {
		env := &envs[i]
		if env.CollateralDecimal != nil {
			continue
		}
		if env.RPCURL == "" || len(env.Collaterals) == 0 {
			return fmt.Errorf("environment %s: collateral-decimal or rpc-url with collaterals is required", env.Name)
		}

		resolved := -1
		for _, collateral := range env.Collaterals {
			d, err := source(ctx, env.RPCURL, common.HexToAddress(collateral))
			if err != nil {
				return fmt.Errorf("environment %s collateral %s: %w", env.Name, collateral, err)
			}
			if resolved >= 0 && int(d) != resolved {
				return fmt.Errorf("environment %s collaterals disagree on decimals: %d vs %d", env.Name, resolved, d)
			}
			resolved = int(d)
		}

		env.CollateralDecimal = &resolved
		logger.Info("collateral decimals resolved", zap.String("environment", env.Name), zap.Int("decimals", resolved))
	}
	return nil
}
