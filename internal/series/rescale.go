package series

import (
	"fmt"
	"strings"

	"analyticsScope/internal/model"
)

// TargetDecimals is the fixed-point scale every monetary field is normalized to.
const TargetDecimals = 18

// Rescale multiplies each listed field by 10^(18-sourceDecimals).
func Rescale(bucket model.Bucket, sourceDecimals int, fields []model.Field) error {
	if sourceDecimals < 0 || sourceDecimals > TargetDecimals {
		return fmt.Errorf("source decimals %d out of range [0,%d]", sourceDecimals, TargetDecimals)
	}
	shift := int32(TargetDecimals - sourceDecimals)
	if shift == 0 {
		return nil
	}
	for _, f := range fields {
		bucket.Set(f, bucket.Get(f).Shift(shift))
	}
	return nil
}

// DecimalsTable resolves the collateral decimals of an account source within an environment.
type DecimalsTable interface {
	Lookup(environment, address string) (int, bool)
}

// Normalizer decodes raw records and rescales them with the decimals of their source.
type Normalizer struct {
	table DecimalsTable
}

func NewNormalizer(table DecimalsTable) *Normalizer {
	return &Normalizer{table: table}
}

// DecimalsFor returns the decimals registered for address in environment.
func (n *Normalizer) DecimalsFor(environment, address string) (int, error) {
	if n == nil || n.table == nil {
		return 0, fmt.Errorf("no decimals table")
	}
	d, ok := n.table.Lookup(environment, strings.ToLower(address))
	if !ok {
		return 0, fmt.Errorf("no decimals registered for %s in %s", address, environment)
	}
	return d, nil
}

// Decoder returns a decode function for records fetched on behalf of address in environment.
// The environment and address decide the scale, not the record's own accountSource.
func Decoder[T model.Bucket](n *Normalizer, schema model.Schema[T], environment, address string) (func(map[string]any) (T, error), error) {
	decimals, err := n.DecimalsFor(environment, address)
	if err != nil {
		return nil, err
	}
	if decimals < 0 || decimals > TargetDecimals {
		return nil, fmt.Errorf("decimals %d for %s out of range", decimals, address)
	}
	return func(record map[string]any) (T, error) {
		bucket, err := Decode(schema, record)
		if err != nil {
			return bucket, err
		}
		if err := Rescale(bucket, decimals, schema.DecimalFields); err != nil {
			var zero T
			return zero, err
		}
		return bucket, nil
	}, nil
}
