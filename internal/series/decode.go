package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"analyticsScope/internal/model"
)

var (
	errMissing    = errors.New("missing")
	errNoBucketTS = errors.New("id has no numeric timestamp prefix")
)

// Decode converts one raw subgraph record into a typed bucket.
// Missing or null numeric fields decode as zero; a missing id or a value that is not a number fails.
func Decode[T model.Bucket](schema model.Schema[T], record map[string]any) (T, error) {
	var zero T

	id, err := stringField(record, model.FieldID)
	if err != nil {
		return zero, &DataShapeError{Entity: schema.Entity, Field: model.FieldID, Err: err}
	}
	if id == "" {
		return zero, &DataShapeError{Entity: schema.Entity, Field: model.FieldID, Err: errMissing}
	}

	bucket := schema.New()
	header := bucket.Header()
	header.ID = id

	source, err := stringField(record, model.FieldAccountSource)
	if err != nil {
		return zero, &DataShapeError{Entity: schema.Entity, Field: model.FieldAccountSource, Err: err}
	}
	header.AccountSource = source

	ts, err := int64Field(record, model.FieldTimestamp)
	if err != nil {
		return zero, &DataShapeError{Entity: schema.Entity, Field: model.FieldTimestamp, Err: err}
	}
	header.Timestamp = ts

	if schema.Bucketed {
		prefix, ok := model.ParseBucketTime(id)
		if !ok {
			return zero, &DataShapeError{Entity: schema.Entity, Field: model.FieldID, Err: errNoBucketTS}
		}
		if header.Timestamp == 0 {
			header.Timestamp = prefix
		}
	}

	for _, f := range schema.Fields {
		value, err := decimalValue(record[string(f)])
		if err != nil {
			return zero, &DataShapeError{Entity: schema.Entity, Field: string(f), Err: err}
		}
		bucket.Set(f, value)
	}

	if labeled, ok := any(bucket).(model.Labeled); ok {
		for _, name := range schema.Labels {
			value, err := stringField(record, name)
			if err != nil {
				return zero, &DataShapeError{Entity: schema.Entity, Field: name, Err: err}
			}
			labeled.SetLabel(name, value)
		}
	}

	return bucket, nil
}

// DecodeAll decodes every record, failing on the first malformed one.
func DecodeAll[T model.Bucket](schema model.Schema[T], records []map[string]any) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, record := range records {
		bucket, err := Decode(schema, record)
		if err != nil {
			return nil, err
		}
		out = append(out, bucket)
	}
	return out, nil
}

func stringField(record map[string]any, key string) (string, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return "", nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case map[string]any:
		// entity references come back as {id: ...}
		if id, ok := v[model.FieldID].(string); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("unexpected type %T", raw)
}

func int64Field(record map[string]any, key string) (int64, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	}
	return 0, fmt.Errorf("unexpected type %T", raw)
}

func decimalValue(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case decimal.Decimal:
		return v, nil
	}
	return decimal.Zero, fmt.Errorf("unexpected type %T", raw)
}
