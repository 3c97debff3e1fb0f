package model

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Base carries the identity shared by every history bucket.
type Base struct {
	ID            string `json:"id"`
	AccountSource string `json:"account_source"`
	Timestamp     int64  `json:"timestamp"`
}

// Header returns the shared header so generic code can reach it through Bucket.
func (b *Base) Header() *Base {
	return b
}

// Time returns the bucket start encoded as the numeric prefix of the id.
func (b *Base) Time() (int64, bool) {
	return ParseBucketTime(b.ID)
}

// Bucket is a single time bucket of metrics.
type Bucket interface {
	Header() *Base
	Get(field Field) decimal.Decimal
	Set(field Field, value decimal.Decimal)
}

// ParseBucketTime extracts the epoch seconds prefix of a bucket id ("<ts>_<suffix>").
func ParseBucketTime(id string) (int64, bool) {
	prefix := id
	if idx := strings.IndexByte(id, '_'); idx >= 0 {
		prefix = id[:idx]
	}
	if prefix == "" {
		return 0, false
	}
	ts, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// BucketID builds the id of a synthesized bucket.
func BucketID(ts int64) string {
	return strconv.FormatInt(ts, 10) + "_"
}
