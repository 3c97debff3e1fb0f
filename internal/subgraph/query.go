package subgraph

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Record is one raw entity as returned by the subgraph, numbers kept as json.Number.
type Record = map[string]any

// Condition is one `where` clause entry rendered as field_operator: value.
// Value is a GraphQL literal and must already be quoted where needed.
type Condition struct {
	Field    string
	Operator string
	Value    string
}

func (c Condition) String() string {
	key := c.Field
	if c.Operator != "" {
		key += "_" + c.Operator
	}
	return key + ": " + c.Value
}

// Quote renders s as a GraphQL string literal.
func Quote(s string) string {
	return strconv.Quote(s)
}

// QuoteList renders values as a GraphQL list of string literals.
func QuoteList(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, Quote(v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Request is one named sub-query of a batch.
type Request struct {
	Name       string
	Entity     string
	Fields     []string
	First      int
	OrderBy    string
	Conditions []Condition
}

// QueryService runs a batch of sub-queries in a single round trip.
type QueryService interface {
	Query(ctx context.Context, requests []Request) (map[string][]Record, error)
}

// BuildQuery renders the batch as one GraphQL document, one aliased field per request.
func BuildQuery(requests []Request) (string, error) {
	var b strings.Builder
	b.WriteString("query {\n")
	for _, r := range requests {
		if r.Name == "" || r.Entity == "" {
			return "", fmt.Errorf("request needs a name and an entity")
		}
		if len(r.Fields) == 0 {
			return "", fmt.Errorf("request %s has no fields", r.Name)
		}

		args := []string{"first: " + strconv.Itoa(r.First)}
		if r.OrderBy != "" {
			args = append(args, "orderBy: "+r.OrderBy, "orderDirection: asc")
		}
		if len(r.Conditions) > 0 {
			where := make([]string, 0, len(r.Conditions))
			for _, c := range r.Conditions {
				where = append(where, c.String())
			}
			args = append(args, "where: {"+strings.Join(where, ", ")+"}")
		}

		fmt.Fprintf(&b, "  %s: %s(%s) {\n", r.Name, r.Entity, strings.Join(args, ", "))
		for _, f := range r.Fields {
			b.WriteString("    ")
			b.WriteString(f)
			b.WriteString("\n")
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}
