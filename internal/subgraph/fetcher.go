package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPageSize matches the row limit of hosted subgraphs.
	DefaultPageSize = 1000
	// DefaultOrderBy is the cursor field used when a query names none.
	DefaultOrderBy = "timestamp"
)

// Query describes one paginated entity query and how to decode its records.
type Query[T any] struct {
	Name       string
	Entity     string
	Fields     []string
	PageSize   int
	Conditions []Condition
	OrderBy    string
	Decode     func(Record) (T, error)
}

// LoadOptions tune a LoadAll call. Maps are keyed by query name.
type LoadOptions struct {
	PageSize       int
	InitialCursors map[string]string
	PageCaps       map[string]int
}

// Fetcher drives cursor pagination over a QueryService.
type Fetcher struct {
	service QueryService
	logger  *zap.Logger
}

func NewFetcher(service QueryService, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{service: service, logger: logger}
}

type pageState[T any] struct {
	query    Query[T]
	pageSize int
	orderBy  string
	cursor   string
	pages    int
	pageCap  int
	done     bool
	seen     map[string]struct{}
	// boundary holds the ids already loaded whose OrderBy value equals cursor.
	boundary []string
	out      []T
}

// LoadAll fetches every record of every query. Each round sends one batch holding the next
// page of each unfinished query; a query finishes on a short page or when its page cap is
// reached. Pages resume at OrderBy >= cursor and exclude the ids already loaded at the cursor
// value, so records sharing one value are paged through. Records come back in ascending order,
// deduplicated by id. Any error fails the whole call, including a StallError when a full page
// brings nothing new.
func LoadAll[T any](ctx context.Context, f *Fetcher, queries []Query[T], opts LoadOptions) (map[string][]T, error) {
	if f == nil || f.service == nil {
		return nil, fmt.Errorf("fetcher has no query service")
	}

	defaultPageSize := opts.PageSize
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}

	states := make([]*pageState[T], 0, len(queries))
	names := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		if q.Name == "" {
			return nil, fmt.Errorf("query for %s has no name", q.Entity)
		}
		if _, dup := names[q.Name]; dup {
			return nil, fmt.Errorf("duplicate query name %s", q.Name)
		}
		if q.Decode == nil {
			return nil, fmt.Errorf("query %s has no decoder", q.Name)
		}
		names[q.Name] = struct{}{}

		st := &pageState[T]{
			query:    q,
			pageSize: q.PageSize,
			orderBy:  q.OrderBy,
			cursor:   opts.InitialCursors[q.Name],
			pageCap:  opts.PageCaps[q.Name],
			seen:     make(map[string]struct{}),
			out:      make([]T, 0),
		}
		if st.pageSize <= 0 {
			st.pageSize = defaultPageSize
		}
		if st.orderBy == "" {
			st.orderBy = DefaultOrderBy
		}
		states = append(states, st)
	}

	for round := 1; ; round++ {
		active := make([]*pageState[T], 0, len(states))
		requests := make([]Request, 0, len(states))
		for _, st := range states {
			if st.done {
				continue
			}
			active = append(active, st)
			requests = append(requests, st.request())
		}
		if len(active) == 0 {
			break
		}

		start := time.Now()
		result, err := f.service.Query(ctx, requests)
		if err != nil {
			return nil, fmt.Errorf("load page %d: %w", round, err)
		}
		f.logger.Debug("page loaded",
			zap.Int("round", round),
			zap.Int("queries", len(requests)),
			zap.Duration("took", time.Since(start)),
		)

		for _, st := range active {
			if err := st.consume(result[st.query.Name], f.logger); err != nil {
				return nil, err
			}
		}
	}

	out := make(map[string][]T, len(states))
	for _, st := range states {
		out[st.query.Name] = st.out
	}
	return out, nil
}

func (s *pageState[T]) request() Request {
	conditions := make([]Condition, 0, len(s.query.Conditions)+1)
	conditions = append(conditions, s.query.Conditions...)
	if s.cursor != "" {
		conditions = append(conditions, Condition{Field: s.orderBy, Operator: "gte", Value: Quote(s.cursor)})
	}
	if len(s.boundary) > 0 {
		conditions = append(conditions, Condition{Field: "id", Operator: "not_in", Value: QuoteList(s.boundary)})
	}
	return Request{
		Name:       s.query.Name,
		Entity:     s.query.Entity,
		Fields:     s.query.Fields,
		First:      s.pageSize,
		OrderBy:    s.orderBy,
		Conditions: conditions,
	}
}

func (s *pageState[T]) consume(page []Record, logger *zap.Logger) error {
	s.pages++

	var fresh []Record
	for _, rec := range page {
		if id, ok := rec["id"].(string); ok && id != "" {
			if _, dup := s.seen[id]; dup {
				continue
			}
			s.seen[id] = struct{}{}
		}
		item, err := s.query.Decode(rec)
		if err != nil {
			return fmt.Errorf("decode %s: %w", s.query.Name, err)
		}
		s.out = append(s.out, item)
		fresh = append(fresh, rec)
	}

	if len(page) < s.pageSize {
		s.done = true
		return nil
	}
	if s.pageCap > 0 && s.pages >= s.pageCap {
		s.done = true
		return nil
	}

	next := cursorValue(page[len(page)-1][s.orderBy])
	if next == "" {
		logger.Warn("cursor field missing",
			zap.String("query", s.query.Name),
			zap.String("order_by", s.orderBy),
		)
		return &StallError{Query: s.query.Name, OrderBy: s.orderBy}
	}
	if len(fresh) == 0 {
		// the service ignored the id exclusion; asking again would return the same page
		logger.Warn("cursor did not advance",
			zap.String("query", s.query.Name),
			zap.String("cursor", next),
		)
		return &StallError{Query: s.query.Name, OrderBy: s.orderBy, Cursor: next}
	}

	if next != s.cursor {
		s.boundary = nil
	}
	for _, rec := range fresh {
		id, _ := rec["id"].(string)
		if id != "" && cursorValue(rec[s.orderBy]) == next {
			s.boundary = append(s.boundary, id)
		}
	}
	s.cursor = next
	return nil
}

// StallError reports a full page after which pagination cannot make progress, so the
// remaining records of the query are unreachable.
type StallError struct {
	Query   string
	OrderBy string
	// Cursor is empty when the last record had no OrderBy value.
	Cursor string
}

func (e *StallError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("query %s: last record of a full page has no %s", e.Query, e.OrderBy)
	}
	return fmt.Sprintf("query %s: full page at %s=%s brought no new records", e.Query, e.OrderBy, e.Cursor)
}

func cursorValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprintf("%v", typed)
	}
}
