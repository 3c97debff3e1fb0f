package series

import "fmt"

// DataShapeError reports a record that does not match its schema.
type DataShapeError struct {
	Entity string
	Field  string
	Err    error
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("decode %s.%s: %v", e.Entity, e.Field, e.Err)
}

func (e *DataShapeError) Unwrap() error {
	return e.Err
}

// AlignmentError reports a series that needs an empty bucket but has nothing to derive it from.
type AlignmentError struct {
	Entity string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("align %s: no bucket or fallback account source to build an empty bucket", e.Entity)
}
