// Package factor implements the factor expression engine: the S-expression
// parser and tree algebra, the streaming operator evaluation contract, the
// window operators' online algorithms, and the parallel replay driver.
//
// The package imports nothing beyond the standard library, the generic
// worker pool in pkg/parallel and the containers in pkg/collections: no CLI, config, logging, or persistence
// dependency belongs here. Those concerns live one layer out, in
// cmd/factorctl and internal/registry.
package factor

// Batch is a read-only, column-oriented window of rows. The engine never
// constructs a Batch itself; it is handed one by the caller for every
// replay step.
type Batch interface {
	// Len returns the row count, identical for every column.
	Len() int
	// IndexOf resolves a column name to a stable column index for this
	// batch. ok is false when the column does not exist.
	IndexOf(name string) (idx int, ok bool)
	// Values returns the contiguous f64 slice for column i, of length
	// Len(). ok is false when i is out of range.
	Values(i int) (values []float64, ok bool)
}
