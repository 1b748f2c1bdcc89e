package sync

// Status tags the outcome of a sync operation.
type Status int

const (
	// StatusOK means the operation fully succeeded.
	StatusOK Status = iota
	// StatusWarning means the operation succeeded locally but the remote
	// leg degraded; Err describes the degradation.
	StatusWarning
	// StatusFailed means the operation did not commit; Failed results never
	// carry data.
	StatusFailed
)

// Void is the payload of operations that return no data.
type Void = struct{}

// Result is the tagged outcome of every sync operation. Successful loads
// always carry Data, falling back to defaults rather than omitting it.
type Result[T any] struct {
	Status Status
	Data   T
	Err    string
}

// Ok returns a fully successful result carrying data.
func Ok[T any](data T) Result[T] {
	return Result[T]{Status: StatusOK, Data: data}
}

// Warn returns a locally successful result with a remote degradation note.
func Warn[T any](data T, err string) Result[T] {
	return Result[T]{Status: StatusWarning, Data: data, Err: err}
}

// Fail returns a failed result. No data is carried.
func Fail[T any](err string) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

// Succeeded reports whether the operation committed, possibly degraded.
func (r Result[T]) Succeeded() bool {
	return r.Status != StatusFailed
}
