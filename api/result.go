package api

// RunResult is the outcome of one run in a batch: either a value or the error
// that stopped it.
type RunResult[T any] struct {
	Success T
	Err     error
}

func (r RunResult[T]) IsSuccess() bool {
	return r.Err == nil
}

func (r RunResult[T]) IsError() bool {
	return r.Err != nil
}

// Get returns the value and error as a pair.
func (r RunResult[T]) Get() (T, error) {
	return r.Success, r.Err
}
