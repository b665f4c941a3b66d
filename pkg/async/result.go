package async

// Result pairs a value with the error produced alongside it, letting
// batch operations report per-item outcomes instead of failing wholesale.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func Err[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) Unpack() (T, error) {
	return r.Value, r.Err
}

func (r Result[T]) IsErr() bool {
	return r.Err != nil
}
