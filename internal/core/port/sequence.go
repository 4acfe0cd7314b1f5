package port

import "context"

// SubSequence allocates account identifiers. Next must be atomic under
// concurrent registrations; read-max-then-increment is not an acceptable
// implementation.
type SubSequence interface {
	Next(ctx context.Context) (int64, error)
}
