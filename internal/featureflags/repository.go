package featureflags

import "context"

// Repository stores flag values that differ from the defaults. The API uses
// PostgresRepository with the postgres snapshot driver and MemoryRepository
// otherwise.
type Repository interface {
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlags applies every update or none of them.
	SetFlags(ctx context.Context, flags []*Flag) error
}
