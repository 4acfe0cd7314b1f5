package port

import (
	"context"

	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// GroupRepository exposes persistence behavior for groups.
type GroupRepository interface {
	Create(ctx context.Context, group domain.Group) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Group, error)
	Update(ctx context.Context, group domain.Group) error
	// ListActiveIDsFor returns ids of active groups where sub is a member or
	// an admin, in ascending id order. This feeds the gids field of every
	// issued claim.
	ListActiveIDsFor(ctx context.Context, sub int64) ([]int64, error)
	ListFor(ctx context.Context, sub int64) ([]domain.Group, error)
}
