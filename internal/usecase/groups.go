package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/repository"
)

const superScopeDomain = "auth"

const superScopeRole = "admin"

// GroupService manages user-administered groups. Any authenticated principal
// may create a group; mutation is restricted to the group's admins or holders
// of the super scope.
type GroupService struct {
	groups port.GroupRepository
}

// NewGroupService constructs a GroupService instance.
func NewGroupService(groups port.GroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

// Create registers a new group. The creator always ends up an admin and a
// member.
func (s *GroupService) Create(ctx context.Context, creator int64, name string, members []int64) (*domain.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	group := domain.Group{
		Name:       name,
		AdminSubs:  []int64{creator},
		MemberSubs: appendUnique(members, creator),
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}

	id, err := s.groups.Create(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	group.ID = id

	return &group, nil
}

// Update replaces a group's name, member sets, and active flag. The actor
// must administer the group or hold the super scope.
func (s *GroupService) Update(ctx context.Context, actor int64, actorScopes map[string][]string, group domain.Group) error {
	current, err := s.groups.GetByID(ctx, group.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("lookup group: %w", err)
	}

	if !current.HasAdmin(actor) && !hasScope(actorScopes, superScopeDomain, superScopeRole) {
		return ErrNotGroupAdmin
	}

	if len(group.AdminSubs) == 0 {
		return fmt.Errorf("group must keep at least one admin")
	}

	if err := s.groups.Update(ctx, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	return nil
}

// ListFor returns every group the account belongs to.
func (s *GroupService) ListFor(ctx context.Context, sub int64) ([]domain.Group, error) {
	groups, err := s.groups.ListFor(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func hasScope(scopes map[string][]string, dom, role string) bool {
	for _, r := range scopes[dom] {
		if r == role {
			return true
		}
	}
	return false
}

func appendUnique(subs []int64, sub int64) []int64 {
	for _, s := range subs {
		if s == sub {
			return subs
		}
	}
	return append(subs, sub)
}
