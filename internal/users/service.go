package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hopebridge/donor-portal/internal/audit"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	GetRoles(ctx context.Context, id string) ([]string, error)
	SetUserRoles(ctx context.Context, id string, roles []string) ([]string, error)
	GetDashboardOverride(ctx context.Context, userID string) (store.DashboardOverride, error)
	SetDashboardOverride(ctx context.Context, override store.DashboardOverride) (store.DashboardOverride, error)
}

// AuditRecorder records privileged actions.
type AuditRecorder interface {
	Record(ctx context.Context, ev audit.Event)
}

// Service handles user administration.
type Service struct {
	repo  RepositoryPort
	audit AuditRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, recorder AuditRecorder) *Service {
	return &Service{repo: repo, audit: recorder}
}

// ListAccounts returns all users with their role assignments.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	accounts := make([]Account, 0, len(users))
	for _, u := range users {
		roles, err := s.repo.GetRoles(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("users: roles of %s: %w", u.ID, err)
		}
		accounts = append(accounts, Account{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			IsAdmin:   u.IsAdmin,
			IsActive:  u.IsActive,
			Roles:     roles,
			CreatedAt: u.CreatedAt,
		})
	}
	return accounts, nil
}

// AssignRoles replaces the roles of userID. Every name must be a catalog
// role; the stored set is normalized.
func (s *Service) AssignRoles(ctx context.Context, actorID, userID string, roles []string) ([]string, error) {
	var unknown []string
	for _, role := range roles {
		if !rbac.IsValidRole(role) {
			unknown = append(unknown, role)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, strings.Join(unknown, ", "))
	}
	before, err := s.repo.GetRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("users: roles of %s: %w", userID, err)
	}
	after, err := s.repo.SetUserRoles(ctx, userID, roles)
	if err != nil {
		return nil, fmt.Errorf("users: assign roles to %s: %w", userID, err)
	}
	s.record(ctx, audit.Event{
		ActorID:    actorID,
		Action:     "user.roles.assign",
		EntityType: "user",
		EntityID:   userID,
		Details:    map[string]any{"before": before, "after": after},
	})
	return after, nil
}

// SetDashboard forces the dashboard variant shown to userID.
func (s *Service) SetDashboard(ctx context.Context, actorID, userID, role string) (Dashboard, error) {
	if !ValidDashboard(role) {
		return Dashboard{}, fmt.Errorf("%w: %s", ErrUnknownDashboard, role)
	}
	override, err := s.repo.SetDashboardOverride(ctx, store.DashboardOverride{
		UserID:        userID,
		DashboardRole: role,
		UpdatedBy:     actorID,
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("users: dashboard of %s: %w", userID, err)
	}
	s.record(ctx, audit.Event{
		ActorID:    actorID,
		Action:     "user.dashboard.override",
		EntityType: "user",
		EntityID:   userID,
		Details:    map[string]any{"dashboard_role": role},
	})
	return fromOverride(override), nil
}

// Dashboard returns the override of userID or the default variant.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	override, err := s.repo.GetDashboardOverride(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Dashboard{UserID: userID, Role: DefaultDashboard}, nil
	}
	if err != nil {
		return Dashboard{}, fmt.Errorf("users: dashboard of %s: %w", userID, err)
	}
	return fromOverride(override), nil
}

func (s *Service) record(ctx context.Context, ev audit.Event) {
	if s.audit != nil {
		s.audit.Record(ctx, ev)
	}
}

func fromOverride(o store.DashboardOverride) Dashboard {
	updated := o.UpdatedAt
	return Dashboard{
		UserID:     o.UserID,
		Role:       o.DashboardRole,
		Overridden: true,
		UpdatedBy:  o.UpdatedBy,
		UpdatedAt:  &updated,
	}
}
