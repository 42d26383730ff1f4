package security

import (
	"fmt"
	"log/slog"
	"slices"
)

// Role represents a caller role
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEmployee  Role = "employee"
	RoleAnonymous Role = "anonymous"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateEmployee   Permission = "employee:create"
	PermReadEmployee     Permission = "employee:read"
	PermCreateRestaurant Permission = "restaurant:create"
	PermReadRestaurant   Permission = "restaurant:read"
	PermCreateMenu       Permission = "menu:create"
	PermReadMenu         Permission = "menu:read"
	PermCastVote         Permission = "vote:cast"
	PermReadResults      Permission = "vote:results"
)

var publicPermissions = []Permission{
	PermReadRestaurant,
	PermReadMenu,
	PermReadResults,
}

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: append([]Permission{
		PermCreateEmployee,
		PermReadEmployee,
		PermCreateRestaurant,
		PermCreateMenu,
		PermCastVote,
	}, publicPermissions...),
	RoleEmployee: append([]Permission{
		PermCreateMenu,
		PermCastVote,
	}, publicPermissions...),
	RoleAnonymous: publicPermissions,
}

// RoleFor derives the role of a caller from its authentication state.
func RoleFor(authenticated, isAdmin bool) Role {
	switch {
	case !authenticated:
		return RoleAnonymous
	case isAdmin:
		return RoleAdmin
	default:
		return RoleEmployee
	}
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role Role, permission Permission) bool {
	return slices.Contains(RolePermissions[role], permission)
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}
