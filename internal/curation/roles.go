package curation

import (
	"context"

	"github.com/lorekeep/curator/internal/database/types/enum"
	"go.uber.org/zap"
)

// RoleResolver computes a user's curation rank from live guild role
// membership. Membership fetch failures fail closed to regular.
type RoleResolver struct {
	gateway        Gateway
	superuserRoles map[string]struct{}
	logger         *zap.Logger
}

// NewRoleResolver creates a role resolver over the privileged role list.
func NewRoleResolver(gateway Gateway, superuserRoles []string, logger *zap.Logger) *RoleResolver {
	roles := make(map[string]struct{}, len(superuserRoles))
	for _, name := range superuserRoles {
		roles[name] = struct{}{}
	}

	return &RoleResolver{
		gateway:        gateway,
		superuserRoles: roles,
		logger:         logger.Named("roles"),
	}
}

// Resolve returns the user's rank in the guild. Never fails open: any
// fetch error is logged and the user is treated as regular.
func (r *RoleResolver) Resolve(ctx context.Context, guildID, userID uint64) enum.UserRank {
	names, err := r.gateway.MemberRoleNames(ctx, guildID, userID)
	if err != nil {
		r.logger.Warn("Failed to fetch member roles, treating user as regular",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Error(err))

		return enum.UserRankRegular
	}

	for _, name := range names {
		if _, ok := r.superuserRoles[name]; ok {
			return enum.UserRankSuperuser
		}
	}

	return enum.UserRankRegular
}
