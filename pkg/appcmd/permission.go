package appcmd

import (
	"github.com/bwmarrin/discordgo"
)

// PermissionType says whether a permission overlay targets a role or a user.
type PermissionType = discordgo.ApplicationCommandPermissionType

const (
	PermissionRole = discordgo.ApplicationCommandPermissionTypeRole
	PermissionUser = discordgo.ApplicationCommandPermissionTypeUser
)

// Permission allows or denies one role or user.
type Permission struct {
	ID    string
	Type  PermissionType
	Allow bool
}

func (p Permission) wire() *discordgo.ApplicationCommandPermissions {
	return &discordgo.ApplicationCommandPermissions{
		ID:         p.ID,
		Type:       p.Type,
		Permission: p.Allow,
	}
}

// AddPermission appends an overlay. Overlays can only be added before the
// command is registered.
func (c *Command) AddPermission(p Permission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id != "" {
		return ErrRegistered
	}
	for _, have := range c.perms {
		if have == p {
			return nil
		}
	}
	c.perms = append(c.perms, p)
	return nil
}

// Permissions returns a copy of the command's overlays.
func (c *Command) Permissions() []Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Permission(nil), c.perms...)
}

func permissionOption(t PermissionType, allow bool, ids []string) CommandOption {
	return func(c *Command) error {
		for _, id := range ids {
			if err := c.AddPermission(Permission{ID: id, Type: t, Allow: allow}); err != nil {
				return err
			}
		}
		return nil
	}
}

// AllowRoles whitelists roles.
func AllowRoles(ids ...string) CommandOption { return permissionOption(PermissionRole, true, ids) }

// DenyRoles blacklists roles.
func DenyRoles(ids ...string) CommandOption { return permissionOption(PermissionRole, false, ids) }

// AllowUsers whitelists users.
func AllowUsers(ids ...string) CommandOption { return permissionOption(PermissionUser, true, ids) }

// DenyUsers blacklists users.
func DenyUsers(ids ...string) CommandOption { return permissionOption(PermissionUser, false, ids) }
