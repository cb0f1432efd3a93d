package auth

import (
	"context"
	"sort"
)

const (
	RoleEmployee   = "employee"
	RoleSupervisor = "supervisor"
	RoleHR         = "hr"
)

const (
	PermLevelingRead   = "leveling.read"
	PermLevelingWrite  = "leveling.write"
	PermLevelingSubmit = "leveling.submit"
	PermDevPlanRead    = "devplan.read"
	PermDevPlanWrite   = "devplan.write"
	PermDevPlanSubmit  = "devplan.submit"
	PermActivityRead   = "activity.read"
)

var DefaultPermissions = []string{
	PermLevelingRead,
	PermLevelingWrite,
	PermLevelingSubmit,
	PermDevPlanRead,
	PermDevPlanWrite,
	PermDevPlanSubmit,
	PermActivityRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLevelingRead,
		PermDevPlanRead,
		PermDevPlanWrite,
	},
	RoleSupervisor: {
		PermLevelingRead,
		PermLevelingWrite,
		PermLevelingSubmit,
		PermDevPlanRead,
		PermDevPlanWrite,
		PermDevPlanSubmit,
	},
	RoleHR: {
		PermLevelingRead,
		PermLevelingWrite,
		PermLevelingSubmit,
		PermDevPlanRead,
		PermDevPlanWrite,
		PermDevPlanSubmit,
		PermActivityRead,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct {
	grants map[string]map[string]struct{}
}

func NewStaticPermissions(roles map[string][]string) *StaticPermissions {
	grants := make(map[string]map[string]struct{}, len(roles))
	for role, perms := range roles {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		grants[role] = set
	}
	return &StaticPermissions{grants: grants}
}

func (p *StaticPermissions) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	_, ok := p.grants[role][permission]
	return ok, nil
}

// Granted lists the role's permissions in sorted order.
func (p *StaticPermissions) Granted(role string) []string {
	out := make([]string, 0, len(p.grants[role]))
	for perm := range p.grants[role] {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}
