package access

import (
	"encoding/json"
	"fmt"
	"time"

	"repute/internal/ledger"
)

type RoleName string

const (
	RoleAdmin       RoleName = "admin"
	RoleModerator   RoleName = "moderator"
	RoleDistributor RoleName = "distributor"
)

func ParseRole(s string) (RoleName, error) {
	switch RoleName(s) {
	case RoleAdmin, RoleModerator, RoleDistributor:
		return RoleName(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ledger.ErrValidation, s)
}

type Grant struct {
	Account   string    `json:"account"`
	Role      RoleName  `json:"role"`
	GrantedBy string    `json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`
}

// Control holds role grants as ledger state. Privileged engine operations and
// handlers check it before mutating anything.
type Control struct {
	grants map[string]map[RoleName]Grant
}

func NewControl() *Control {
	return &Control{grants: make(map[string]map[RoleName]Grant)}
}

func (c *Control) Grant(account string, role RoleName, grantedBy string, now time.Time) error {
	if account == "" {
		return fmt.Errorf("%w: account is required", ledger.ErrValidation)
	}
	if _, ok := c.grants[account]; !ok {
		c.grants[account] = make(map[RoleName]Grant)
	}
	c.grants[account][role] = Grant{
		Account:   account,
		Role:      role,
		GrantedBy: grantedBy,
		GrantedAt: now,
	}
	return nil
}

func (c *Control) Revoke(account string, role RoleName) error {
	roles, ok := c.grants[account]
	if !ok {
		return fmt.Errorf("%w: no grants for account", ledger.ErrNotFound)
	}
	if _, ok := roles[role]; !ok {
		return fmt.Errorf("%w: role %s not granted", ledger.ErrNotFound, role)
	}
	delete(roles, role)
	return nil
}

func (c *Control) HasRole(account string, role RoleName) bool {
	roles, ok := c.grants[account]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// Require returns ErrForbidden unless account holds role. Admin implies every
// other role.
func (c *Control) Require(account string, role RoleName) error {
	if c.HasRole(account, role) {
		return nil
	}
	if role != RoleAdmin && c.HasRole(account, RoleAdmin) {
		return nil
	}
	return fmt.Errorf("%w: %s role required", ledger.ErrForbidden, role)
}

func (c *Control) Roles(account string) []RoleName {
	var out []RoleName
	for role := range c.grants[account] {
		out = append(out, role)
	}
	return out
}

type snapshot struct {
	Grants []Grant `json:"grants"`
}

func (c *Control) Snapshot() ([]byte, error) {
	var snap snapshot
	for _, roles := range c.grants {
		for _, g := range roles {
			snap.Grants = append(snap.Grants, g)
		}
	}
	return json.Marshal(snap)
}

func (c *Control) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.grants = make(map[string]map[RoleName]Grant)
	for _, g := range snap.Grants {
		if _, ok := c.grants[g.Account]; !ok {
			c.grants[g.Account] = make(map[RoleName]Grant)
		}
		c.grants[g.Account][g.Role] = g
	}
	return nil
}
