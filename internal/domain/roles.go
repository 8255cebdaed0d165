package domain

import (
	"fmt"
	"sync"
)

// ─── Roles ──────────────────────────────────────────────────────────────────
// The reference deployment scattered hardcoded owner/treasury addresses
// across dozens of scripts. Here privileged addresses live in one explicit
// Role -> Address mapping with auditable transfer operations.

// Role names a privileged capability.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleTreasury Role = "treasury"
	RoleOperator Role = "operator" // may trigger pool distributions
)

// Roles is a concurrency-safe Role -> Address registry.
type Roles struct {
	mu    sync.RWMutex
	addrs map[Role]Address
}

// NewRoles creates a registry with every role initially held by owner.
func NewRoles(owner Address) *Roles {
	owner = NormalizeAddress(owner)
	return &Roles{addrs: map[Role]Address{
		RoleOwner:    owner,
		RoleTreasury: owner,
		RoleOperator: owner,
	}}
}

// Holder returns the address holding a role.
func (r *Roles) Holder(role Role) Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.addrs[role]
}

// Holds reports whether addr currently holds role.
func (r *Roles) Holds(role Role, addr Address) bool {
	return r.Holder(role) == NormalizeAddress(addr)
}

// Transfer reassigns a role. Only the current holder (or the owner) may
// transfer it.
func (r *Roles) Transfer(role Role, from, to Address) error {
	from = NormalizeAddress(from)
	to = NormalizeAddress(to)
	if to == "" {
		return fmt.Errorf("transfer %s: empty target address", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.addrs[role]
	if !ok {
		return fmt.Errorf("transfer: unknown role %q", role)
	}
	if from != current && from != r.addrs[RoleOwner] {
		return fmt.Errorf("transfer %s: %w", role, ErrRoleDenied)
	}
	r.addrs[role] = to
	return nil
}
