package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

const RoleSuperAdmin = "superadmin"

const (
	DomainProducts  = "products"
	DomainOrders    = "orders"
	DomainPreorders = "preorders"
	DomainAdmins    = "admins"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type PermissionKind int

const (
	PermissionSimple PermissionKind = iota
	PermissionScoped
)

// Permission is either a plain grant for a whole domain or a per-action grant.
// Encoded as a JSON/YAML bool or as an object of bools.
type Permission struct {
	kind    PermissionKind
	allowed bool
	actions map[string]bool
}

func Simple(allowed bool) Permission {
	return Permission{kind: PermissionSimple, allowed: allowed}
}

func Scoped(actions map[string]bool) Permission {
	cp := make(map[string]bool, len(actions))
	for k, v := range actions {
		cp[k] = v
	}
	return Permission{kind: PermissionScoped, actions: cp}
}

func (p Permission) Kind() PermissionKind {
	return p.kind
}

func (p Permission) Allows(action string) bool {
	switch p.kind {
	case PermissionSimple:
		return p.allowed
	case PermissionScoped:
		return p.actions[action]
	default:
		panic(fmt.Sprintf("unknown permission kind %d", p.kind))
	}
}

func (p Permission) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PermissionScoped:
		return json.Marshal(p.actions)
	default:
		return json.Marshal(p.allowed)
	}
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*p = Simple(b)
		return nil
	}
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("permission must be a bool or an object of bools: %w", err)
	}
	*p = Scoped(m)
	return nil
}

func (p *Permission) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*p = Simple(b)
	case yaml.MappingNode:
		var m map[string]bool
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*p = Scoped(m)
	default:
		return fmt.Errorf("line %d: permission must be a bool or a mapping", node.Line)
	}
	return nil
}

// PermissionSet maps a domain to its grant. Missing domains deny.
type PermissionSet map[string]Permission

func (s PermissionSet) Allows(domain, action string) bool {
	p, ok := s[domain]
	if !ok {
		return false
	}
	return p.Allows(action)
}

// Domains returns the configured domains in stable order.
func (s PermissionSet) Domains() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
