package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Server identifies a single protected server inside a protection group.
type Server struct {
	ID       string `json:"id" yaml:"id"`
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// ProtectionGroup is a set of servers that fail over together. TargetAccountID
// names the account the group recovers into; TargetRegion the region.
type ProtectionGroup struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	TargetAccountID string   `json:"target_account_id" yaml:"target_account_id"`
	TargetRegion    string   `json:"target_region" yaml:"target_region"`
	Servers         []Server `json:"servers" yaml:"servers"`
}

// TargetAccount describes a recovery destination account. ExternalID is the
// cross-account trust token. RoleRef, when set, overrides the derived default
// orchestration role for that account and is never overwritten by derivation.
type TargetAccount struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	RoleRef    string `json:"role_ref,omitempty" yaml:"role_ref,omitempty"`
}

// Wave is one ordered step of a recovery plan. It references protection groups
// by ID and may declare explicit predecessor waves; when Predecessors is empty
// the wave depends on the previous wave in Sequence order.
type Wave struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Sequence     int      `json:"sequence" yaml:"sequence"`
	GroupIDs     []string `json:"group_ids" yaml:"group_ids"`
	Predecessors []string `json:"predecessors,omitempty" yaml:"predecessors,omitempty"`
}

// RecoveryPlan is the user-authored definition of a failover: an ordered set
// of waves over protection groups.
type RecoveryPlan struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Waves       []Wave    `json:"waves" yaml:"waves"`
	CreateTime  time.Time `json:"create_time" yaml:"create_time"`
	Version     int       `json:"version" yaml:"version"`
}

// PlanSnapshot is the immutable copy of a plan taken when an execution starts.
// The groups and accounts referenced by the plan are resolved and frozen into
// the snapshot so later edits to the definitions cannot affect a running
// execution.
type PlanSnapshot struct {
	Plan     RecoveryPlan              `json:"plan"`
	Groups   map[string]ProtectionGroup `json:"groups"`
	Accounts map[string]TargetAccount   `json:"accounts"`
	TakenAt  time.Time                  `json:"taken_at"`
}

// NewPlanSnapshot resolves and deep-copies the given plan, groups, and
// accounts into a frozen snapshot.
func NewPlanSnapshot(plan RecoveryPlan, groups map[string]ProtectionGroup, accounts map[string]TargetAccount) PlanSnapshot {
	return PlanSnapshot{
		Plan:     plan.Copy(),
		Groups:   copyGroups(groups),
		Accounts: copyAccounts(accounts),
		TakenAt:  time.Now(),
	}
}

// Copy creates a deep copy of the RecoveryPlan.
func (p RecoveryPlan) Copy() RecoveryPlan {
	cp := p
	cp.Waves = make([]Wave, len(p.Waves))
	for i, w := range p.Waves {
		cw := w
		cw.GroupIDs = append([]string(nil), w.GroupIDs...)
		cw.Predecessors = append([]string(nil), w.Predecessors...)
		cp.Waves[i] = cw
	}
	return cp
}

// WaveByID returns the wave with the given ID, or false if absent.
func (p RecoveryPlan) WaveByID(id string) (Wave, bool) {
	for _, w := range p.Waves {
		if w.ID == id {
			return w, true
		}
	}
	return Wave{}, false
}

func copyGroups(src map[string]ProtectionGroup) map[string]ProtectionGroup {
	dst := make(map[string]ProtectionGroup, len(src))
	for k, g := range src {
		cg := g
		cg.Servers = append([]Server(nil), g.Servers...)
		dst[k] = cg
	}
	return dst
}

func copyAccounts(src map[string]TargetAccount) map[string]TargetAccount {
	dst := make(map[string]TargetAccount, len(src))
	for k, a := range src {
		dst[k] = a
	}
	return dst
}

// Copy creates a deep copy of the PlanSnapshot.
func (ps PlanSnapshot) Copy() PlanSnapshot {
	return PlanSnapshot{
		Plan:     ps.Plan.Copy(),
		Groups:   copyGroups(ps.Groups),
		Accounts: copyAccounts(ps.Accounts),
		TakenAt:  ps.TakenAt,
	}
}

// Group returns the frozen protection group with the given ID, or false if
// the snapshot does not contain it.
func (ps PlanSnapshot) Group(id string) (ProtectionGroup, bool) {
	g, ok := ps.Groups[id]
	return g, ok
}

// Account returns the frozen target account with the given ID, or false if
// the snapshot does not contain it.
func (ps PlanSnapshot) Account(id string) (TargetAccount, bool) {
	a, ok := ps.Accounts[id]
	return a, ok
}

// Value implements the `driver.Valuer` interface, converting the PlanSnapshot to a JSON string.
func (ps PlanSnapshot) Value() (driver.Value, error) {
	data, err := json.Marshal(ps)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to a PlanSnapshot.
func (ps *PlanSnapshot) Scan(value interface{}) error {
	if value == nil {
		*ps = PlanSnapshot{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for PlanSnapshot: %T", value)
	}

	if len(b) == 0 {
		*ps = PlanSnapshot{}
		return nil
	}

	if err := json.Unmarshal(b, ps); err != nil {
		return fmt.Errorf("failed to unmarshal PlanSnapshot JSON: %w", err)
	}
	return nil
}
