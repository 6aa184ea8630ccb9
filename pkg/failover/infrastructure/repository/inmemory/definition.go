package inmemory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
)

// InMemoryDefinitionStore is an in-memory implementation of the
// DefinitionRepository interface, seeded at construction time.
type InMemoryDefinitionStore struct {
	plans    map[string]*model.RecoveryPlan
	groups   map[string]*model.ProtectionGroup
	accounts map[string]*model.TargetAccount
	mu       sync.RWMutex
}

// NewInMemoryDefinitionStore creates an empty InMemoryDefinitionStore.
func NewInMemoryDefinitionStore() *InMemoryDefinitionStore {
	return &InMemoryDefinitionStore{
		plans:    make(map[string]*model.RecoveryPlan),
		groups:   make(map[string]*model.ProtectionGroup),
		accounts: make(map[string]*model.TargetAccount),
	}
}

// SeedPlan registers a recovery plan definition.
func (s *InMemoryDefinitionStore) SeedPlan(plan model.RecoveryPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plans[plan.ID]; exists {
		return fmt.Errorf("recovery plan with ID %s already exists", plan.ID)
	}
	cp := plan.Copy()
	s.plans[plan.ID] = &cp
	return nil
}

// SeedGroup registers a protection group definition. Group names are unique
// case-insensitively.
func (s *InMemoryDefinitionStore) SeedGroup(group model.ProtectionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[group.ID]; exists {
		return fmt.Errorf("protection group with ID %s already exists", group.ID)
	}
	for _, existing := range s.groups {
		if strings.EqualFold(existing.Name, group.Name) {
			return fmt.Errorf("protection group name %q already in use", group.Name)
		}
	}
	cp := group
	cp.Servers = append([]model.Server(nil), group.Servers...)
	s.groups[group.ID] = &cp
	return nil
}

// SeedAccount registers a target account definition.
func (s *InMemoryDefinitionStore) SeedAccount(account model.TargetAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("target account with ID %s already exists", account.ID)
	}
	cp := account
	s.accounts[account.ID] = &cp
	return nil
}

// FindRecoveryPlanByID finds a RecoveryPlan by its ID.
func (s *InMemoryDefinitionStore) FindRecoveryPlanByID(ctx context.Context, planID string) (*model.RecoveryPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[planID]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	cp := plan.Copy()
	return &cp, nil
}

// FindProtectionGroupByID finds a ProtectionGroup by its ID.
func (s *InMemoryDefinitionStore) FindProtectionGroupByID(ctx context.Context, groupID string) (*model.ProtectionGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[groupID]
	if !ok {
		return nil, repository.ErrProtectionGroupNotFound
	}
	cp := *group
	cp.Servers = append([]model.Server(nil), group.Servers...)
	return &cp, nil
}

// FindTargetAccountByID finds a TargetAccount by its ID.
func (s *InMemoryDefinitionStore) FindTargetAccountByID(ctx context.Context, accountID string) (*model.TargetAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, repository.ErrTargetAccountNotFound
	}
	cp := *account
	return &cp, nil
}

var _ repository.DefinitionRepository = (*InMemoryDefinitionStore)(nil)
