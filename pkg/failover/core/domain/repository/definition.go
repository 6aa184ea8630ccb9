package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// ErrPlanNotFound is the error returned when a RecoveryPlan is not found.
var ErrPlanNotFound = errors.New("recovery plan not found")

// ErrProtectionGroupNotFound is the error returned when a ProtectionGroup is not found.
var ErrProtectionGroupNotFound = errors.New("protection group not found")

// ErrTargetAccountNotFound is the error returned when a TargetAccount is not found.
var ErrTargetAccountNotFound = errors.New("target account not found")

// DefinitionRepository is the read-only snapshot source for plan, group, and
// account definitions. The controller reads through it exactly once per start
// to freeze a plan snapshot; running executions never touch it again.
type DefinitionRepository interface {
	// FindRecoveryPlanByID finds a RecoveryPlan by its ID.
	FindRecoveryPlanByID(ctx context.Context, planID string) (*model.RecoveryPlan, error)

	// FindProtectionGroupByID finds a ProtectionGroup by its ID.
	FindProtectionGroupByID(ctx context.Context, groupID string) (*model.ProtectionGroup, error)

	// FindTargetAccountByID finds a TargetAccount by its ID.
	FindTargetAccountByID(ctx context.Context, accountID string) (*model.TargetAccount, error)
}
