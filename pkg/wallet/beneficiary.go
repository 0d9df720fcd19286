package wallet

import (
	"context"
	"fmt"
	"sync"
)

const (
	operationAddBeneficiary    = "add_beneficiary"
	operationRemoveBeneficiary = "remove_beneficiary"
)

// BeneficiaryManager maintains the named-beneficiary list and its
// sum-constrained allocation invariant: the percentage total never exceeds
// 100, enforced at the point of adding. Every mutation round-trips the full
// list through the remote API and applies locally only after confirmation;
// there is no mutate-then-rollback.
type BeneficiaryManager struct {
	mu       sync.Mutex
	api      RemoteAPI
	sessions *SessionStore
	observer

	list []Beneficiary
}

// NewBeneficiaryManager wires a BeneficiaryManager.
func NewBeneficiaryManager(api RemoteAPI, sessions *SessionStore, options ...Option) (*BeneficiaryManager, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: remote api dependency is nil", ErrInvalidClientConfig)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: session store dependency is nil", ErrInvalidClientConfig)
	}
	manager := &BeneficiaryManager{api: api, sessions: sessions}
	for _, option := range options {
		if option != nil {
			option(&manager.observer)
		}
	}
	manager.Reload()
	return manager, nil
}

// Reload replaces the local list with the session's profile snapshot. Called
// after a profile refresh; a missing session leaves an empty list.
func (manager *BeneficiaryManager) Reload() {
	session, authenticated := manager.sessions.Current()
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if !authenticated {
		manager.list = nil
		return
	}
	manager.list = append([]Beneficiary(nil), session.Profile.Beneficiaries...)
}

// List returns a copy of the current beneficiary list.
func (manager *BeneficiaryManager) List() []Beneficiary {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return append([]Beneficiary(nil), manager.list...)
}

// TotalAllocated returns the percentage sum across all entries.
func (manager *BeneficiaryManager) TotalAllocated() float64 {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return sumPercentages(manager.list)
}

// Allocation classifies the percentage sum. Over-allocation is only
// reachable when the remote holds data violating the invariant; it is
// surfaced, not silently corrected.
func (manager *BeneficiaryManager) Allocation() AllocationState {
	total := manager.TotalAllocated()
	switch {
	case total > maxBeneficiaryAllocation+allocationEpsilon:
		return AllocationOver
	case total > maxBeneficiaryAllocation-allocationEpsilon:
		return AllocationExact
	default:
		return AllocationUnder
	}
}

// Add validates the entry and the running-sum cap, then submits the full
// updated list. A rejected add makes no remote call and leaves the total
// unchanged; local state updates only after remote confirmation.
func (manager *BeneficiaryManager) Add(ctx context.Context, name string, relationship string, percentage float64) error {
	entry, err := NewBeneficiary(name, relationship, percentage)
	if err != nil {
		return err
	}

	manager.mu.Lock()
	total := sumPercentages(manager.list)
	if total+entry.Percentage > maxBeneficiaryAllocation+allocationEpsilon {
		manager.mu.Unlock()
		return fmt.Errorf("%w: %.1f allocated, %.1f requested", ErrAllocationExceeded, total, entry.Percentage)
	}
	candidate := append(append([]Beneficiary(nil), manager.list...), entry)
	manager.mu.Unlock()

	if err := manager.replace(ctx, operationAddBeneficiary, candidate); err != nil {
		return err
	}
	manager.emit(ctx, OperationLog{Operation: operationAddBeneficiary, Amount: entry.Percentage})
	return nil
}

// Remove submits the full list with the entry at index excluded. Removal
// always preserves the allocation invariant.
func (manager *BeneficiaryManager) Remove(ctx context.Context, index int) error {
	manager.mu.Lock()
	if index < 0 || index >= len(manager.list) {
		manager.mu.Unlock()
		return fmt.Errorf("%w: index %d out of range", ErrInvalidBeneficiary, index)
	}
	candidate := make([]Beneficiary, 0, len(manager.list)-1)
	candidate = append(candidate, manager.list[:index]...)
	candidate = append(candidate, manager.list[index+1:]...)
	manager.mu.Unlock()

	if err := manager.replace(ctx, operationRemoveBeneficiary, candidate); err != nil {
		return err
	}
	manager.emit(ctx, OperationLog{Operation: operationRemoveBeneficiary})
	return nil
}

func (manager *BeneficiaryManager) replace(ctx context.Context, operation string, candidate []Beneficiary) error {
	token, err := manager.sessions.Token(ctx)
	if err != nil {
		return err
	}
	if replaceErr := manager.api.SetBeneficiaries(ctx, token, candidate); replaceErr != nil {
		manager.emit(ctx, OperationLog{Operation: operation, Error: replaceErr})
		return manager.sessions.NoteAuthFailure(ctx, replaceErr)
	}
	manager.mu.Lock()
	manager.list = candidate
	manager.mu.Unlock()
	return nil
}

func sumPercentages(list []Beneficiary) float64 {
	var total float64
	for _, entry := range list {
		total += entry.Percentage
	}
	return total
}
