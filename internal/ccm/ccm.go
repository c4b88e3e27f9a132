// Package ccm defines the concurrency-control oracle the execution engine
// consults before every row access (spec.md §4.5): an external
// collaborator this module does not implement scheduling for, only the
// interface it is expected to satisfy, plus a reference implementation
// that always grants access.
package ccm

import "sync"

// Manager authorizes transactions and the object accesses they make.
// validate_object is called once per table touched by a Scan/Insert/
// Update/Delete before the Storage Manager is invoked.
type Manager interface {
	BeginTransaction() int64
	EndTransaction(txID int64, commit bool) error
	ValidateObject(txID int64, table string, op string) error
	ActiveTransactions() []int64
}

// AlwaysAllow is the reference Manager: every BeginTransaction succeeds,
// every ValidateObject is granted, unless Deny reports otherwise. Deny is
// nil by default; tests set it to force deterministic denial.
type AlwaysAllow struct {
	mu     sync.Mutex
	nextID int64
	active map[int64]bool

	// Deny, when non-nil, is consulted by ValidateObject; returning a
	// non-nil error denies the access.
	Deny func(txID int64, table string, op string) error
}

// NewAlwaysAllow returns a ready-to-use AlwaysAllow.
func NewAlwaysAllow() *AlwaysAllow {
	return &AlwaysAllow{active: make(map[int64]bool)}
}

func (a *AlwaysAllow) BeginTransaction() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	a.active[a.nextID] = true
	return a.nextID
}

func (a *AlwaysAllow) EndTransaction(txID int64, commit bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, txID)
	return nil
}

func (a *AlwaysAllow) ValidateObject(txID int64, table string, op string) error {
	if a.Deny != nil {
		return a.Deny(txID, table, op)
	}
	return nil
}

func (a *AlwaysAllow) ActiveTransactions() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int64, 0, len(a.active))
	for id := range a.active {
		out = append(out, id)
	}
	return out
}
