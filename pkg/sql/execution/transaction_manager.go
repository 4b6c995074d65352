// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"github.com/cockroachdb/errors"
	"github.com/stratumdb/stratum/pkg/util/syncutil"
)

// InMemoryTransactionManager is a TransactionManager keeping all transaction
// state in memory. It backs single-node deployments and is the transaction
// manager used by the package tests.
type InMemoryTransactionManager struct {
	// TestingKnobs hooks transaction finalization for tests. Both hooks may
	// be nil.
	TestingKnobs struct {
		// BeforeCommit can inject a commit failure.
		BeforeCommit func(id TransactionID) error
		// BeforeAbort can inject an abort failure.
		BeforeAbort func(id TransactionID) error
	}

	mu struct {
		syncutil.Mutex
		txns map[TransactionID]*txnState
	}
}

type txnState struct {
	autoCommit bool
	committed  bool
	aborted    bool
	failed     bool
}

var _ TransactionManager = (*InMemoryTransactionManager)(nil)

// NewInMemoryTransactionManager creates an empty transaction manager.
func NewInMemoryTransactionManager() *InMemoryTransactionManager {
	m := &InMemoryTransactionManager{}
	m.mu.txns = make(map[TransactionID]*txnState)
	return m
}

// Begin implements TransactionManager.
func (m *InMemoryTransactionManager) Begin(autoCommit bool) TransactionID {
	id := NewTransactionID()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.txns[id] = &txnState{autoCommit: autoCommit}
	return id
}

// TransactionExists implements TransactionManager.
func (m *InMemoryTransactionManager) TransactionExists(id TransactionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.txns[id]
	return ok && !t.committed && !t.aborted
}

// IsAutoCommit implements TransactionManager.
func (m *InMemoryTransactionManager) IsAutoCommit(id TransactionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.txns[id]
	return ok && t.autoCommit
}

// AsyncCommit implements TransactionManager.
func (m *InMemoryTransactionManager) AsyncCommit(id TransactionID) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- m.commit(id)
	}()
	return ch
}

func (m *InMemoryTransactionManager) commit(id TransactionID) error {
	if fn := m.TestingKnobs.BeforeCommit; fn != nil {
		if err := fn(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.txns[id]
	if !ok {
		return errors.Newf("unknown transaction %s", id)
	}
	if t.failed {
		return errors.Newf("transaction %s has been failed and cannot commit", id)
	}
	if t.aborted {
		return errors.Newf("transaction %s already aborted", id)
	}
	t.committed = true
	return nil
}

// AsyncAbort implements TransactionManager.
func (m *InMemoryTransactionManager) AsyncAbort(id TransactionID) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- m.abort(id)
	}()
	return ch
}

func (m *InMemoryTransactionManager) abort(id TransactionID) error {
	if fn := m.TestingKnobs.BeforeAbort; fn != nil {
		if err := fn(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.txns[id]
	if !ok {
		return errors.Newf("unknown transaction %s", id)
	}
	if !t.committed {
		t.aborted = true
	}
	return nil
}

// Fail implements TransactionManager.
func (m *InMemoryTransactionManager) Fail(id TransactionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.mu.txns[id]; ok {
		t.failed = true
	}
}

// IsCommitted reports whether the transaction committed. Test helper.
func (m *InMemoryTransactionManager) IsCommitted(id TransactionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.txns[id]
	return ok && t.committed
}

// IsAborted reports whether the transaction aborted. Test helper.
func (m *InMemoryTransactionManager) IsAborted(id TransactionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.txns[id]
	return ok && t.aborted
}
