// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"time"

	"github.com/google/uuid"
)

// QueryID uniquely identifies a query on a coordinator.
type QueryID string

// TransactionID identifies a transaction managed by a TransactionManager.
type TransactionID uuid.UUID

func (id TransactionID) String() string {
	return uuid.UUID(id).String()
}

// NewTransactionID returns a fresh random TransactionID.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.New())
}

// ResourceGroupID identifies the resource group a query was admitted under.
type ResourceGroupID string

// MemoryPoolID identifies a memory pool.
type MemoryPoolID string

// GeneralPool is the memory pool queries start in.
const GeneralPool MemoryPoolID = "general"

// VersionedMemoryPoolID is a memory pool assignment together with the version
// of the assignment, so that stale pool moves can be detected by the memory
// manager.
type VersionedMemoryPoolID struct {
	ID      MemoryPoolID
	Version int64
}

// SelectedRoleType describes how a role selection applies.
type SelectedRoleType int

const (
	// SelectedRoleRole selects a single named role.
	SelectedRoleRole SelectedRoleType = iota
	// SelectedRoleAll selects all grantable roles.
	SelectedRoleAll
	// SelectedRoleNone deselects all roles.
	SelectedRoleNone
)

// SelectedRole is a role selection for a catalog.
type SelectedRole struct {
	Type SelectedRoleType
	// Role is set only when Type is SelectedRoleRole.
	Role string
}

// Session is the immutable session snapshot a query runs under. A session
// carrying a transaction is derived with WithTransactionID rather than
// mutated.
type Session struct {
	QueryID            QueryID
	User               string
	Catalog            string
	Schema             string
	Path               string
	TransactionID      *TransactionID
	PreparedStatements map[string]string
	RecoveryEnabled    bool
	StartTime          time.Time
}

// WithTransactionID returns a copy of the session bound to the given
// transaction.
func (s *Session) WithTransactionID(id TransactionID) *Session {
	c := *s
	c.TransactionID = &id
	return &c
}

// Representation returns the externally visible form of the session, used in
// query snapshots.
func (s *Session) Representation() SessionRepresentation {
	var txn *TransactionID
	if s.TransactionID != nil {
		id := *s.TransactionID
		txn = &id
	}
	return SessionRepresentation{
		QueryID:       s.QueryID,
		User:          s.User,
		Catalog:       s.Catalog,
		Schema:        s.Schema,
		Path:          s.Path,
		TransactionID: txn,
		StartTime:     s.StartTime,
	}
}

// SessionRepresentation is the snapshot form of a Session embedded in
// QueryInfo.
type SessionRepresentation struct {
	QueryID       QueryID
	User          string
	Catalog       string
	Schema        string
	Path          string
	TransactionID *TransactionID
	StartTime     time.Time
}
