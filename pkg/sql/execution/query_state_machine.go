// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stratumdb/stratum/pkg/util/log"
	"github.com/stratumdb/stratum/pkg/util/syncutil"
	"github.com/stratumdb/stratum/pkg/util/timeutil"
)

// QueryStateMachine owns the state of a single query from submission through
// its terminal outcome: the lifecycle state register, phase timings, memory
// watermarks, session mutations accumulated during execution, output
// publication, and transaction finalization.
//
// A created QueryStateMachine must be driven to a terminal state to release
// the resources held by its collaborators.
type QueryStateMachine struct {
	ctx context.Context

	queryID       QueryID
	query         string
	preparedQuery string
	session       *Session
	self          string

	resourceGroup        ResourceGroupID
	resourceGroupManager ResourceGroupManager
	throttlingEnabled    bool

	txns     TransactionManager
	metadata Metadata
	tasks    TaskManager
	executor Executor
	warnings WarningCollector

	timer  *queryStateTimer
	state  *StateMachine[QueryState]
	output *queryOutputManager

	// finalInfo is the one-shot cell holding the final immutable snapshot.
	// It is written exactly once when a snapshot reporting final content is
	// observed; after that, only pruned variants of the held value may
	// replace it.
	finalInfo *StateMachine[*QueryInfo]

	cleanedUp atomic.Bool

	memoryPool atomic.Pointer[VersionedMemoryPoolID]

	currentUserMemory      atomic.Int64
	currentRevocableMemory atomic.Int64
	currentTotalMemory     atomic.Int64
	peakUserMemory         atomic.Int64
	peakRevocableMemory    atomic.Int64
	peakTotalMemory        atomic.Int64

	peakTaskUserMemory      atomic.Int64
	peakTaskRevocableMemory atomic.Int64
	peakTaskTotalMemory     atomic.Int64

	// failureCause accepts only the first write. It must be populated before
	// the transition to FAILED becomes observable, so listeners that see
	// FAILED always see the cause.
	failureCause atomic.Pointer[Failure]

	runningAsync    atomic.Bool
	recoveryEnabled bool

	mu struct {
		syncutil.Mutex

		setCatalog string
		setSchema  string
		setPath    string

		setSessionProperties   map[string]string
		resetSessionProperties map[string]struct{}

		setRoles map[string]SelectedRole

		addedPreparedStatements       map[string]string
		deallocatedPreparedStatements map[string]struct{}

		startedTransactionID *TransactionID
		clearTransactionID   bool

		updateType string

		inputs []Input
		output *Output
	}
}

// BeginQuery creates a QueryStateMachine for the given query. If the session
// carries no transaction and the query does not manage transactions itself,
// an auto-commit transaction is opened on the session's behalf and finalized
// by the state machine when the query reaches a terminal state.
func BeginQuery(
	ctx context.Context,
	query string,
	preparedQuery string,
	session *Session,
	self string,
	resourceGroup ResourceGroupID,
	resourceGroupManager ResourceGroupManager,
	transactionControl bool,
	txns TransactionManager,
	metadata Metadata,
	tasks TaskManager,
	executor Executor,
	warnings WarningCollector,
) *QueryStateMachine {
	return beginQueryWithTimeSource(
		ctx, query, preparedQuery, session, self, resourceGroup,
		resourceGroupManager, transactionControl, txns, metadata, tasks,
		executor, warnings, timeutil.DefaultTimeSource{})
}

func beginQueryWithTimeSource(
	ctx context.Context,
	query string,
	preparedQuery string,
	session *Session,
	self string,
	resourceGroup ResourceGroupID,
	resourceGroupManager ResourceGroupManager,
	transactionControl bool,
	txns TransactionManager,
	metadata Metadata,
	tasks TaskManager,
	executor Executor,
	warnings WarningCollector,
	source timeutil.TimeSource,
) *QueryStateMachine {
	if executor == nil {
		panic(errors.AssertionFailedf("executor is nil"))
	}
	if session.TransactionID == nil && !transactionControl {
		txnID := txns.Begin(true /* autoCommit */)
		session = session.WithTransactionID(txnID)
	}

	m := newQueryStateMachine(
		ctx, query, preparedQuery, session, self, resourceGroup,
		resourceGroupManager, txns, metadata, tasks, executor, warnings,
		source)
	m.AddStateChangeListener(func(newState QueryState) {
		log.VEventf(m.ctx, 1, "query %s is %s", m.queryID, newState)
	})
	return m
}

func newQueryStateMachine(
	ctx context.Context,
	query string,
	preparedQuery string,
	session *Session,
	self string,
	resourceGroup ResourceGroupID,
	resourceGroupManager ResourceGroupManager,
	txns TransactionManager,
	metadata Metadata,
	tasks TaskManager,
	executor Executor,
	warnings WarningCollector,
	source timeutil.TimeSource,
) *QueryStateMachine {
	ambient := log.MakeAmbientContext("query", session.QueryID)

	m := &QueryStateMachine{
		ctx:                  ambient.AnnotateCtx(ctx),
		queryID:              session.QueryID,
		query:                query,
		preparedQuery:        preparedQuery,
		session:              session,
		self:                 self,
		resourceGroup:        resourceGroup,
		resourceGroupManager: resourceGroupManager,
		txns:                 txns,
		metadata:             metadata,
		tasks:                tasks,
		executor:             executor,
		warnings:             warnings,
		timer:                newQueryStateTimer(source),
		recoveryEnabled:      session.RecoveryEnabled,
	}
	if resourceGroupManager != nil {
		m.throttlingEnabled = resourceGroupManager.IsGroupRegistered(resourceGroup) &&
			resourceGroupManager.SoftReservedMemory(resourceGroup) != UnlimitedMemory
	}
	m.state = NewStateMachine(
		"query "+string(m.queryID), executor, QueryQueued, TerminalQueryStates...)
	m.finalInfo = NewStateMachine[*QueryInfo](
		"finalQueryInfo-"+string(m.queryID), executor, nil)
	m.output = newQueryOutputManager(executor)
	m.memoryPool.Store(&VersionedMemoryPoolID{ID: GeneralPool})

	m.mu.setSessionProperties = make(map[string]string)
	m.mu.resetSessionProperties = make(map[string]struct{})
	m.mu.setRoles = make(map[string]SelectedRole)
	m.mu.addedPreparedStatements = make(map[string]string)
	m.mu.deallocatedPreparedStatements = make(map[string]struct{})
	return m
}

// QueryID returns the query's id.
func (m *QueryStateMachine) QueryID() QueryID {
	return m.queryID
}

// Session returns the session the query runs under.
func (m *QueryStateMachine) Session() *Session {
	return m.session
}

// ResourceGroup returns the resource group the query was admitted under.
func (m *QueryStateMachine) ResourceGroup() ResourceGroupID {
	return m.resourceGroup
}

// ThrottlingEnabled reports whether the query's resource group imposes a soft
// memory reservation. Sampled once at construction.
func (m *QueryStateMachine) ThrottlingEnabled() bool {
	return m.throttlingEnabled
}

// WarningCollector returns the query's warning collector.
func (m *QueryStateMachine) WarningCollector() WarningCollector {
	return m.warnings
}

// State returns the current query state.
func (m *QueryStateMachine) State() QueryState {
	return m.state.Get()
}

// IsDone reports whether the query has reached a terminal state.
func (m *QueryStateMachine) IsDone() bool {
	return m.state.Get().IsDone()
}

// MemoryPool returns the current memory-pool assignment.
func (m *QueryStateMachine) MemoryPool() VersionedMemoryPoolID {
	return *m.memoryPool.Load()
}

// SetMemoryPool moves the query to a new memory pool.
func (m *QueryStateMachine) SetMemoryPool(pool VersionedMemoryPoolID) {
	m.memoryPool.Store(&pool)
}

// PeakUserMemory returns the peak user memory reservation in bytes.
func (m *QueryStateMachine) PeakUserMemory() int64 { return m.peakUserMemory.Load() }

// PeakRevocableMemory returns the peak revocable memory reservation in bytes.
func (m *QueryStateMachine) PeakRevocableMemory() int64 { return m.peakRevocableMemory.Load() }

// PeakTotalMemory returns the peak total memory reservation in bytes.
func (m *QueryStateMachine) PeakTotalMemory() int64 { return m.peakTotalMemory.Load() }

// PeakTaskUserMemory returns the largest user memory reservation observed for
// any single task.
func (m *QueryStateMachine) PeakTaskUserMemory() int64 { return m.peakTaskUserMemory.Load() }

// PeakTaskRevocableMemory returns the largest revocable memory reservation
// observed for any single task.
func (m *QueryStateMachine) PeakTaskRevocableMemory() int64 { return m.peakTaskRevocableMemory.Load() }

// PeakTaskTotalMemory returns the largest total memory reservation observed
// for any single task.
func (m *QueryStateMachine) PeakTaskTotalMemory() int64 { return m.peakTaskTotalMemory.Load() }

// raiseMax lifts peak to at least value. Peaks never decrease.
func raiseMax(peak *atomic.Int64, value int64) {
	for {
		current := peak.Load()
		if value <= current || peak.CompareAndSwap(current, value) {
			return
		}
	}
}

// UpdateMemoryUsage applies memory-reservation deltas reported by the memory
// manager and raises the peak watermarks. Each peak is raised independently;
// readers see atomic values but no consistent multi-field view.
func (m *QueryStateMachine) UpdateMemoryUsage(
	deltaUserMemory int64,
	deltaRevocableMemory int64,
	deltaTotalMemory int64,
	taskUserMemory int64,
	taskRevocableMemory int64,
	taskTotalMemory int64,
) {
	raiseMax(&m.peakUserMemory, m.currentUserMemory.Add(deltaUserMemory))
	raiseMax(&m.peakRevocableMemory, m.currentRevocableMemory.Add(deltaRevocableMemory))
	raiseMax(&m.peakTotalMemory, m.currentTotalMemory.Add(deltaTotalMemory))
	raiseMax(&m.peakTaskUserMemory, taskUserMemory)
	raiseMax(&m.peakTaskRevocableMemory, taskRevocableMemory)
	raiseMax(&m.peakTaskTotalMemory, taskTotalMemory)
}

// AddOutputInfoListener registers a listener for output schema and location
// updates. If output info is already available, the listener is fired once,
// asynchronously, with the current info.
func (m *QueryStateMachine) AddOutputInfoListener(listener func(*QueryOutputInfo)) {
	m.output.addOutputInfoListener(listener)
}

// AddOutputTaskFailureListener registers a listener for failures of
// output-stage tasks, replaying already-recorded failures.
func (m *QueryStateMachine) AddOutputTaskFailureListener(listener TaskFailureListener) {
	m.output.addOutputTaskFailureListener(listener)
}

// RecordOutputTaskFailure records a failure signal from an output-stage task.
func (m *QueryStateMachine) RecordOutputTaskFailure(taskID TaskID, failure error) {
	m.output.recordTaskFailure(taskID, failure)
}

// SetColumns sets the query's output schema. Must be called at most once.
func (m *QueryStateMachine) SetColumns(columnNames []string, columnTypes []ColumnType) {
	m.output.setColumns(columnNames, columnTypes)
}

// UpdateOutputLocations publishes newly known output-stage exchange
// locations.
func (m *QueryStateMachine) UpdateOutputLocations(
	newExchangeLocations map[TaskID]TaskLocation, noMoreExchangeLocations bool,
) {
	m.output.updateOutputLocations(newExchangeLocations, noMoreExchangeLocations)
}

// SetInputs records the tables read by the query.
func (m *QueryStateMachine) SetInputs(inputs []Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.inputs = append([]Input(nil), inputs...)
}

// SetOutput records the table written by the query.
func (m *QueryStateMachine) SetOutput(output *Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.output = output
}

// SetSetCatalog records a SET CATALOG session mutation.
func (m *QueryStateMachine) SetSetCatalog(catalog string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.setCatalog = catalog
}

// SetSetSchema records a SET SCHEMA session mutation.
func (m *QueryStateMachine) SetSetSchema(schema string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.setSchema = schema
}

// SetSetPath records a SET PATH session mutation.
func (m *QueryStateMachine) SetSetPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.setPath = path
}

// AddSetSessionProperty records a SET SESSION mutation.
func (m *QueryStateMachine) AddSetSessionProperty(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.setSessionProperties[name] = value
}

// AddResetSessionProperty records a RESET SESSION mutation.
func (m *QueryStateMachine) AddResetSessionProperty(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.resetSessionProperties[name] = struct{}{}
}

// AddSetRole records a SET ROLE mutation for a catalog.
func (m *QueryStateMachine) AddSetRole(catalog string, role SelectedRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.setRoles[catalog] = role
}

// AddPreparedStatement records a PREPARE.
func (m *QueryStateMachine) AddPreparedStatement(name, statement string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.addedPreparedStatements[name] = statement
}

// RemovePreparedStatement records a DEALLOCATE. The name must exist in the
// session's prepared-statement registry.
func (m *QueryStateMachine) RemovePreparedStatement(name string) error {
	if _, ok := m.session.PreparedStatements[name]; !ok {
		return NewQueryError(ErrorNotFound, "prepared statement not found: %s", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.deallocatedPreparedStatements[name] = struct{}{}
	return nil
}

// SetStartedTransactionID records that the query started an explicit
// transaction. Only the first write is retained. Starting and clearing a
// transaction in the same request is a programmer error.
func (m *QueryStateMachine) SetStartedTransactionID(id TransactionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mu.clearTransactionID {
		panic(errors.AssertionFailedf(
			"cannot start and clear transaction ID in the same request"))
	}
	if m.mu.startedTransactionID == nil {
		m.mu.startedTransactionID = &id
	}
}

// ClearTransactionID records that the query ended an explicit transaction.
// Starting and clearing a transaction in the same request is a programmer
// error.
func (m *QueryStateMachine) ClearTransactionID() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mu.startedTransactionID != nil {
		panic(errors.AssertionFailedf(
			"cannot start and clear transaction ID in the same request"))
	}
	m.mu.clearTransactionID = true
}

// SetUpdateType records the update type (INSERT, DELETE, ...) for DML.
func (m *QueryStateMachine) SetUpdateType(updateType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.updateType = updateType
}

// SetRunningAsync marks the query as detached from its client. Only effective
// while the query is RUNNING.
func (m *QueryStateMachine) SetRunningAsync(runningAsync bool) {
	if m.state.Get() == QueryRunning && runningAsync {
		m.runningAsync.CompareAndSwap(false, true)
	}
}

// IsRunningAsync reports whether the query is detached from its client.
func (m *QueryStateMachine) IsRunningAsync() bool {
	return m.runningAsync.Load()
}

// TransitionToWaitingForResources moves the query to WAITING_FOR_RESOURCES.
func (m *QueryStateMachine) TransitionToWaitingForResources() bool {
	m.timer.beginWaitingForResources()
	return m.state.SetIf(QueryWaitingForResources, func(current QueryState) bool {
		return current < QueryWaitingForResources
	})
}

// TransitionToDispatching moves the query to DISPATCHING.
func (m *QueryStateMachine) TransitionToDispatching() bool {
	m.timer.beginDispatching()
	return m.state.SetIf(QueryDispatching, func(current QueryState) bool {
		return current < QueryDispatching
	})
}

// TransitionToPlanning moves the query to PLANNING.
func (m *QueryStateMachine) TransitionToPlanning() bool {
	m.timer.beginPlanning()
	return m.state.SetIf(QueryPlanning, func(current QueryState) bool {
		return current < QueryPlanning
	})
}

// TransitionToStarting moves the query to STARTING, either forward from
// planning or back from RECOVERING. In the latter case the output manager is
// reset so the rescheduled output stage can announce fresh locations.
func (m *QueryStateMachine) TransitionToStarting() bool {
	m.timer.beginStarting()
	return m.state.SetIf(QueryStarting, func(current QueryState) bool {
		if current < QueryStarting {
			return true
		}
		if current == QueryRecovering {
			m.output.resetForResume()
			return true
		}
		return false
	})
}

// TransitionToRunning moves the query to RUNNING.
func (m *QueryStateMachine) TransitionToRunning() bool {
	return m.state.SetIf(QueryRunning, func(current QueryState) bool {
		return current < QueryRunning
	})
}

// TransitionToRecovering moves a running or suspended query to RECOVERING.
func (m *QueryStateMachine) TransitionToRecovering() bool {
	return m.state.SetIf(QueryRecovering, func(current QueryState) bool {
		return current == QueryRunning || current == QuerySuspended
	})
}

// TransitionToSuspend pauses a running query.
func (m *QueryStateMachine) TransitionToSuspend() bool {
	return m.state.SetIf(QuerySuspended, func(current QueryState) bool {
		return current == QueryRunning
	})
}

// TransitionToResumeRunning resumes a suspended query.
func (m *QueryStateMachine) TransitionToResumeRunning() bool {
	return m.state.SetIf(QueryRunning, func(current QueryState) bool {
		return current == QuerySuspended
	})
}

// TransitionToFinishing moves the query to FINISHING and finalizes its
// transaction. For auto-commit transactions the commit is requested
// asynchronously; a commit failure converts the pending FINISHED into FAILED
// carrying the commit error. The caller is never blocked on the commit.
func (m *QueryStateMachine) TransitionToFinishing() bool {
	m.timer.beginFinishing()

	if !m.state.SetIf(QueryFinishing, func(current QueryState) bool {
		return current != QueryFinishing && !current.IsDone()
	}) {
		return false
	}

	m.runningAsync.Store(false)
	if err := m.cleanupQuery(); err != nil {
		m.TransitionToFailed(err)
		return true
	}

	if txn := m.session.TransactionID; txn != nil &&
		m.txns.TransactionExists(*txn) && m.txns.IsAutoCommit(*txn) {
		commitCh := m.txns.AsyncCommit(*txn)
		m.executor.Execute(func() {
			if err := <-commitCh; err != nil {
				m.TransitionToFailed(err)
			} else {
				m.transitionToFinished()
			}
		})
	} else {
		m.transitionToFinished()
	}
	return true
}

func (m *QueryStateMachine) transitionToFinished() {
	m.timer.endQuery()
	m.state.SetIf(QueryFinished, func(current QueryState) bool {
		return !current.IsDone()
	})
}

// TransitionToFailed moves the query to FAILED with the given cause. Cleanup
// runs quietly, the failure cause is recorded before the transition becomes
// observable, and the transaction is resolved if the transition fired.
func (m *QueryStateMachine) TransitionToFailed(err error) bool {
	if err == nil {
		panic(errors.AssertionFailedf("err is nil"))
	}
	m.cleanupQueryQuietly()
	m.timer.endQuery()

	// The failure cause must be set before triggering the state change, so
	// listeners observing FAILED can observe the cause. This is safe because
	// the cause is only surfaced once the transition to FAILED succeeds.
	m.failureCause.CompareAndSwap(nil, toFailure(err))

	failed := m.state.SetIf(QueryFailed, func(current QueryState) bool {
		return !current.IsDone()
	})
	if failed {
		log.VEventf(m.ctx, 1, "query %s failed: %v", m.queryID, err)
		m.resolveFailedTransaction()
	} else {
		log.VEventf(m.ctx, 1, "failure after query %s finished: %v", m.queryID, err)
	}
	return failed
}

// TransitionToCanceled moves the query to FAILED with a synthetic
// user-canceled cause. There is no distinct canceled state; the cause carries
// the discriminator.
func (m *QueryStateMachine) TransitionToCanceled() bool {
	m.cleanupQueryQuietly()
	m.timer.endQuery()

	m.failureCause.CompareAndSwap(
		nil, toFailure(NewQueryError(ErrorUserCanceled, "query was canceled")))

	canceled := m.state.SetIf(QueryFailed, func(current QueryState) bool {
		return !current.IsDone()
	})
	if canceled {
		m.resolveFailedTransaction()
	}
	return canceled
}

// resolveFailedTransaction aborts an auto-commit transaction after a failed
// query; if the abort reports an error, the transaction is failed instead.
// Any other transaction bound to the session is failed directly.
func (m *QueryStateMachine) resolveFailedTransaction() {
	txn := m.session.TransactionID
	if txn == nil {
		return
	}
	if m.txns.TransactionExists(*txn) && m.txns.IsAutoCommit(*txn) {
		abortCh := m.txns.AsyncAbort(*txn)
		m.executor.Execute(func() {
			if err := <-abortCh; err != nil {
				log.Errorf(m.ctx,
					"error aborting transaction for failed query, failing transaction directly: %v", err)
				m.txns.Fail(*txn)
			}
		})
		return
	}
	m.txns.Fail(*txn)
}

// cleanupQuery runs the external cleanup collaborators. The single-fire latch
// guarantees at most one execution across racing finishing and failure paths.
func (m *QueryStateMachine) cleanupQuery() error {
	if !m.cleanedUp.CompareAndSwap(false, true) {
		return nil
	}
	if m.metadata != nil {
		if err := m.metadata.CleanupQuery(m.session); err != nil {
			return err
		}
	}
	if m.tasks != nil {
		m.tasks.CleanupQueryContext(m.queryID)
	}
	return nil
}

func (m *QueryStateMachine) cleanupQueryQuietly() {
	if err := m.cleanupQuery(); err != nil {
		log.Errorf(m.ctx, "error cleaning up query: %v", err)
	}
}

// AddStateChangeListener registers a listener for query state transitions.
// The listener is always notified asynchronously on the notification
// executor, and notifications may be observed out of order; re-read the state
// if ordering matters.
func (m *QueryStateMachine) AddStateChangeListener(listener func(QueryState)) {
	m.state.AddListener(listener)
}

// AddFinalQueryInfoListener registers a listener fired exactly once, when the
// final query info is recorded. The notification is asynchronous.
func (m *QueryStateMachine) AddFinalQueryInfoListener(listener func(*QueryInfo)) {
	var done atomic.Bool
	m.finalInfo.AddListener(func(info *QueryInfo) {
		if info != nil && done.CompareAndSwap(false, true) {
			listener(info)
		}
	})
}

// AwaitStateChange returns a channel receiving the first state observed to
// differ from the given one.
func (m *QueryStateMachine) AwaitStateChange(current QueryState) <-chan QueryState {
	return m.state.AwaitChange(current)
}

// FinalQueryInfo returns the recorded final snapshot, or nil.
func (m *QueryStateMachine) FinalQueryInfo() *QueryInfo {
	return m.finalInfo.Get()
}

// FailureInfo returns the failure record if the query has failed.
func (m *QueryStateMachine) FailureInfo() *Failure {
	if m.state.Get() != QueryFailed {
		return nil
	}
	return m.failureCause.Load()
}

// RecordHeartbeat refreshes the query's heartbeat timestamp.
func (m *QueryStateMachine) RecordHeartbeat() {
	m.timer.recordHeartbeat()
}

// BeginSyntaxAnalysis starts the syntax-analysis span.
func (m *QueryStateMachine) BeginSyntaxAnalysis() { m.timer.beginSyntaxAnalysis() }

// EndSyntaxAnalysis ends the syntax-analysis span.
func (m *QueryStateMachine) EndSyntaxAnalysis() { m.timer.endSyntaxAnalysis() }

// BeginAnalysis starts the semantic-analysis span.
func (m *QueryStateMachine) BeginAnalysis() { m.timer.beginAnalysis() }

// EndAnalysis ends the semantic-analysis span.
func (m *QueryStateMachine) EndAnalysis() { m.timer.endAnalysis() }

// BeginLogicalPlanning starts the logical-planning span.
func (m *QueryStateMachine) BeginLogicalPlanning() { m.timer.beginLogicalPlanning() }

// EndLogicalPlanning ends the logical-planning span.
func (m *QueryStateMachine) EndLogicalPlanning() { m.timer.endLogicalPlanning() }

// BeginDistributedPlanning starts the distributed-planning span.
func (m *QueryStateMachine) BeginDistributedPlanning() { m.timer.beginDistributedPlanning() }

// EndDistributedPlanning ends the distributed-planning span.
func (m *QueryStateMachine) EndDistributedPlanning() { m.timer.endDistributedPlanning() }

// CreateTime returns the query's creation time.
func (m *QueryStateMachine) CreateTime() time.Time {
	return m.timer.createTime()
}

// ExecutionStartTime returns the time of the latest TransitionToStarting call,
// whether or not that transition fired, or a zero time.
func (m *QueryStateMachine) ExecutionStartTime() time.Time {
	return m.timer.executionStartTime()
}

// LastHeartbeat returns the last heartbeat timestamp.
func (m *QueryStateMachine) LastHeartbeat() time.Time {
	return m.timer.lastHeartbeat()
}

// EndTime returns the end-of-query timestamp, or a zero time.
func (m *QueryStateMachine) EndTime() time.Time {
	return m.timer.endTime()
}
