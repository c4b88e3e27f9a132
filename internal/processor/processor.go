// Package processor implements spec.md §4.12: the statement dispatcher
// that turns one parsed SQL statement into storage effects, the way the
// teacher's apply.Applier turns one parsed migration statement into a
// live database effect. It owns the transaction/meta-command layer the
// frontend and the optimizer/executor pipeline sit underneath: BEGIN/
// COMMIT/ROLLBACK bracket a unit of work, DDL goes straight to the
// Storage Manager, and DML is optimized (planner.Generator.Best) before
// it is executed (exec.Executor.Execute), retrying a handful of times
// when the CCM aborts the owning transaction.
package processor

import (
	"strings"
	"time"

	"github.com/fathurwithyou/silberdb/internal/ccm"
	"github.com/fathurwithyou/silberdb/internal/config"
	"github.com/fathurwithyou/silberdb/internal/cost"
	"github.com/fathurwithyou/silberdb/internal/exec"
	"github.com/fathurwithyou/silberdb/internal/frontend"
	"github.com/fathurwithyou/silberdb/internal/optimizer"
	"github.com/fathurwithyou/silberdb/internal/planner"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

// MaxAbortRetries bounds how many attempts Dispatch makes at a DML statement
// whose transaction the CCM aborts, the first attempt included, before
// giving up (spec.md §4.12).
const MaxAbortRetries = 3

// Result is the outcome of one Dispatch call. Which fields are set depends
// on the statement kind: DML sets Rows; CREATE TABLE sets Schema and
// Message; transaction-control and the other DDL statements set only
// Message; the `\dt`/`\d` meta-commands set Tables or Schema.
type Result struct {
	Rows     *types.Rows
	Schema   *types.Schema
	Tables   []string
	Recovery []wal.Action
	Message  string
}

// Dispatcher routes one statement at a time to its DDL/DML/TCL handler.
// It holds the one piece of session state this engine needs: the
// currently open explicit transaction, if any. A statement issued
// outside an explicit BEGIN runs in its own single-statement transaction
// (auto-commit), mirroring how the teacher's Applier falls back to
// per-statement execution when it isn't running inside a single
// transactional migration.
type Dispatcher struct {
	Storage  *storage.Manager
	CCM      ccm.Manager
	WAL      *wal.Manager // nil is valid: runs without durability
	Frontend *frontend.Parser
	Exec     *exec.Executor
	Gen      *planner.Generator

	cfg *config.EngineConfig

	txID      int64
	inTx      bool
	stmtCount int
}

// New wires a Dispatcher's query-optimization pipeline (rules.SchemaLookup
// and optimizer.StatLookup closures over Storage, a cost.Model built from
// cfg, an Optimizer, and a Generator) and its frontend parser around one
// Storage Manager, CCM, and WAL. walMgr may be nil to run without
// durability.
func New(s *storage.Manager, c ccm.Manager, walMgr *wal.Manager, cfg *config.EngineConfig) *Dispatcher {
	lookup := func(table string) (*types.Schema, bool) {
		schema, err := s.GetTableSchema(table)
		if err != nil {
			return nil, false
		}
		return schema, true
	}
	statLookup := func(table string) *types.Stat {
		stat, err := s.GetStats(table)
		if err != nil {
			return nil
		}
		return stat
	}
	model := cost.New(cfg)
	opt := optimizer.New(lookup, statLookup, model)
	weights := planner.Weights{
		SelectivityDepth: cfg.WeightSelectivityDepth,
		JoinOrder:        cfg.WeightJoinOrder,
		IntermediateSize: cfg.WeightIntermediateSize,
		Complexity:       cfg.WeightComplexity,
	}

	var execWAL exec.WAL
	if walMgr != nil {
		execWAL = walMgr
	}

	return &Dispatcher{
		Storage:  s,
		CCM:      c,
		WAL:      walMgr,
		Frontend: frontend.New(lookup),
		Exec:     exec.New(s, c, execWAL),
		Gen:      planner.New(opt, weights),
		cfg:      cfg,
	}
}

// InTransaction reports whether an explicit BEGIN is currently open.
func (d *Dispatcher) InTransaction() bool {
	return d.inTx
}

// Dispatch parses sql and runs it to completion: a meta-command
// (`\dt`/`\d table`) is answered directly from Storage; BEGIN/COMMIT/
// ROLLBACK bracket the Dispatcher's open transaction; CREATE/DROP
// TABLE/INDEX run against Storage directly; everything else is treated
// as DML and optimized before execution.
func (d *Dispatcher) Dispatch(sql string) (*Result, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &Result{}, nil
	}
	if strings.HasPrefix(trimmed, "\\") {
		return d.dispatchMeta(trimmed)
	}

	node, err := d.Frontend.Parse(trimmed)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch node.Type {
	case types.NodeBeginTransaction:
		res, err = d.begin()
	case types.NodeCommit:
		res, err = d.commit()
	case types.NodeAbort:
		res, err = d.abort()
	case types.NodeCreateTable, types.NodeDropTable, types.NodeCreateIndex, types.NodeDropIndex:
		res, err = d.dispatchDDL(node)
	default:
		res, err = d.dispatchDML(node)
	}
	if err != nil {
		return nil, err
	}
	if err := d.maybeCheckpoint(); err != nil {
		return nil, err
	}
	return res, nil
}

// maybeCheckpoint checkpoints the WAL every cfg.CheckpointInterval
// statements, advancing its checkpoint line so recovery after a crash has
// less to replay; the log file itself is not shortened.
// A zero interval or a nil WAL disables automatic checkpointing.
func (d *Dispatcher) maybeCheckpoint() error {
	if d.WAL == nil || d.cfg == nil || d.cfg.CheckpointInterval <= 0 {
		return nil
	}
	d.stmtCount++
	if d.stmtCount%d.cfg.CheckpointInterval != 0 {
		return nil
	}
	_, err := d.Checkpoint()
	return err
}

// Checkpoint folds committed changes since the last checkpoint into
// Storage and records a new checkpoint in the WAL (spec.md §4.13). It is
// safe to call at any
// time, including from the CLI at teardown; a nil WAL makes it a no-op.
func (d *Dispatcher) Checkpoint() ([]wal.Action, error) {
	if d.WAL == nil {
		return nil, nil
	}
	return d.WAL.SaveCheckpoint(d.CCM.ActiveTransactions(), time.Now().UnixNano(), d.redo)
}

func (d *Dispatcher) begin() (*Result, error) {
	if d.inTx {
		return nil, &types.SyntaxError{Message: "a transaction is already in progress"}
	}
	d.txID = d.CCM.BeginTransaction()
	d.inTx = true
	if err := d.logControl(types.LogStart, d.txID); err != nil {
		return nil, err
	}
	return &Result{Message: "transaction started"}, nil
}

func (d *Dispatcher) commit() (*Result, error) {
	if !d.inTx {
		return nil, &types.SyntaxError{Message: "no transaction in progress"}
	}
	if err := d.logControl(types.LogCommit, d.txID); err != nil {
		return nil, err
	}
	err := d.CCM.EndTransaction(d.txID, true)
	d.inTx = false
	if err != nil {
		return nil, err
	}
	return &Result{Message: "commit"}, nil
}

func (d *Dispatcher) abort() (*Result, error) {
	if !d.inTx {
		return nil, &types.SyntaxError{Message: "no transaction in progress"}
	}
	if err := d.logControl(types.LogAbort, d.txID); err != nil {
		return nil, err
	}
	err := d.CCM.EndTransaction(d.txID, false)
	d.inTx = false
	if err != nil {
		return nil, err
	}
	return &Result{Message: "rollback"}, nil
}

// logControl writes a START/COMMIT/ABORT record for txID. Unlike CHANGE
// records, which are always tied to the Executor's own txID parameter,
// control records can belong to either the Dispatcher's open explicit
// transaction or a transient implicit one, so the caller supplies txID
// explicitly rather than this reading d.txID.
func (d *Dispatcher) logControl(kind types.LogRecordType, txID int64) error {
	if d.WAL == nil {
		return nil
	}
	return d.WAL.Append(types.LogRecord{
		Type:               kind,
		TxID:               txID,
		Timestamp:          time.Now().UnixNano(),
		ActiveTransactions: d.CCM.ActiveTransactions(),
	})
}

func (d *Dispatcher) dispatchDDL(node *types.Node) (*Result, error) {
	switch node.Type {
	case types.NodeCreateTable:
		schema, ok := node.Meta.(*types.Schema)
		if !ok {
			return nil, &types.SyntaxError{Message: "CREATE TABLE produced no schema"}
		}
		if err := d.Storage.CreateTable(schema); err != nil {
			return nil, err
		}
		return &Result{Schema: schema, Message: "table " + schema.Table + " created"}, nil

	case types.NodeDropTable:
		if err := d.Storage.DropTable(node.Value); err != nil {
			return nil, err
		}
		return &Result{Message: "table " + node.Value + " dropped"}, nil

	case types.NodeCreateIndex:
		table, column := splitTableColumn(node.Value)
		if err := d.Storage.SetIndex(table, column, storage.IndexBTree); err != nil {
			return nil, err
		}
		return &Result{Message: "index on " + node.Value + " created"}, nil

	case types.NodeDropIndex:
		table, column := splitTableColumn(node.Value)
		if err := d.Storage.DropIndex(table, column); err != nil {
			return nil, err
		}
		return &Result{Message: "index on " + node.Value + " dropped"}, nil

	default:
		return nil, &types.ErrNotImplemented{Feature: string(node.Type)}
	}
}

func splitTableColumn(value string) (table, column string) {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return value, ""
	}
	return fields[0], fields[1]
}

// dispatchDML runs a SELECT/INSERT/UPDATE/DELETE tree through the
// planner's best-candidate search (read statements only: an INSERT/
// UPDATE/DELETE root is already the physical operator the executor
// expects) and then the executor, opening an implicit single-statement
// transaction when no explicit BEGIN is open. A statement whose
// transaction the CCM aborts is retried (under a fresh transaction when it
// runs in an implicit one), for at most MaxAbortRetries attempts in all.
func (d *Dispatcher) dispatchDML(node *types.Node) (*Result, error) {
	if isOptimizable(node) {
		if best := d.Gen.Best(node); best != nil {
			node = best
		}
	}

	implicit := !d.inTx
	var lastErr error
	for attempt := 0; attempt < MaxAbortRetries; attempt++ {
		txID := d.txID
		if implicit {
			txID = d.CCM.BeginTransaction()
			if err := d.logControl(types.LogStart, txID); err != nil {
				return nil, err
			}
		}

		rows, err := d.Exec.Execute(node, txID)
		if err == nil {
			if implicit {
				if err := d.logControl(types.LogCommit, txID); err != nil {
					return nil, err
				}
				if endErr := d.CCM.EndTransaction(txID, true); endErr != nil {
					return nil, endErr
				}
			}
			return &Result{Rows: rows}, nil
		}

		lastErr = err
		if implicit {
			if logErr := d.logControl(types.LogAbort, txID); logErr != nil {
				return nil, logErr
			}
			_ = d.CCM.EndTransaction(txID, false)
			if d.WAL != nil {
				if _, recErr := d.WAL.Recover(wal.Criteria{ByTransaction: []int64{txID}}, d.redo, d.undo); recErr != nil {
					return nil, recErr
				}
			}
		}
		if _, isAbort := err.(*types.AbortError); !isAbort {
			return nil, err
		}
	}
	return nil, lastErr
}

// isOptimizable reports whether node is a read-shaped tree (TABLE/
// SELECTION/PROJECTION/JOIN/ORDER_BY/LIMIT) worth running through the
// planner. INSERT/UPDATE/DELETE roots carry their own typed Meta and are
// handed to the executor as-is; their WHERE child, if any, is a bare
// SELECTION the executor reads directly rather than an optimizable tree.
func isOptimizable(node *types.Node) bool {
	switch node.Type {
	case types.NodeInsert, types.NodeUpdate, types.NodeDelete:
		return false
	default:
		return true
	}
}

func (d *Dispatcher) dispatchMeta(cmd string) (*Result, error) {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case `\dt`:
		return &Result{Tables: d.Storage.ListTables()}, nil
	case `\d`:
		if len(fields) < 2 {
			return nil, &types.SyntaxError{Message: `\d requires a table name`}
		}
		schema, err := d.Storage.GetTableSchema(fields[1])
		if err != nil {
			return nil, err
		}
		return &Result{Schema: schema}, nil
	default:
		return nil, &types.SyntaxError{Message: "unknown meta-command: " + fields[0]}
	}
}
