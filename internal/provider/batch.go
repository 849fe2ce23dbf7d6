package provider

import (
	"context"
	"database/sql"
	"strconv"

	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// TransactionScope is one write transaction and the change notifications it
// has collected. Notifications are delivered only after commit.
type TransactionScope struct {
	tx    *sql.Tx
	seen  map[string]struct{}
	order []string
}

func newTransactionScope(tx *sql.Tx) *TransactionScope {
	return &TransactionScope{tx: tx, seen: make(map[string]struct{})}
}

// Notify records a change of u. Query parameters are dropped and each
// identifier is kept once.
func (sc *TransactionScope) Notify(u *tv.URI) {
	key := u.Canonical().String()
	if _, ok := sc.seen[key]; ok {
		return
	}
	sc.seen[key] = struct{}{}
	sc.order = append(sc.order, key)
}

func (sc *TransactionScope) pending() []string {
	return sc.order
}

// OperationKind selects what a batch Operation does.
type OperationKind int

const (
	KindInsert OperationKind = iota
	KindUpdate
	KindDelete
	KindAssert
)

func (k OperationKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindAssert:
		return "assert"
	}
	return "unknown"
}

// Operation is one step of a batch.
//
// BackReferences maps a column to the index of an earlier result; the id of
// that result's row is written into the column before the step runs.
// ExpectedCount, when set, aborts the batch unless exactly that many rows are
// affected (or, for an assert, match).
type Operation struct {
	Kind           OperationKind
	URI            *tv.URI
	Values         model.Values
	Selection      string
	Args           []any
	BackReferences map[string]int
	ExpectedCount  *int64
}

// Result is the outcome of one batch step. Inserts set URI, the other kinds
// set Count.
type Result struct {
	URI   *tv.URI
	Count int64
}

// ApplyBatch runs ops in order inside one transaction. Any failure rolls the
// whole batch back and no notification is delivered.
func (s *StoreContext) ApplyBatch(ctx context.Context, caller tv.Caller, ops []Operation) (results []Result, err error) {
	defer func() { s.metrics.observeOperation("batch", OpUpdate, err) }()
	if err = s.Init(ctx); err != nil {
		return nil, err
	}

	err = s.write(ctx, func(sc *TransactionScope) error {
		results = make([]Result, 0, len(ops))
		for i, op := range ops {
			res, err := s.applyOperation(ctx, sc, caller, op, results)
			if err != nil {
				s.log.Debug("batch aborted", "step", i, "kind", op.Kind.String(), "error", err)
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *StoreContext) applyOperation(ctx context.Context, sc *TransactionScope, caller tv.Caller, op Operation, prior []Result) (Result, error) {
	if op.URI == nil {
		return Result{}, tv.ErrInvalidArgument.New("batch %s without uri", op.Kind)
	}
	values, err := resolveBackReferences(op, prior)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch op.Kind {
	case KindInsert:
		u, err := s.insert(ctx, sc, caller, op.URI, values)
		if err != nil {
			return res, err
		}
		res.URI = u
		if u != nil {
			res.Count = 1
		}
	case KindUpdate:
		res.Count, err = s.update(ctx, sc, caller, op.URI, values, op.Selection, op.Args)
	case KindDelete:
		res.Count, err = s.delete(ctx, sc, caller, op.URI, op.Selection, op.Args)
	case KindAssert:
		res.Count, err = s.count(ctx, sc, caller, op.URI, values, op.Selection, op.Args)
	default:
		return res, tv.ErrInvalidArgument.New("unknown batch operation %d", op.Kind)
	}
	if err != nil {
		return res, err
	}
	if op.ExpectedCount != nil && *op.ExpectedCount != res.Count {
		return res, tv.ErrStorage.New("wrong number of rows for %s %s: expected %d, got %d",
			op.Kind, op.URI, *op.ExpectedCount, res.Count)
	}
	return res, nil
}

func resolveBackReferences(op Operation, prior []Result) (model.Values, error) {
	if len(op.BackReferences) == 0 {
		return op.Values, nil
	}
	values := op.Values.Clone()
	if values == nil {
		values = model.Values{}
	}
	for col, idx := range op.BackReferences {
		if idx < 0 || idx >= len(prior) {
			return nil, tv.ErrInvalidArgument.New("back reference %d for %s points past the current step", idx, col)
		}
		ref := prior[idx]
		if ref.URI == nil {
			values.Set(col, ref.Count)
			continue
		}
		id, err := strconv.ParseInt(ref.URI.LastSegment(), 10, 64)
		if err != nil {
			return nil, tv.ErrInvalidArgument.New("back reference %d has no row id", idx)
		}
		values.Set(col, id)
	}
	return values, nil
}

// count returns how many rows at u are visible to caller and equal values.
func (s *StoreContext) count(ctx context.Context, sc *TransactionScope, caller tv.Caller, u *tv.URI, values model.Values, selection string, args []any) (int64, error) {
	plan, err := Resolve(OpQuery, u, s.clock.Now())
	if err != nil {
		return 0, err
	}
	where, err := s.access.Scope(OpQuery, caller, plan, selection, args)
	if err != nil {
		return 0, err
	}
	for _, k := range values.Keys() {
		if !s.registry.Has(plan.Table, k) {
			return 0, tv.ErrInvalidArgument.New("unknown column %s", k)
		}
		if values[k] == nil {
			where.Add(quoteIdent(k) + " IS NULL")
			continue
		}
		where.Add(quoteIdent(k)+"=?", values[k])
	}

	cond, whereArgs := where.clause()
	var n int64
	err = sc.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+plan.From+cond, whereArgs...).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// BulkInsert inserts every row into the collection at u in one transaction
// and returns how many rows were created.
func (s *StoreContext) BulkInsert(ctx context.Context, caller tv.Caller, u *tv.URI, rows []model.Values) (n int64, err error) {
	defer func() { s.metrics.observeOperation(tableLabel(u), OpInsert, err) }()
	if err = s.Init(ctx); err != nil {
		return 0, err
	}
	err = s.write(ctx, func(sc *TransactionScope) error {
		n = 0
		for _, values := range rows {
			out, err := s.insert(ctx, sc, caller, u, values)
			if err != nil {
				return err
			}
			if out != nil {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
