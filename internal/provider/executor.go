package provider

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"

	"tvp-go/internal/genre"
	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// QueryOptions narrows a query. Selection and SortOrder are raw SQL fragments;
// Selection is only honoured for callers holding all-epg-data.
type QueryOptions struct {
	Columns   []string
	Selection string
	Args      []any
	SortOrder string
}

var defaultSortOrder = map[model.Table]string{
	model.Programs:        model.ColStartTime + " ASC",
	model.WatchedPrograms: model.ColWatchStartTime + " DESC",
}

// Query returns the rows at u visible to caller.
func (s *StoreContext) Query(ctx context.Context, caller tv.Caller, u *tv.URI, opts QueryOptions) (c *Cursor, err error) {
	defer func() { s.metrics.observeOperation(tableLabel(u), OpQuery, err) }()
	if err = s.Init(ctx); err != nil {
		return nil, err
	}

	plan, err := Resolve(OpQuery, u, s.clock.Now())
	if err != nil {
		return nil, err
	}
	where, err := s.access.Scope(OpQuery, caller, plan, opts.Selection, opts.Args)
	if err != nil {
		return nil, err
	}
	if !caller.Has(tv.PermAllEPGData) {
		if err = s.registry.ValidateSortOrder(plan.Table, opts.SortOrder); err != nil {
			return nil, err
		}
	}
	order := opts.SortOrder
	if order == "" {
		order = defaultSortOrder[plan.Table]
	}

	cond, args := where.clause()
	q := "SELECT " + strings.Join(s.registry.Project(plan.Table, opts.Columns), ", ") +
		" FROM " + plan.From + cond
	if order != "" {
		q += " ORDER BY " + order
	}
	rows, err := s.db.Reader.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, tv.ErrStorage.Wrap(err)
	}
	return readCursor(u, rows)
}

// Insert adds a row to the collection at u and returns the new row's
// identifier. A nil identifier with a nil error means the request was
// accepted without creating a row.
func (s *StoreContext) Insert(ctx context.Context, caller tv.Caller, u *tv.URI, values model.Values) (out *tv.URI, err error) {
	defer func() { s.metrics.observeOperation(tableLabel(u), OpInsert, err) }()
	if err = s.Init(ctx); err != nil {
		return nil, err
	}
	err = s.write(ctx, func(sc *TransactionScope) error {
		var ierr error
		out, ierr = s.insert(ctx, sc, caller, u, values)
		return ierr
	})
	return out, err
}

// Update changes the rows at u visible to caller and returns how many changed.
func (s *StoreContext) Update(ctx context.Context, caller tv.Caller, u *tv.URI, values model.Values, selection string, args ...any) (n int64, err error) {
	defer func() { s.metrics.observeOperation(tableLabel(u), OpUpdate, err) }()
	if err = s.Init(ctx); err != nil {
		return 0, err
	}
	err = s.write(ctx, func(sc *TransactionScope) error {
		var uerr error
		n, uerr = s.update(ctx, sc, caller, u, values, selection, args)
		return uerr
	})
	return n, err
}

// Delete removes the rows at u visible to caller and returns how many were
// removed. On a logo path the blob is cleared instead.
func (s *StoreContext) Delete(ctx context.Context, caller tv.Caller, u *tv.URI, selection string, args ...any) (n int64, err error) {
	defer func() { s.metrics.observeOperation(tableLabel(u), OpDelete, err) }()
	if err = s.Init(ctx); err != nil {
		return 0, err
	}
	err = s.write(ctx, func(sc *TransactionScope) error {
		var derr error
		n, derr = s.delete(ctx, sc, caller, u, selection, args)
		return derr
	})
	return n, err
}

// write runs fn in a write transaction and delivers its notifications once
// the transaction commits.
func (s *StoreContext) write(ctx context.Context, fn func(*TransactionScope) error) error {
	var sc *TransactionScope
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		sc = newTransactionScope(tx)
		return fn(sc)
	})
	if err != nil {
		return classify(err)
	}
	s.flush(ctx, sc)
	return nil
}

func (s *StoreContext) insert(ctx context.Context, sc *TransactionScope, caller tv.Caller, u *tv.URI, values model.Values) (*tv.URI, error) {
	plan, err := Resolve(OpInsert, u, s.clock.Now())
	if err != nil {
		return nil, err
	}
	values = values.Clone()

	switch plan.Table {
	case model.Channels:
		return s.insertChannel(ctx, sc, caller, values)
	case model.Programs:
		return s.insertProgram(ctx, sc, caller, values)
	case model.WatchedPrograms:
		if err := s.access.RequireCapability(caller, plan); err != nil {
			return nil, err
		}
		return s.insertWatchedProgram(ctx, sc, caller, values)
	case model.RecordedPrograms:
		s.registry.Filter(model.RecordedPrograms, values)
		values.Set(model.ColPackageName, caller.Package)
		s.normalizeGenre(values)
		return s.insertAndNotify(ctx, sc, model.RecordedPrograms, values, tv.RecordedProgramURI)
	case model.PreviewPrograms, model.WatchNextPrograms:
		return s.insertRecommendation(ctx, sc, caller, plan.Table, values)
	}
	return nil, tv.ErrUnsupported.New("cannot insert into %s", u)
}

func (s *StoreContext) insertChannel(ctx context.Context, sc *TransactionScope, caller tv.Caller, values model.Values) (*tv.URI, error) {
	typ, _ := values.String(model.ColType)
	preview := typ == model.ChannelTypePreview
	if preview {
		if err := s.access.CheckNotBlocked(caller); err != nil {
			return nil, err
		}
		if _, ok := values.String(model.ColInputID); !ok {
			values.Set(model.ColInputID, "")
		}
	}
	s.registry.Filter(model.Channels, values)
	values.Set(model.ColPackageName, caller.Package)
	if err := s.access.CheckChannelColumns(caller, values); err != nil {
		return nil, err
	}
	return s.insertAndNotify(ctx, sc, model.Channels, values, tv.ChannelURI)
}

func (s *StoreContext) insertProgram(ctx context.Context, sc *TransactionScope, caller tv.Caller, values model.Values) (*tv.URI, error) {
	s.registry.Filter(model.Programs, values)
	if !caller.Has(tv.PermAllEPGData) || !values.Has(model.ColPackageName) {
		values.Set(model.ColPackageName, caller.Package)
	}
	s.normalizeGenre(values)
	foldLegacyNumbers(values)
	return s.insertAndNotify(ctx, sc, model.Programs, values, tv.ProgramURI)
}

// insertWatchedProgram records the start of a watch session. Session ends are
// accepted and dropped.
func (s *StoreContext) insertWatchedProgram(ctx context.Context, sc *TransactionScope, caller tv.Caller, values model.Values) (*tv.URI, error) {
	s.registry.Filter(model.WatchedPrograms, values)
	_, hasStart := values.Int64(model.ColWatchStartTime)
	_, hasEnd := values.Int64(model.ColWatchEndTime)
	switch {
	case hasStart && !hasEnd:
	case !hasStart && hasEnd:
		return nil, nil
	default:
		return nil, tv.ErrInvalidArgument.New("exactly one of %s and %s must be set",
			model.ColWatchStartTime, model.ColWatchEndTime)
	}

	if !values.Has(model.ColPackageName) {
		values.Set(model.ColPackageName, caller.Package)
	}
	if token, ok := values.String(model.ColSessionToken); !ok || token == "" {
		values.Set(model.ColSessionToken, s.ids.New())
	}

	id, err := insertRow(ctx, sc.tx, model.WatchedPrograms, values)
	if err != nil {
		if isForeignKeyViolation(err) {
			s.log.Warn("watched program references an unknown channel", "caller", caller.String(), "error", err)
			return nil, nil
		}
		return nil, err
	}
	return tv.WatchedProgramURI(id), nil
}

func (s *StoreContext) insertRecommendation(ctx context.Context, sc *TransactionScope, caller tv.Caller, t model.Table, values model.Values) (*tv.URI, error) {
	if err := s.access.CheckNotBlocked(caller); err != nil {
		return nil, err
	}
	s.registry.Filter(t, values)
	if !values.Has(model.ColType) {
		return nil, tv.ErrInvalidArgument.New("%s is required for %s", model.ColType, t.Kind())
	}
	if t == model.PreviewPrograms || !caller.Has(tv.PermAllEPGData) || !values.Has(model.ColPackageName) {
		values.Set(model.ColPackageName, caller.Package)
	}
	if err := s.access.CheckRecommendationColumns(caller, values); err != nil {
		return nil, err
	}
	build := tv.PreviewProgramURI
	if t == model.WatchNextPrograms {
		build = tv.WatchNextProgramURI
	}
	return s.insertAndNotify(ctx, sc, t, values, build)
}

func (s *StoreContext) insertAndNotify(ctx context.Context, sc *TransactionScope, t model.Table, values model.Values, build func(int64) *tv.URI) (*tv.URI, error) {
	id, err := insertRow(ctx, sc.tx, t, values)
	if err != nil {
		return nil, err
	}
	u := build(id)
	sc.Notify(u)
	return u, nil
}

func (s *StoreContext) update(ctx context.Context, sc *TransactionScope, caller tv.Caller, u *tv.URI, values model.Values, selection string, args []any) (int64, error) {
	plan, err := Resolve(OpUpdate, u, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if plan.Table == model.PreviewPrograms || plan.Table == model.WatchNextPrograms {
		if err := s.access.CheckNotBlocked(caller); err != nil {
			return 0, err
		}
	}
	where, err := s.access.Scope(OpUpdate, caller, plan, selection, args)
	if err != nil {
		return 0, err
	}
	if err := s.access.CheckUpdateIdentity(caller, plan.Route, values); err != nil {
		return 0, err
	}

	values = values.Clone()
	s.registry.Filter(plan.Table, values)
	_, onDir := plan.Route.(Dir)
	immutable := false

	switch plan.Table {
	case model.Channels:
		if values.Has(model.ColType) {
			immutable = true
			if _, ok := plan.Route.(Item); !ok {
				s.log.Info("channel type cannot change on a collection", "uri", u.String())
				return 0, nil
			}
			where.Add(model.ColType+"=?", values[model.ColType])
		}
		if err := s.access.CheckChannelColumns(caller, values); err != nil {
			return 0, err
		}
	case model.Programs:
		s.normalizeGenre(values)
		foldLegacyNumbers(values)
	case model.RecordedPrograms:
		s.normalizeGenre(values)
	case model.PreviewPrograms:
		if values.Has(model.ColChannelID) {
			immutable = true
			if onDir {
				s.log.Info("preview program channel cannot change on a collection", "uri", u.String())
				return 0, nil
			}
			where.Add(model.ColChannelID+"=?", values[model.ColChannelID])
		}
		if err := s.access.CheckRecommendationColumns(caller, values); err != nil {
			return 0, err
		}
	case model.WatchNextPrograms:
		if err := s.access.CheckRecommendationColumns(caller, values); err != nil {
			return 0, err
		}
	}
	if len(values) == 0 {
		return 0, nil
	}

	keys := values.Keys()
	set := make([]string, len(keys))
	setArgs := make([]any, len(keys))
	for i, k := range keys {
		set[i] = quoteIdent(k) + "=?"
		setArgs[i] = values[k]
	}
	cond, whereArgs := where.clause()
	res, err := sc.tx.ExecContext(ctx,
		"UPDATE "+string(plan.Table)+" SET "+strings.Join(set, ", ")+cond,
		append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		sc.Notify(u)
	} else if immutable {
		s.log.Info("update matched no rows with the current immutable value", "uri", u.String())
	}
	return n, nil
}

func (s *StoreContext) delete(ctx context.Context, sc *TransactionScope, caller tv.Caller, u *tv.URI, selection string, args []any) (int64, error) {
	plan, err := Resolve(OpDelete, u, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if plan.Table == model.PreviewPrograms || plan.Table == model.WatchNextPrograms {
		if err := s.access.CheckNotBlocked(caller); err != nil {
			return 0, err
		}
	}
	where, err := s.access.Scope(OpDelete, caller, plan, selection, args)
	if err != nil {
		return 0, err
	}

	cond, whereArgs := where.clause()
	q := "DELETE FROM " + string(plan.Table) + cond
	if _, ok := plan.Route.(Logo); ok {
		q = "UPDATE " + string(model.Channels) + " SET " + model.ColLogo + "=NULL" + cond
	}
	res, err := sc.tx.ExecContext(ctx, q, whereArgs...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		sc.Notify(u)
	}
	return n, nil
}

// insertRow inserts values into t and returns the new row id.
func insertRow(ctx context.Context, tx *sql.Tx, t model.Table, values model.Values) (int64, error) {
	q := "INSERT INTO " + string(t) + " DEFAULT VALUES"
	keys := values.Keys()
	args := make([]any, len(keys))
	if len(keys) > 0 {
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = quoteIdent(k)
			marks[i] = "?"
			args[i] = values[k]
		}
		q = "INSERT INTO " + string(t) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, tv.ErrStorage.New("failed to insert row into %s", t)
	}
	return id, nil
}

// normalizeGenre clears canonical genres outside the vocabulary and derives
// the canonical genre from the broadcast genre when none is given.
func (s *StoreContext) normalizeGenre(values model.Values) {
	canonical, _ := values.String(model.ColCanonicalGenre)
	if canonical != "" && !genre.AllCanonical(canonical) {
		values.SetNull(model.ColCanonicalGenre)
		canonical = ""
	}
	if canonical != "" {
		return
	}
	broadcast, _ := values.String(model.ColBroadcastGenre)
	if broadcast == "" {
		return
	}
	if mapped := s.genres.Canonicalize(broadcast); mapped != "" {
		values.Set(model.ColCanonicalGenre, mapped)
	}
}

var legacyNumberColumns = [][2]string{
	{model.ColSeasonNumber, model.ColSeasonDisplayNumber},
	{model.ColEpisodeNumber, model.ColEpisodeDisplayNumber},
}

// foldLegacyNumbers moves integer season and episode numbers into the display
// columns unless those are set explicitly.
func foldLegacyNumbers(values model.Values) {
	for _, pair := range legacyNumberColumns {
		legacy, display := pair[0], pair[1]
		if !values.Has(legacy) {
			continue
		}
		if !values.Has(display) {
			if n, ok := values.Int64(legacy); ok {
				values.Set(display, strconv.FormatInt(n, 10))
			} else {
				values.SetNull(display)
			}
		}
		values.Delete(legacy)
	}
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// classify leaves store errors untouched and wraps everything else as a
// storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if tv.ErrNotFound.Has(err) || tv.ErrInvalidArgument.Has(err) ||
		tv.ErrPermissionDenied.Has(err) || tv.ErrUnsupported.Has(err) ||
		tv.ErrStorage.Has(err) || tv.ErrDecode.Has(err) {
		return err
	}
	return tv.ErrStorage.Wrap(err)
}

func tableLabel(u *tv.URI) string {
	r, err := Match(u)
	if err != nil {
		return "unknown"
	}
	switch r := r.(type) {
	case Dir:
		return string(r.Table)
	case Item:
		return string(r.Table)
	case Logo:
		return "logo"
	case Passthrough:
		return "passthrough"
	}
	return "unknown"
}
