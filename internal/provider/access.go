package provider

import (
	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// Enforcer applies caller capabilities to routed plans and attribute bags.
type Enforcer struct {
	blocked *BlockList
}

func NewEnforcer(blocked *BlockList) *Enforcer {
	return &Enforcer{blocked: blocked}
}

// RequireCapability fails when the caller lacks the permission the plan's
// route demands.
func (e *Enforcer) RequireCapability(caller tv.Caller, p *Plan) error {
	if p.Capability == CapWatchedPrograms && !caller.Has(tv.PermWatchedPrograms) {
		return tv.ErrPermissionDenied.New("%s requires %s", caller, tv.PermWatchedPrograms)
	}
	return nil
}

// Scope builds the effective filter of a query, update or delete: the
// ownership predicate, the route filter and the caller's selection.
func (e *Enforcer) Scope(op Op, caller tv.Caller, p *Plan, selection string, args []any) (Where, error) {
	var w Where
	if err := e.RequireCapability(caller, p); err != nil {
		return w, err
	}

	if !caller.Has(tv.PermAllEPGData) && p.Table != model.WatchedPrograms {
		if selection != "" {
			return w, tv.ErrPermissionDenied.New("selection not allowed for %s", p.URI)
		}
		w.Append(e.ownership(op, caller, p.columnPrefix()))
	}
	w.Append(p.Where)
	if selection != "" {
		w.Add(selection, args...)
	}
	return w, nil
}

func (e *Enforcer) ownership(op Op, caller tv.Caller, prefix string) Where {
	var w Where
	if (op == OpQuery || op == OpOpenBlob) && caller.Has(tv.PermReadTVListings) {
		w.Add(prefix+model.ColPackageName+"=? OR "+prefix+model.ColSearchable+"=?", caller.Package, 1)
	} else {
		w.Add(prefix+model.ColPackageName+"=?", caller.Package)
	}
	return w
}

// LogoScope is the filter selecting the logo row of a channel. Reads and
// writes share it.
func (e *Enforcer) LogoScope(caller tv.Caller, channelID int64) Where {
	var w Where
	w.Add(model.ColID+"=?", channelID)
	if !caller.Has(tv.PermAllEPGData) {
		w.Append(e.ownership(OpOpenBlob, caller, ""))
	}
	return w
}

// CheckUpdateIdentity refuses updates that would move a row to another id or
// another owner.
func (e *Enforcer) CheckUpdateIdentity(caller tv.Caller, r Route, values model.Values) error {
	if values.Has(model.ColID) {
		it, ok := r.(Item)
		id, valid := values.Int64(model.ColID)
		if !ok || !valid || id != it.ID {
			return tv.ErrInvalidArgument.New("updating %s is not allowed", model.ColID)
		}
	}
	if values.Has(model.ColPackageName) && !caller.Has(tv.PermAllEPGData) {
		pkg, _ := values.String(model.ColPackageName)
		if pkg != caller.Package {
			return tv.ErrPermissionDenied.New("%s cannot set %s to %q", caller, model.ColPackageName, pkg)
		}
	}
	return nil
}

// CheckChannelColumns guards the browsable and locked flags of channels.
func (e *Enforcer) CheckChannelColumns(caller tv.Caller, values model.Values) error {
	if values.Has(model.ColBrowsable) && !caller.Has(tv.PermAllEPGData) {
		return tv.ErrPermissionDenied.New("%s cannot set %s", caller, model.ColBrowsable)
	}
	if values.Has(model.ColLocked) && !caller.Has(tv.PermModifyParentalControls) {
		return tv.ErrPermissionDenied.New("%s cannot set %s", caller, model.ColLocked)
	}
	return nil
}

// CheckRecommendationColumns guards the browsable flag of preview and
// watch-next programs.
func (e *Enforcer) CheckRecommendationColumns(caller tv.Caller, values model.Values) error {
	if values.Has(model.ColBrowsable) && !caller.Has(tv.PermAllEPGData) {
		return tv.ErrPermissionDenied.New("%s cannot set %s", caller, model.ColBrowsable)
	}
	return nil
}

// CheckNotBlocked refuses callers on the block list.
func (e *Enforcer) CheckNotBlocked(caller tv.Caller) error {
	if e.blocked.Contains(caller.Package) {
		return tv.ErrPermissionDenied.New("package %s is blocked", caller.Package)
	}
	return nil
}
