package provider

import (
	"strconv"
	"time"

	"tvp-go/internal/genre"
	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// Op is the kind of request being routed.
type Op int

const (
	OpQuery Op = iota
	OpInsert
	OpUpdate
	OpDelete
	OpOpenBlob
)

func (o Op) String() string {
	switch o {
	case OpQuery:
		return "query"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpOpenBlob:
		return "open_blob"
	}
	return "unknown"
}

// Route is a resolved resource identifier. The variants are Dir, Item, Logo
// and Passthrough.
type Route interface {
	route()
}

// Dir addresses every row of a table.
type Dir struct {
	Table model.Table
}

// Item addresses one row of a table.
type Item struct {
	Table model.Table
	ID    int64
}

// Logo addresses the logo blob of a channel.
type Logo struct {
	ChannelID int64
}

// Passthrough addresses the pass-through channel of a TV input.
type Passthrough struct {
	InputID string
}

func (Dir) route()         {}
func (Item) route()        {}
func (Logo) route()        {}
func (Passthrough) route() {}

// Match maps a path to its route variant.
func Match(u *tv.URI) (Route, error) {
	segs := u.Segments
	if len(segs) == 0 {
		return nil, tv.ErrNotFound.New("unknown uri %s", u)
	}

	if segs[0] == tv.PassthroughPath {
		if len(segs) == 2 && segs[1] != "" {
			return Passthrough{InputID: segs[1]}, nil
		}
		return nil, tv.ErrNotFound.New("unknown uri %s", u)
	}

	table, err := model.TableForKind(segs[0])
	if err != nil {
		return nil, tv.ErrNotFound.New("unknown uri %s", u)
	}

	switch {
	case len(segs) == 1:
		return Dir{Table: table}, nil
	case len(segs) == 2:
		id, err := parseID(segs[1], u)
		if err != nil {
			return nil, err
		}
		return Item{Table: table, ID: id}, nil
	case len(segs) == 3 && table == model.Channels && segs[2] == tv.LogoSegment:
		id, err := parseID(segs[1], u)
		if err != nil {
			return nil, err
		}
		return Logo{ChannelID: id}, nil
	}
	return nil, tv.ErrNotFound.New("unknown uri %s", u)
}

func parseID(seg string, u *tv.URI) (int64, error) {
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, tv.ErrInvalidArgument.New("malformed id %q in %s", seg, u)
	}
	return id, nil
}

// Capability is the permission class a route requires.
type Capability int

const (
	CapNone Capability = iota
	CapOwnedEPG
	CapWatchedPrograms
)

// Plan is the routed form of a request: the target, the route's mandatory
// filter and the capability it requires. Access rules are applied on top.
type Plan struct {
	URI        *tv.URI
	Route      Route
	Table      model.Table
	From       string
	Where      Where
	Capability Capability
}

// channelsJoinPrograms is used when channels are filtered by the genre of
// what they currently air.
const channelsJoinPrograms = "channels INNER JOIN programs ON (channels._id=programs.channel_id)"

// Resolve routes op on u. now is the reference time for the current-airing
// genre filter.
func Resolve(op Op, u *tv.URI, now time.Time) (*Plan, error) {
	r, err := Match(u)
	if err != nil {
		return nil, err
	}

	p := &Plan{URI: u, Route: r}
	switch r := r.(type) {
	case Passthrough:
		return nil, tv.ErrUnsupported.New("%s not permitted on %s", op, u)
	case Logo:
		if op != OpDelete && op != OpOpenBlob {
			return nil, tv.ErrUnsupported.New("%s not permitted on %s", op, u)
		}
		p.Table = model.Channels
		p.From = string(model.Channels)
		p.Capability = CapOwnedEPG
		p.Where.Add(model.ColID+"=?", r.ChannelID)
		return p, nil
	case Item:
		if op == OpInsert {
			return nil, tv.ErrUnsupported.New("cannot insert into %s", u)
		}
		p.Table = r.Table
	case Dir:
		p.Table = r.Table
	}
	if op == OpOpenBlob {
		return nil, tv.ErrNotFound.New("no blob at %s", u)
	}

	p.From = string(p.Table)
	p.Capability = CapOwnedEPG
	if p.Table == model.WatchedPrograms {
		p.Capability = CapWatchedPrograms
	}
	if op == OpInsert {
		return p, nil
	}

	if pkg, ok := u.Param(tv.ParamPackage); ok {
		p.Where.Add(p.columnPrefix()+model.ColPackageName+"=?", pkg)
	}

	var err2 error
	switch p.Table {
	case model.Channels:
		err2 = p.channelFilters(op, now)
	case model.Programs:
		err2 = p.programFilters()
	case model.WatchedPrograms:
		p.addIDFilter()
		p.Where.Add(model.ColConsolidated+"=?", 1)
	case model.RecordedPrograms, model.PreviewPrograms:
		p.addIDFilter()
		err2 = p.channelParam()
	case model.WatchNextPrograms:
		p.addIDFilter()
	}
	if err2 != nil {
		return nil, err2
	}
	return p, nil
}

// columnPrefix qualifies columns on the channel directory, which may be a join.
func (p *Plan) columnPrefix() string {
	if d, ok := p.Route.(Dir); ok && d.Table == model.Channels {
		return string(model.Channels) + "."
	}
	return ""
}

func (p *Plan) addIDFilter() {
	if it, ok := p.Route.(Item); ok {
		p.Where.Add(model.ColID+"=?", it.ID)
	}
}

func (p *Plan) channelFilters(op Op, now time.Time) error {
	if it, ok := p.Route.(Item); ok {
		p.Where.Add(model.ColID+"=?", it.ID)
		return nil
	}

	u := p.URI
	if g, ok := u.Param(tv.ParamCanonicalGenre); ok {
		if op != OpQuery {
			return tv.ErrPermissionDenied.New("%s not allowed for %s", op, u)
		}
		if !genre.IsCanonical(g) {
			return tv.ErrInvalidArgument.New("not a canonical genre: %q", g)
		}
		p.From = channelsJoinPrograms
		ms := now.UnixMilli()
		p.Where.Add("LIKE(?, "+model.ColCanonicalGenre+") AND "+
			model.ColStartTime+"<=? AND "+model.ColEndTime+">=?",
			"%"+g+"%", ms, ms)
	}
	if input, ok := u.Param(tv.ParamInput); ok {
		p.Where.Add(model.ColInputID+"=?", input)
	}
	if u.BoolParam(tv.ParamBrowsableOnly) {
		p.Where.Add(model.ColBrowsable + "=1")
	}
	if preview, ok := u.Param(tv.ParamPreview); ok {
		cmp := "!=?"
		if preview == "true" {
			cmp = "=?"
		}
		p.Where.Add(model.ColType+cmp, model.ChannelTypePreview)
	}
	return nil
}

func (p *Plan) programFilters() error {
	if it, ok := p.Route.(Item); ok {
		p.Where.Add(model.ColID+"=?", it.ID)
		return nil
	}
	if err := p.channelParam(); err != nil {
		return err
	}

	u := p.URI
	start, hasStart := u.Param(tv.ParamStartTime)
	end, hasEnd := u.Param(tv.ParamEndTime)
	if !hasStart || !hasEnd {
		return nil
	}
	startMs, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return tv.ErrInvalidArgument.New("malformed %s %q", tv.ParamStartTime, start)
	}
	endMs, err := strconv.ParseInt(end, 10, 64)
	if err != nil {
		return tv.ErrInvalidArgument.New("malformed %s %q", tv.ParamEndTime, end)
	}
	p.Where.Add(model.ColStartTime+"<=? AND "+model.ColEndTime+">=? AND ?<=?",
		endMs, startMs, startMs, endMs)
	return nil
}

func (p *Plan) channelParam() error {
	v, ok := p.URI.Param(tv.ParamChannel)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return tv.ErrInvalidArgument.New("malformed %s %q", tv.ParamChannel, v)
	}
	p.Where.Add(model.ColChannelID+"=?", id)
	return nil
}

// ContentType returns the content kind of the resource at u.
func ContentType(u *tv.URI) (string, error) {
	r, err := Match(u)
	if err != nil {
		return "", err
	}
	switch r := r.(type) {
	case Dir:
		return "vnd.android.cursor.dir/" + r.Table.Kind(), nil
	case Item:
		return "vnd.android.cursor.item/" + r.Table.Kind(), nil
	case Logo:
		return "image/png", nil
	case Passthrough:
		return "vnd.android.cursor.item/" + model.Channels.Kind(), nil
	}
	return "", tv.ErrNotFound.New("unknown uri %s", u)
}
