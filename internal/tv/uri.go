package tv

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// Scheme and Authority form the prefix of every canonical identifier.
	Scheme    = "content"
	Authority = "tv"
)

// Query parameters understood by the router.
const (
	ParamPackage        = "package"
	ParamCanonicalGenre = "canonical_genre"
	ParamInput          = "input"
	ParamBrowsableOnly  = "browsable_only"
	ParamPreview        = "preview"
	ParamChannel        = "channel"
	ParamStartTime      = "start_time"
	ParamEndTime        = "end_time"
)

// URI is a hierarchical resource identifier: path segments plus query parameters.
type URI struct {
	Segments []string
	Params   url.Values
}

// ParseURI accepts both the full form "content://tv/channel/1?browsable_only=true"
// and the bare path form "channel/1?browsable_only=true".
func ParseURI(raw string) (*URI, error) {
	raw = strings.TrimSpace(raw)
	prefix := Scheme + "://"
	if strings.HasPrefix(raw, prefix) {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, ErrInvalidArgument.New("malformed uri %q: %v", raw, err)
		}
		if u.Host != Authority {
			return nil, ErrNotFound.New("unknown authority %q", u.Host)
		}
		return newURI(u.EscapedPath(), u.RawQuery, raw)
	}

	path, query, _ := strings.Cut(raw, "?")
	return newURI(path, query, raw)
}

func newURI(escapedPath, rawQuery, raw string) (*URI, error) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, ErrInvalidArgument.New("malformed query in %q: %v", raw, err)
	}
	var segments []string
	for _, s := range strings.Split(escapedPath, "/") {
		if s == "" {
			continue
		}
		seg, err := url.PathUnescape(s)
		if err != nil {
			return nil, ErrInvalidArgument.New("malformed path segment in %q: %v", raw, err)
		}
		segments = append(segments, seg)
	}
	return &URI{Segments: segments, Params: params}, nil
}

// MustParseURI is ParseURI for identifiers known to be valid.
func MustParseURI(raw string) *URI {
	u, err := ParseURI(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Path returns the segments joined by slashes, without escaping.
func (u *URI) Path() string {
	return strings.Join(u.Segments, "/")
}

// LastSegment returns the final path segment, or "" for an empty path.
func (u *URI) LastSegment() string {
	if len(u.Segments) == 0 {
		return ""
	}
	return u.Segments[len(u.Segments)-1]
}

// Param returns the first value of a query parameter and whether it was present.
func (u *URI) Param(name string) (string, bool) {
	if u.Params == nil {
		return "", false
	}
	vs, ok := u.Params[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// BoolParam treats a present parameter as true unless it is "false" or "0".
func (u *URI) BoolParam(name string) bool {
	v, ok := u.Param(name)
	if !ok {
		return false
	}
	v = strings.ToLower(v)
	return v != "false" && v != "0"
}

// Canonical returns the identifier with its query parameters removed.
// Change notifications are always delivered for the canonical form.
func (u *URI) Canonical() *URI {
	return &URI{Segments: append([]string(nil), u.Segments...)}
}

func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(Scheme + "://" + Authority)
	for _, s := range u.Segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if len(u.Params) > 0 {
		b.WriteByte('?')
		b.WriteString(u.Params.Encode())
	}
	return b.String()
}

// WithParam returns a copy of u with name set to value.
func (u *URI) WithParam(name, value string) *URI {
	c := &URI{Segments: append([]string(nil), u.Segments...), Params: url.Values{}}
	for k, vs := range u.Params {
		c.Params[k] = append([]string(nil), vs...)
	}
	c.Params.Set(name, value)
	return c
}

// Collection paths.
const (
	ChannelPath          = "channel"
	ProgramPath          = "program"
	WatchedProgramPath   = "watched_program"
	RecordedProgramPath  = "recorded_program"
	PreviewProgramPath   = "preview_program"
	WatchNextProgramPath = "watch_next_program"
	PassthroughPath      = "passthrough"
	LogoSegment          = "logo"
)

// CollectionURI addresses every row behind path.
func CollectionURI(path string) *URI {
	return &URI{Segments: []string{path}}
}

// ItemURI addresses one row behind path.
func ItemURI(path string, id int64) *URI {
	return &URI{Segments: []string{path, strconv.FormatInt(id, 10)}}
}

func ChannelURI(id int64) *URI          { return ItemURI(ChannelPath, id) }
func ProgramURI(id int64) *URI          { return ItemURI(ProgramPath, id) }
func WatchedProgramURI(id int64) *URI   { return ItemURI(WatchedProgramPath, id) }
func RecordedProgramURI(id int64) *URI  { return ItemURI(RecordedProgramPath, id) }
func PreviewProgramURI(id int64) *URI   { return ItemURI(PreviewProgramPath, id) }
func WatchNextProgramURI(id int64) *URI { return ItemURI(WatchNextProgramPath, id) }

// ChannelLogoURI addresses the logo blob of a channel.
func ChannelLogoURI(id int64) *URI {
	return &URI{Segments: []string{ChannelPath, strconv.FormatInt(id, 10), LogoSegment}}
}

// PassthroughURI addresses the pass-through channel of an input.
func PassthroughURI(inputID string) *URI {
	return &URI{Segments: []string{PassthroughPath, inputID}}
}
