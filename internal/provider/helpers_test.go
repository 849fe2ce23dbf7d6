package provider_test

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"tvp-go/internal/database"
	"tvp-go/internal/model"
	"tvp-go/internal/notify"
	"tvp-go/internal/provider"
	"tvp-go/internal/testutil"
	"tvp-go/internal/tv"
)

var (
	tuner   = tv.NewCaller("com.example.tuner")
	guide   = tv.NewCaller("com.example.guide", tv.PermReadTVListings)
	nobody  = tv.NewCaller("com.example.nobody")
	system  = tv.NewCaller("com.android.tv", tv.PermAllEPGData, tv.PermWatchedPrograms, tv.PermModifyParentalControls)
	watcher = tv.NewCaller("com.android.tv.watcher", tv.PermWatchedPrograms)
)

type fixture struct {
	store *provider.StoreContext
	notes *notify.Memory
	clock *testutil.StubClock
	reg   *prometheus.Registry
}

func newFixture(t *testing.T, opts ...func(*provider.Options)) *fixture {
	t.Helper()
	f := &fixture{
		notes: notify.NewMemory(),
		clock: testutil.FixedClock(),
		reg:   prometheus.NewRegistry(),
	}
	o := provider.Options{
		DB:       testutil.NewTestDatabase(t),
		Notifier: f.notes,
		Clock:    f.clock,
		IDs:      testutil.NewStubIDGenerator(),
		Metrics:  provider.NewMetrics(f.reg),
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.store = provider.NewStoreContext(o)
	t.Cleanup(func() { f.store.Close() })
	require.NoError(t, f.store.Init(context.Background()))
	return f
}

func (f *fixture) insert(t *testing.T, caller tv.Caller, path string, values model.Values) *tv.URI {
	t.Helper()
	u, err := f.store.Insert(context.Background(), caller, tv.MustParseURI(path), values)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (f *fixture) query(t *testing.T, caller tv.Caller, path string, opts provider.QueryOptions) *provider.Cursor {
	t.Helper()
	c, err := f.store.Query(context.Background(), caller, tv.MustParseURI(path), opts)
	require.NoError(t, err)
	return c
}

// addChannel inserts a channel owned by caller and returns its id.
func (f *fixture) addChannel(t *testing.T, caller tv.Caller, values model.Values) int64 {
	t.Helper()
	if values == nil {
		values = model.Values{}
	}
	if !values.Has(model.ColInputID) {
		values.Set(model.ColInputID, "com.example.tuner/.Input")
	}
	return idOf(t, f.insert(t, caller, "channel", values))
}

func idOf(t *testing.T, u *tv.URI) int64 {
	t.Helper()
	id, err := strconv.ParseInt(u.LastSegment(), 10, 64)
	require.NoError(t, err)
	return id
}

func path(kind string, id int64) string {
	return kind + "/" + strconv.FormatInt(id, 10)
}

// newFileStore returns an uninitialized store backed by a sqlite file.
func newFileStore(t *testing.T, o provider.Options) *provider.StoreContext {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "tvp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	o.DB = db
	store := provider.NewStoreContext(o)
	t.Cleanup(func() { store.Close() })
	return store
}

// recordingLogger keeps every message logged through it.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }

func (l *recordingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.msgs {
		if m == msg {
			n++
		}
	}
	return n
}
