package provider

import (
	"context"
	"sync"

	"tvp-go/internal/database"
	"tvp-go/internal/database/migrations"
	"tvp-go/internal/genre"
	"tvp-go/internal/tv"
)

// Options configures a StoreContext. Zero fields get working defaults except
// DB, which is required.
type Options struct {
	DB              *database.DB
	Notifier        tv.Notifier
	Logger          tv.Logger
	Clock           tv.Clock
	IDs             tv.IDGenerator
	Genres          *genre.Mapper
	Metrics         *Metrics
	BlockedPackages []string
	Logo            LogoOptions
}

// StoreContext is the access-controlled store. One is built per process and
// shared by every caller; it is safe for concurrent use.
type StoreContext struct {
	db       *database.DB
	notifier tv.Notifier
	log      tv.Logger
	clock    tv.Clock
	ids      tv.IDGenerator
	genres   *genre.Mapper
	metrics  *Metrics
	registry *Registry
	blocked  *BlockList
	access   *Enforcer
	logos    *LogoPool

	initialBlocked []string

	mu          sync.Mutex
	initialized bool
	initErr     error
}

func NewStoreContext(opts Options) *StoreContext {
	s := &StoreContext{
		db:             opts.DB,
		notifier:       opts.Notifier,
		log:            opts.Logger,
		clock:          opts.Clock,
		ids:            opts.IDs,
		genres:         opts.Genres,
		metrics:        opts.Metrics,
		registry:       NewRegistry(),
		blocked:        NewBlockList(),
		initialBlocked: opts.BlockedPackages,
	}
	if s.notifier == nil {
		s.notifier = tv.NotifierFunc(func(context.Context, string) error { return nil })
	}
	if s.log == nil {
		s.log = tv.NewNopLogger()
	}
	if s.clock == nil {
		s.clock = tv.RealClock{}
	}
	if s.ids == nil {
		s.ids = tv.UUIDGenerator{}
	}
	if s.genres == nil {
		s.genres = genre.DefaultMapper()
	}
	s.access = NewEnforcer(s.blocked)
	s.logos = NewLogoPool(opts.Logo.withDefaults(), s.storeLogo, s.log)
	return s
}

// Init migrates the schema, probes the live columns and loads the block list.
// It runs once; later calls return the first result.
func (s *StoreContext) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return s.initErr
	}
	s.initialized = true
	s.initErr = s.init(ctx)
	if s.initErr != nil {
		s.log.Error("store initialization failed", "error", s.initErr)
	}
	return s.initErr
}

func (s *StoreContext) init(ctx context.Context) error {
	if err := migrations.MigrateUp(s.db.Writer, s.log); err != nil {
		return tv.ErrStorage.Wrap(err)
	}
	if err := s.registry.Probe(ctx, s.db.Reader); err != nil {
		return err
	}
	s.blocked.Load(s.initialBlocked)
	s.logos.Start()
	s.log.Debug("store initialized", "path", s.db.Path(), "blocked", len(s.initialBlocked))
	return nil
}

// Close stops the logo workers. Pending logo tasks complete with an error.
// The database is owned by the caller.
func (s *StoreContext) Close() error {
	return s.logos.Close()
}

// Registry returns the projection registry.
func (s *StoreContext) Registry() *Registry {
	return s.registry
}

// BlockList returns the block list consulted on recommendation writes.
func (s *StoreContext) BlockList() *BlockList {
	return s.blocked
}

// DB returns the underlying store.
func (s *StoreContext) DB() *database.DB {
	return s.db
}

// flush delivers the pending notifications of a committed scope.
func (s *StoreContext) flush(ctx context.Context, sc *TransactionScope) {
	for _, uri := range sc.pending() {
		if err := s.notifier.Notify(ctx, uri); err != nil {
			s.log.Warn("change notification failed", "uri", uri, "error", err)
			continue
		}
		s.metrics.observeNotification()
	}
}
