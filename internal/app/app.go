package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"tvp-go/internal/config"
	"tvp-go/internal/database"
	"tvp-go/internal/database/migrations"
	"tvp-go/internal/encryption"
	"tvp-go/internal/model"
	"tvp-go/internal/notify"
	"tvp-go/internal/provider"
	"tvp-go/internal/snapshot"
	"tvp-go/internal/tv"
	"tvp-go/internal/vault"
)

// TVApp is the application layer between the CLI and the listings store.
// It constructs all dependencies from config, issues every request as one
// caller, and manages the store lifecycle on Close.
type TVApp struct {
	cfg      *config.Config
	db       *database.DB
	store    *provider.StoreContext
	notifier tv.Notifier
	registry *prometheus.Registry
	caller   tv.Caller
	op       *Operation
	clock    tv.Clock
	log      tv.Logger
	logFile  *os.File

	// Built on first use; most commands never touch a vault.
	vault     tv.Vault
	encryptor tv.Encryptor
}

// NewTVApp creates a fully wired TVApp from the given config.
// op identifies the CLI command being run; its ID tags the log lines.
// verbose copies debug output to stderr. The caller must call Close when done.
func NewTVApp(cfg *config.Config, op *Operation, caller tv.Caller, verbose bool) (*TVApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logFile, err := newLogger(cfg.LogDir, op.ID, verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	notifier, err := notify.NewNotifierFromConfig(cfg.Notify, log)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	registry := prometheus.NewRegistry()
	store := provider.NewStoreContext(provider.Options{
		DB:              db,
		Notifier:        notifier,
		Logger:          log,
		Metrics:         provider.NewMetrics(registry),
		BlockedPackages: cfg.Access.BlockedPackages,
		Logo: provider.LogoOptions{
			MaxSize:    cfg.Logo.MaxSize,
			Workers:    cfg.Logo.Workers,
			QueueSize:  cfg.Logo.QueueSize,
			PipeBuffer: cfg.Logo.PipeBuffer,
		},
	})

	log.Debug("operation started", "command", op.Command, "args", op.Arguments, "caller", caller.String())
	return &TVApp{
		cfg:      cfg,
		db:       db,
		store:    store,
		notifier: notifier,
		registry: registry,
		caller:   caller,
		op:       op,
		clock:    tv.RealClock{},
		log:      log,
		logFile:  logFile,
	}, nil
}

// ResolveCaller builds the caller the app acts as. A non-empty pkg or perms
// replaces the configured value.
func ResolveCaller(cfg config.CallerConfig, pkg string, perms []string) (tv.Caller, error) {
	if pkg == "" {
		pkg = cfg.Package
	}
	if pkg == "" {
		return tv.Caller{}, fmt.Errorf("no caller package configured; set [caller] package or pass --package")
	}
	if len(perms) == 0 {
		perms = cfg.Permissions
	}
	set, err := tv.ParsePermissions(perms)
	if err != nil {
		return tv.Caller{}, err
	}
	return tv.Caller{Package: pkg, Permissions: set}, nil
}

// Config returns the app's configuration. Block list changes are reflected
// in it so the CLI can save them.
func (a *TVApp) Config() *config.Config { return a.cfg }

// Caller returns the identity requests are issued as.
func (a *TVApp) Caller() tv.Caller { return a.caller }

// Operation returns the record of the running command.
func (a *TVApp) Operation() *Operation { return a.op }

// Store returns the underlying store.
func (a *TVApp) Store() *provider.StoreContext { return a.store }

// track marks the operation failed on err and mutating on success.
func (a *TVApp) track(err error, mutating bool) {
	if err != nil {
		a.op.Fail()
		return
	}
	if mutating {
		a.op.Mutating = true
	}
}

// Migrate brings the schema up to date.
func (a *TVApp) Migrate(ctx context.Context) error {
	err := a.store.Init(ctx)
	a.track(err, true)
	return err
}

// MigrationStatus reports whether the schema is current without changing it.
func (a *TVApp) MigrationStatus() error {
	return migrations.CheckDBMigrationStatus(a.db.Writer)
}

// Schema describes the live schema after migrating it.
func (a *TVApp) Schema(ctx context.Context) (string, error) {
	if err := a.store.Init(ctx); err != nil {
		a.track(err, false)
		return "", err
	}
	s, err := migrations.Describe(a.db.Reader)
	if err != nil {
		return "", fmt.Errorf("describing schema: %w", err)
	}
	return s.String(), nil
}

// Query returns the rows at rawURI.
func (a *TVApp) Query(ctx context.Context, rawURI string, opts provider.QueryOptions) (*provider.Cursor, error) {
	u, err := tv.ParseURI(rawURI)
	if err != nil {
		return nil, err
	}
	c, err := a.store.Query(ctx, a.caller, u, opts)
	a.track(err, false)
	return c, err
}

// Insert adds a row at rawURI. A nil URI with a nil error means the row was
// accepted and dropped.
func (a *TVApp) Insert(ctx context.Context, rawURI string, values model.Values) (*tv.URI, error) {
	u, err := tv.ParseURI(rawURI)
	if err != nil {
		return nil, err
	}
	out, err := a.store.Insert(ctx, a.caller, u, values)
	a.track(err, out != nil)
	return out, err
}

// Update changes the rows at rawURI and returns how many changed.
func (a *TVApp) Update(ctx context.Context, rawURI string, values model.Values, selection string, args ...any) (int64, error) {
	u, err := tv.ParseURI(rawURI)
	if err != nil {
		return 0, err
	}
	n, err := a.store.Update(ctx, a.caller, u, values, selection, args...)
	a.track(err, n > 0)
	return n, err
}

// Delete removes the rows at rawURI and returns how many were removed.
func (a *TVApp) Delete(ctx context.Context, rawURI string, selection string, args ...any) (int64, error) {
	u, err := tv.ParseURI(rawURI)
	if err != nil {
		return 0, err
	}
	n, err := a.store.Delete(ctx, a.caller, u, selection, args...)
	a.track(err, n > 0)
	return n, err
}

// ApplyBatch runs the YAML batch read from r in one transaction.
func (a *TVApp) ApplyBatch(ctx context.Context, r io.Reader) ([]provider.Result, error) {
	ops, err := ReadBatch(r)
	if err != nil {
		return nil, err
	}
	results, err := a.store.ApplyBatch(ctx, a.caller, ops)
	a.track(err, len(results) > 0)
	return results, err
}

// ReadLogo copies the logo of a channel to w and returns its size.
func (a *TVApp) ReadLogo(ctx context.Context, channelID int64, w io.Writer) (int64, error) {
	rc, err := a.store.ReadLogo(ctx, a.caller, tv.ChannelLogoURI(channelID))
	if err != nil {
		a.track(err, false)
		return 0, err
	}
	defer rc.Close()
	return io.Copy(w, rc)
}

// WriteLogo streams an image from r to the logo of a channel and waits until
// it has been stored.
func (a *TVApp) WriteLogo(ctx context.Context, channelID int64, r io.Reader) error {
	err := a.writeLogo(ctx, channelID, r)
	a.track(err, true)
	return err
}

func (a *TVApp) writeLogo(ctx context.Context, channelID int64, r io.Reader) error {
	w, task, err := a.store.WriteLogo(ctx, a.caller, tv.ChannelLogoURI(channelID))
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.CloseWithError(err)
		task.Wait(ctx)
		return fmt.Errorf("streaming logo: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing logo stream: %w", err)
	}
	return task.Wait(ctx)
}

// Block adds pkg to the block list and the config. It reports whether pkg
// was newly blocked.
func (a *TVApp) Block(ctx context.Context, pkg string) (bool, error) {
	if err := a.store.Init(ctx); err != nil {
		return false, err
	}
	added := a.store.BlockList().Add(pkg)
	a.cfg.Access.BlockedPackages = a.store.BlockList().List()
	return added, nil
}

// Unblock removes pkg from the block list and the config. It reports whether
// pkg was blocked.
func (a *TVApp) Unblock(ctx context.Context, pkg string) (bool, error) {
	if err := a.store.Init(ctx); err != nil {
		return false, err
	}
	removed := a.store.BlockList().Remove(pkg)
	a.cfg.Access.BlockedPackages = a.store.BlockList().List()
	return removed, nil
}

// Blocked lists the blocked packages.
func (a *TVApp) Blocked(ctx context.Context) ([]string, error) {
	if err := a.store.Init(ctx); err != nil {
		return nil, err
	}
	return a.store.BlockList().List(), nil
}

func (a *TVApp) snapshots() (*snapshot.Service, error) {
	if len(a.cfg.Vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}
	if a.vault == nil {
		v, err := vault.NewVaultFromConfig(a.cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
		a.vault = v
	}
	if a.encryptor == nil {
		enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
		if err != nil {
			return nil, fmt.Errorf("creating encryptor: %w", err)
		}
		a.encryptor = enc
	}
	return snapshot.NewService(a.db, a.vault, a.encryptor, a.cfg.HostID, a.log), nil
}

// PushSnapshot stores an encrypted snapshot of the store in the first vault
// and returns its version.
func (a *TVApp) PushSnapshot(ctx context.Context) (int64, error) {
	svc, err := a.snapshots()
	if err != nil {
		return 0, err
	}
	if !a.encryptor.IsConfigured() {
		return 0, fmt.Errorf("encryption keys are not set up; run tvp config init")
	}
	if err := a.store.Init(ctx); err != nil {
		return 0, err
	}
	return svc.Push(ctx)
}

// PullSnapshot decrypts the latest snapshot to dest and returns its version.
func (a *TVApp) PullSnapshot(ctx context.Context, passphrase, dest string) (int64, error) {
	svc, err := a.snapshots()
	if err != nil {
		return 0, err
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return 0, fmt.Errorf("unlocking private key: %w", err)
	}
	return svc.Pull(ctx, dc, dest)
}

// SnapshotVersion returns the version of the stored snapshot, 0 if none.
func (a *TVApp) SnapshotVersion() (int64, error) {
	svc, err := a.snapshots()
	if err != nil {
		return 0, err
	}
	return svc.RemoteVersion()
}

// WriteMetrics writes the counters collected so far in the Prometheus text
// format.
func (a *TVApp) WriteMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// Close finalizes the operation and closes all resources.
// When auto_snapshot is set and the command changed the store, a snapshot is
// pushed before the database closes.
func (a *TVApp) Close() error {
	var firstErr error

	if a.op.Mutating && a.op.Status == "success" && a.cfg.AutoSnapshot {
		if version, err := a.PushSnapshot(context.Background()); err != nil {
			firstErr = fmt.Errorf("pushing snapshot: %w", err)
		} else {
			a.log.Info("automatic snapshot pushed", "version", version)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stopping logo workers: %w", err)
	}
	if c, ok := a.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing notifier: %w", err)
		}
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.log.Info("operation finished",
		"command", a.op.Command,
		"status", a.op.Status,
		"mutating", a.op.Mutating,
		"elapsed", a.op.Elapsed(a.clock.Now()))
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
