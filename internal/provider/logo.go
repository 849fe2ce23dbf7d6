package provider

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	_ "image/gif"  // logo decoder
	_ "image/jpeg" // logo decoder
	"image/png"
	"io"
	"sync"

	_ "golang.org/x/image/bmp" // logo decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // logo decoder
	"golang.org/x/sync/errgroup"

	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

// ErrPoolClosed completes logo tasks that were pending when the pool closed.
var ErrPoolClosed = errors.New("logo pool closed")

// LogoOptions sizes the logo worker pool.
type LogoOptions struct {
	MaxSize    int // Longest side of a stored logo, in pixels
	Workers    int
	QueueSize  int
	PipeBuffer int // Bytes buffered by a LogoWriter before writes block
}

const (
	defaultLogoMaxSize    = 256
	defaultLogoWorkers    = 4
	defaultLogoQueueSize  = 16
	defaultLogoPipeBuffer = 32 * 1024
)

func (o LogoOptions) withDefaults() LogoOptions {
	if o.MaxSize <= 0 {
		o.MaxSize = defaultLogoMaxSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultLogoWorkers
	}
	if o.QueueSize < 0 {
		o.QueueSize = 0
	} else if o.QueueSize == 0 {
		o.QueueSize = defaultLogoQueueSize
	}
	if o.PipeBuffer <= 0 {
		o.PipeBuffer = defaultLogoPipeBuffer
	}
	return o
}

// LogoTask is the background half of a logo write.
type LogoTask struct {
	ChannelID int64

	caller tv.Caller
	r      *logoStream
	done   chan struct{}
	once   sync.Once
	err    error
}

func (t *LogoTask) complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Done is closed once the task has finished.
func (t *LogoTask) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's result. It is nil until Done is closed.
func (t *LogoTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *LogoTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// logoStream is a bounded in-memory pipe between a LogoWriter and the worker
// that consumes it. Writes block only while limit bytes are buffered; reads
// block while the buffer is empty and the writer is still open.
type logoStream struct {
	mu    sync.Mutex
	cond  *sync.Cond
	buf   []byte
	limit int

	writeDone bool
	writeErr  error // abort reason handed to the reader
	readErr   error // set once the reader is gone
}

func newLogoStream(limit int) *logoStream {
	s := &logoStream{limit: limit, buf: make([]byte, 0, limit)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *logoStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for len(p) > 0 {
		for len(s.buf) >= s.limit && s.readErr == nil && !s.writeDone {
			s.cond.Wait()
		}
		if s.readErr != nil {
			return n, s.readErr
		}
		if s.writeDone {
			return n, io.ErrClosedPipe
		}
		k := min(len(p), s.limit-len(s.buf))
		s.buf = append(s.buf, p[:k]...)
		p = p[k:]
		n += k
		s.cond.Broadcast()
	}
	return n, nil
}

func (s *logoStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 {
		switch {
		case s.readErr != nil:
			return 0, s.readErr
		case s.writeErr != nil:
			return 0, s.writeErr
		case s.writeDone:
			return 0, io.EOF
		}
		s.cond.Wait()
	}
	n := copy(p, s.buf)
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
	s.cond.Broadcast()
	return n, nil
}

// closeWrite ends the stream. A non-nil err discards buffered bytes and is
// returned to the reader instead of io.EOF.
func (s *logoStream) closeWrite(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeDone {
		return nil
	}
	s.writeDone = true
	if err != nil {
		s.writeErr = err
		s.buf = s.buf[:0]
	}
	s.cond.Broadcast()
	return nil
}

// closeRead releases a blocked writer, which gets err or io.ErrClosedPipe.
func (s *logoStream) closeRead(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return
	}
	if err == nil {
		err = io.ErrClosedPipe
	}
	s.readErr = err
	s.buf = s.buf[:0]
	s.cond.Broadcast()
}

// LogoWriter is the write end of a logo stream. Writes block once the buffer
// is full and the worker has not caught up. Close ends the stream without
// waiting for a worker.
type LogoWriter struct {
	s *logoStream
}

func (w *LogoWriter) Write(p []byte) (int, error) {
	return w.s.Write(p)
}

// Close signals end of stream. Buffered bytes stay available to the worker.
func (w *LogoWriter) Close() error {
	return w.s.closeWrite(nil)
}

// CloseWithError abandons the stream; the task completes without storing.
func (w *LogoWriter) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	return w.s.closeWrite(err)
}

// LogoPool runs logo tasks on a fixed set of workers.
type LogoPool struct {
	opts    LogoOptions
	process func(context.Context, *LogoTask) error
	log     tv.Logger
	tasks   chan *LogoTask

	mu      sync.Mutex
	started bool
	closed  bool
	pending map[*LogoTask]struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewLogoPool returns a stopped pool that hands each task to process.
func NewLogoPool(opts LogoOptions, process func(context.Context, *LogoTask) error, log tv.Logger) *LogoPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &LogoPool{
		opts:    opts,
		process: process,
		log:     log,
		tasks:   make(chan *LogoTask, opts.QueueSize),
		pending: make(map[*LogoTask]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it again has no effect.
func (p *LogoPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	g, ctx := errgroup.WithContext(p.ctx)
	p.group = g
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case t := <-p.tasks:
					p.run(ctx, t)
				}
			}
		})
	}
}

func (p *LogoPool) run(ctx context.Context, t *LogoTask) {
	err := p.process(ctx, t)
	p.mu.Lock()
	delete(p.pending, t)
	p.mu.Unlock()
	t.complete(err)
}

// Submit queues t. It blocks while the queue is full.
func (p *LogoPool) Submit(ctx context.Context, t *LogoTask) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.pending[t] = struct{}{}
	p.mu.Unlock()

	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		p.drop(t)
		return ctx.Err()
	case <-p.ctx.Done():
		p.drop(t)
		return ErrPoolClosed
	}
}

func (p *LogoPool) drop(t *LogoTask) {
	p.mu.Lock()
	delete(p.pending, t)
	p.mu.Unlock()
}

// Close stops the workers. Streams still in flight are broken and their
// tasks complete with ErrPoolClosed.
func (p *LogoPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pending := make([]*LogoTask, 0, len(p.pending))
	for t := range p.pending {
		pending = append(pending, t)
	}
	g := p.group
	p.mu.Unlock()

	p.cancel()
	for _, t := range pending {
		t.r.closeRead(ErrPoolClosed)
	}
	var err error
	if g != nil {
		err = g.Wait()
	}
	for _, t := range pending {
		t.complete(ErrPoolClosed)
	}
	return err
}

// ReadLogo streams the stored logo of the channel at u.
func (s *StoreContext) ReadLogo(ctx context.Context, caller tv.Caller, u *tv.URI) (rc io.ReadCloser, err error) {
	defer func() { s.metrics.observeOperation("logo", OpOpenBlob, err) }()
	if err = s.Init(ctx); err != nil {
		return nil, err
	}
	id, err := logoChannel(u)
	if err != nil {
		return nil, err
	}

	cond, args := s.access.LogoScope(caller, id).clause()
	var logo []byte
	err = s.db.Reader.QueryRowContext(ctx,
		"SELECT "+model.ColLogo+" FROM "+string(model.Channels)+cond, args...).Scan(&logo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tv.ErrNotFound.New("no visible channel %d", id)
	}
	if err != nil {
		return nil, tv.ErrStorage.Wrap(err)
	}
	if logo == nil {
		return nil, tv.ErrNotFound.New("channel %d has no logo", id)
	}
	return io.NopCloser(bytes.NewReader(logo)), nil
}

// WriteLogo opens a logo stream for the channel at u. The image written to
// the returned writer is decoded, scaled and stored by a background worker;
// the task reports the outcome.
func (s *StoreContext) WriteLogo(ctx context.Context, caller tv.Caller, u *tv.URI) (w *LogoWriter, t *LogoTask, err error) {
	defer func() {
		if err != nil {
			s.metrics.observeOperation("logo", OpOpenBlob, err)
		}
	}()
	if err = s.Init(ctx); err != nil {
		return nil, nil, err
	}
	id, err := logoChannel(u)
	if err != nil {
		return nil, nil, err
	}

	cond, args := s.access.LogoScope(caller, id).clause()
	var found int64
	err = s.db.Reader.QueryRowContext(ctx,
		"SELECT "+model.ColID+" FROM "+string(model.Channels)+cond, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, tv.ErrNotFound.New("no writable channel %d", id)
	}
	if err != nil {
		return nil, nil, tv.ErrStorage.Wrap(err)
	}

	stream := newLogoStream(s.logos.opts.PipeBuffer)
	t = &LogoTask{ChannelID: id, caller: caller, r: stream, done: make(chan struct{})}
	if err = s.logos.Submit(ctx, t); err != nil {
		stream.closeRead(err)
		return nil, nil, err
	}
	return &LogoWriter{s: stream}, t, nil
}

func logoChannel(u *tv.URI) (int64, error) {
	r, err := Match(u)
	if err != nil {
		return 0, err
	}
	l, ok := r.(Logo)
	if !ok {
		return 0, tv.ErrNotFound.New("no blob at %s", u)
	}
	return l.ChannelID, nil
}

// storeLogo is the worker side of WriteLogo.
func (s *StoreContext) storeLogo(ctx context.Context, t *LogoTask) (err error) {
	defer func() { s.metrics.observeLogoTask(err) }()
	defer t.r.closeRead(nil)

	img, _, err := image.Decode(t.r)
	// Drain what the decoder left so a writer still sending bytes does not fail.
	if _, derr := io.Copy(io.Discard, t.r); derr != nil {
		s.log.Debug("logo stream ended early", "channel_id", t.ChannelID, "error", derr)
	}
	if err != nil {
		s.log.Warn("logo is not a decodable image", "channel_id", t.ChannelID, "error", err)
		return tv.ErrDecode.Wrap(err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaleLogo(img, s.logos.opts.MaxSize)); err != nil {
		return tv.ErrDecode.Wrap(err)
	}

	cond, args := s.access.LogoScope(t.caller, t.ChannelID).clause()
	var n int64
	err = s.write(ctx, func(sc *TransactionScope) error {
		res, err := sc.tx.ExecContext(ctx,
			"UPDATE "+string(model.Channels)+" SET "+model.ColLogo+"=?"+cond,
			append([]any{buf.Bytes()}, args...)...)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		if n > 0 {
			sc.Notify(tv.ChannelLogoURI(t.ChannelID))
		}
		return nil
	})
	if err != nil {
		s.log.Error("storing logo failed", "channel_id", t.ChannelID, "error", err)
		return err
	}
	if n == 0 {
		return tv.ErrNotFound.New("channel %d vanished before its logo was stored", t.ChannelID)
	}
	s.log.Debug("stored logo", "channel_id", t.ChannelID, "bytes", buf.Len())
	return nil
}

// scaleLogo shrinks img with nearest-neighbour sampling so that its longest
// side is at most maxSize. Smaller images are kept as they are.
func scaleLogo(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if longest <= maxSize || longest == 0 {
		return img
	}
	f := float64(maxSize) / float64(longest)
	dw, dh := max(int(float64(w)*f), 1), max(int(float64(h)*f), 1)
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
