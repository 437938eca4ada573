// Package imagecache shares and loads the images referenced by icon styles.
//
// A Cache maps a Key to a single Resource. The first render that needs a
// resource starts its load; later renders only subscribe a Listener. Loads
// run on their own goroutines and never touch resource state. Results are
// queued and applied by Dispatch on the render goroutine, which moves each
// resource to its terminal state and notifies every listener exactly once.
//
// A typical render loop:
//
//	c := imagecache.New(imagecache.FileLoader{})
//	defer c.Close()
//
//	for {
//	    loading := renderFrame(c) // calls Resource.Load and Resource.Listen
//	    if !loading {
//	        break
//	    }
//	    if err := c.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/gg"
)

// Errors returned by Cache.
var (
	// ErrClosed is returned by Wait after Close. It is also the error of
	// resources whose load was cancelled by Close.
	ErrClosed = errors.New("imagecache: cache closed")

	// ErrBusy is returned by Evict for a resource whose load is in flight.
	ErrBusy = errors.New("imagecache: resource is loading")
)

// completion is the outcome of one load, queued until Dispatch.
type completion struct {
	res *Resource
	img image.Image
	err error
}

// Cache owns image resources and their loads. It is safe for concurrent
// use, but listeners only run inside Dispatch and Wait.
type Cache struct {
	loader Loader
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	resources map[Key]*Resource
	done      []completion
	inflight  int
	closed    bool

	// ready has capacity one and is signalled whenever done grows.
	ready chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. By default the cache logs through gg.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithContext sets the parent context of every load. Cancelling it
// cancels in-flight loads, which then complete with an error.
func WithContext(ctx context.Context) Option {
	return func(c *Cache) {
		c.ctx = ctx
	}
}

// New creates a cache that loads images with loader.
func New(loader Loader, opts ...Option) *Cache {
	c := &Cache{
		loader:    loader,
		ctx:       context.Background(),
		resources: make(map[Key]*Resource),
		ready:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(c.ctx)
	return c
}

func (c *Cache) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return gg.Logger()
}

// Acquire returns the resource for key, registering a new unloaded one on
// first use.
func (c *Cache) Acquire(key Key) *Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.resources[key]; ok {
		return r
	}
	r := &Resource{key: key, cache: c}
	c.resources[key] = r
	return r
}

// Get returns the resource for key without creating it.
func (c *Cache) Get(key Key) (*Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.resources[key]
	return r, ok
}

// Len returns the number of registered resources.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resources)
}

// Pending returns the number of loads that are in flight or finished but
// not yet dispatched.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight + len(c.done)
}

// BeginLoad moves an unloaded resource to StateLoading and starts its load.
// For any other state it does nothing. It reports whether a load started.
func (c *Cache) BeginLoad(r *Resource) bool {
	c.mu.Lock()
	if c.closed || r.state != StateUnloaded {
		c.mu.Unlock()
		return false
	}
	r.state = StateLoading
	c.inflight++
	c.mu.Unlock()

	c.log().Debug("imagecache: load started", "key", r.key.String())
	go c.run(r)
	return true
}

func (c *Cache) run(r *Resource) {
	img, err := c.load(r.key)

	c.mu.Lock()
	c.inflight--
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.done = append(c.done, completion{res: r, img: img, err: err})
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// load calls the loader, turning a panic or a nil image into an error so
// every started load completes exactly once.
func (c *Cache) load(key Key) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("imagecache: loader panic: %v", p)
		}
	}()
	if c.loader == nil {
		return nil, fmt.Errorf("imagecache: no loader for %q", key.Src)
	}
	img, err = c.loader.Load(c.ctx, key)
	if err == nil && img == nil {
		err = fmt.Errorf("imagecache: loader returned no image for %q", key.Src)
	}
	return img, err
}

// Subscribe registers l for the completion of r. While r is not terminal
// the listener is added unless already present. For a terminal resource l
// is called immediately instead. A nil listener is ignored.
func (c *Cache) Subscribe(r *Resource, l *Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	if r.state.Terminal() {
		c.mu.Unlock()
		l.notify(r)
		return
	}
	if !slices.Contains(r.listeners, l) {
		r.listeners = append(r.listeners, l)
	}
	c.mu.Unlock()
}

// Dispatch applies every finished load: the resource becomes StateLoaded or
// StateError, each of its listeners is called once and the listener set is
// cleared. It returns the number of completions applied. Dispatch must be
// called from the render goroutine.
func (c *Cache) Dispatch() int {
	c.mu.Lock()
	done := c.done
	c.done = nil
	type notification struct {
		res       *Resource
		listeners []*Listener
	}
	notes := make([]notification, 0, len(done))
	for _, d := range done {
		r := d.res
		if d.err != nil {
			r.state = StateError
			r.err = d.err
		} else {
			r.state = StateLoaded
			r.img = d.img
		}
		notes = append(notes, notification{res: r, listeners: r.listeners})
		r.listeners = nil
	}
	c.mu.Unlock()

	for _, n := range notes {
		if err := n.res.err; err != nil {
			c.log().Warn("imagecache: load failed", "key", n.res.key.String(), "err", err)
		} else {
			c.log().Debug("imagecache: loaded", "key", n.res.key.String(), "listeners", len(n.listeners))
		}
		for _, l := range n.listeners {
			l.notify(n.res)
		}
	}
	return len(done)
}

// Wait blocks until at least one load has finished, then dispatches. It
// returns immediately when nothing is pending.
func (c *Cache) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		closed := c.closed
		queued := len(c.done)
		inflight := c.inflight
		c.mu.Unlock()

		switch {
		case closed:
			return ErrClosed
		case queued > 0:
			c.Dispatch()
			return nil
		case inflight == 0:
			return nil
		}

		select {
		case <-c.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Evict removes the resource for key so that the next Acquire creates a
// fresh one. A resource with a load in flight cannot be evicted.
func (c *Cache) Evict(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.resources[key]
	if !ok {
		return nil
	}
	if r.state == StateLoading {
		return ErrBusy
	}
	delete(c.resources, key)
	return nil
}

// Close cancels in-flight loads and drops their results. Resources that
// were loading move to StateError with ErrClosed and lose their listeners
// without being notified.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.done = nil
	var aborted int
	for _, r := range c.resources {
		if r.state == StateLoading {
			r.state = StateError
			r.err = ErrClosed
			r.listeners = nil
			aborted++
		}
	}
	c.mu.Unlock()
	c.cancel()
	if aborted > 0 {
		c.log().Debug("imagecache: closed with loads in flight", "aborted", aborted)
	}
	return nil
}
