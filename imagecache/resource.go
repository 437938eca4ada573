package imagecache

import (
	"fmt"
	"image"
	"slices"
)

// State is the load state of a Resource.
type State uint8

const (
	// StateUnloaded means no load has been started.
	StateUnloaded State = iota
	// StateLoading means exactly one load is in flight.
	StateLoading
	// StateLoaded means the decoded image is available.
	StateLoaded
	// StateError means the load failed. The resource is not retried.
	StateError
)

var stateNames = [...]string{
	StateUnloaded: "Unloaded",
	StateLoading:  "Loading",
	StateLoaded:   "Loaded",
	StateError:    "Error",
}

// String returns the name of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s == StateLoaded || s == StateError
}

// Key identifies an image resource. Two styles that resolve to equal keys
// share one Resource and therefore one load.
type Key struct {
	// Src is the file path or URL of the image.
	Src string
	// Width and Height, when positive, scale the decoded image.
	// A single positive dimension keeps the aspect ratio.
	Width, Height int
	// Color, when set, tints the image. It is a hex color such as "#ff8800".
	Color string
}

func (k Key) String() string {
	s := k.Src
	if k.Width > 0 || k.Height > 0 {
		s += fmt.Sprintf("@%dx%d", k.Width, k.Height)
	}
	if k.Color != "" {
		s += "#" + k.Color
	}
	return s
}

// Listener is notified when a Resource finishes loading.
// Listeners are compared by identity: subscribing the same *Listener twice
// registers it once.
type Listener struct {
	fn func(*Resource)
}

// NewListener returns a listener calling fn. fn runs on the goroutine that
// calls Cache.Dispatch.
func NewListener(fn func(*Resource)) *Listener {
	return &Listener{fn: fn}
}

func (l *Listener) notify(r *Resource) {
	if l.fn != nil {
		l.fn(r)
	}
}

// Resource is a shared, lazily loaded image. All fields are guarded by the
// owning cache's mutex and only Dispatch moves a resource into a terminal
// state.
type Resource struct {
	key   Key
	cache *Cache

	state     State
	img       image.Image
	err       error
	listeners []*Listener
}

// Key returns the key the resource was acquired with.
func (r *Resource) Key() Key { return r.key }

// State returns the current load state.
func (r *Resource) State() State {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	return r.state
}

// Image returns the decoded image, or nil unless the state is StateLoaded.
func (r *Resource) Image() image.Image {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	return r.img
}

// Err returns the load error when the state is StateError.
func (r *Resource) Err() error {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	return r.err
}

// Load starts loading the resource if it has not been started yet.
// It reports whether a load was started by this call.
func (r *Resource) Load() bool {
	return r.cache.BeginLoad(r)
}

// Listen subscribes l to the completion of the resource.
func (r *Resource) Listen(l *Listener) {
	r.cache.Subscribe(r, l)
}

// Listening reports whether l is currently subscribed.
func (r *Resource) Listening(l *Listener) bool {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	return slices.Contains(r.listeners, l)
}

// ListenerCount returns the number of subscribed listeners.
func (r *Resource) ListenerCount() int {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	return len(r.listeners)
}
