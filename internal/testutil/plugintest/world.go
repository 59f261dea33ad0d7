// SPDX-License-Identifier: MPL-2.0

package plugintest

import (
	"fmt"
	"sync"

	"github.com/plugcheck/plugcheck/internal/descriptor"
	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

const symbolBase = 0x7000_0000

type (
	// Result is what a simulated factory call returns.
	Result struct {
		Status abi.Status
		// Object requests a non-null created object.
		Object bool
		// Panic makes the call panic with this value, simulating a fault.
		Panic any
	}

	// Factory simulates a factory export.
	Factory func(id guid.GUID, input uintptr) Result

	// Table simulates a descriptor export.
	Table struct {
		Kind    abi.Kind
		Status  abi.Status
		Records []descriptor.Record
		// Range, when set, replaces the range computed from Records.
		Range *descriptor.Range
		// Panic makes the export panic with this value.
		Panic any
		// OnCall, when set, runs at the start of every call to the export.
		OnCall func()
	}

	// Plugin is one simulated module.
	Plugin struct {
		Tables    map[string]Table
		Factories map[string]Factory
	}

	// PluginOption configures a Plugin.
	PluginOption func(*Plugin)

	// Call records one factory call.
	Call struct {
		Path   string
		Symbol string
		ID     guid.GUID
		Input  uintptr
	}

	// World implements module.Loader, abi.Caller and descriptor.Memory over
	// a set of simulated plugins keyed by path.
	World struct {
		arena *descriptor.Arena

		mu      sync.Mutex
		plugins map[string]*Plugin
		symbols map[uintptr]binding
		nextSym uintptr
		objects map[uintptr]int
		nextObj uintptr
		loads   map[string]int
		open    map[string]int
		calls   []Call
	}

	binding struct {
		path   string
		symbol string
	}

	handle struct {
		w      *World
		path   string
		closed bool
	}
)

// NewPlugin returns a plugin configured by opts.
func NewPlugin(opts ...PluginOption) *Plugin {
	p := &Plugin{Tables: map[string]Table{}, Factories: map[string]Factory{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithTable adds a descriptor export returning records with S_OK.
func WithTable(symbol string, kind abi.Kind, records ...descriptor.Record) PluginOption {
	return func(p *Plugin) {
		p.Tables[symbol] = Table{Kind: kind, Records: records}
	}
}

// WithRawTable adds a fully specified descriptor export.
func WithRawTable(symbol string, t Table) PluginOption {
	return func(p *Plugin) { p.Tables[symbol] = t }
}

// WithFactory adds a factory export.
func WithFactory(symbol string, f Factory) PluginOption {
	return func(p *Plugin) { p.Factories[symbol] = f }
}

// Succeed returns a factory that creates an object for every id.
func Succeed() Factory {
	return func(guid.GUID, uintptr) Result { return Result{Status: abi.StatusOK, Object: true} }
}

// Fail returns a factory that fails with status and no object.
func Fail(status abi.Status) Factory {
	return func(guid.GUID, uintptr) Result { return Result{Status: status} }
}

// FailWithObject returns a factory that fails but still hands back an object.
func FailWithObject(status abi.Status) Factory {
	return func(guid.GUID, uintptr) Result { return Result{Status: status, Object: true} }
}

// NullOnSuccess returns a factory that reports S_OK with a null object.
func NullOnSuccess() Factory {
	return func(guid.GUID, uintptr) Result { return Result{Status: abi.StatusOK} }
}

// PanicOn returns a factory that panics for bad and succeeds otherwise.
func PanicOn(bad guid.GUID) Factory {
	return func(id guid.GUID, _ uintptr) Result {
		if id == bad {
			return Result{Panic: fmt.Sprintf("access violation creating %s", id)}
		}
		return Result{Status: abi.StatusOK, Object: true}
	}
}

// ID returns a deterministic GUID for index i.
func ID(i int) guid.GUID {
	return guid.MustParse(fmt.Sprintf("{%08X-1111-4222-8333-444455556666}", i+1))
}

// Named returns n records with ids ID(0..n-1) and names "<prefix> i".
func Named(n int, prefix string) []descriptor.Record {
	recs := make([]descriptor.Record, n)
	for i := range recs {
		recs[i] = descriptor.Record{ID: ID(i), Name: fmt.Sprintf("%s %d", prefix, i)}
	}
	return recs
}

// IDs returns n unnamed records with ids ID(0..n-1).
func IDs(n int) []descriptor.Record {
	recs := make([]descriptor.Record, n)
	for i := range recs {
		recs[i] = descriptor.Record{ID: ID(i)}
	}
	return recs
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		arena:   descriptor.NewArena(),
		plugins: map[string]*Plugin{},
		symbols: map[uintptr]binding{},
		nextSym: symbolBase,
		objects: map[uintptr]int{},
		nextObj: symbolBase << 1,
		loads:   map[string]int{},
		open:    map[string]int{},
	}
}

// Add registers p at path.
func (w *World) Add(path string, p *Plugin) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.plugins[path] = p
}

// Memory returns the world's address space.
func (w *World) Memory() descriptor.Memory { return w.arena }

// Load implements module.Loader.
func (w *World) Load(path string) (module.Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.plugins[path]; !ok {
		return nil, &module.NotFoundError{Path: path}
	}
	w.loads[path]++
	w.open[path]++
	return &handle{w: w, path: path}, nil
}

// Loads returns how many times path was loaded.
func (w *World) Loads(path string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loads[path]
}

// OpenHandles returns the number of loaded, not yet closed handles.
func (w *World) OpenHandles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.open {
		n += c
	}
	return n
}

// Calls returns every factory call made so far.
func (w *World) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Call(nil), w.calls...)
}

// Outstanding returns the number of created objects not yet released.
func (w *World) Outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, releases := range w.objects {
		if releases == 0 {
			n++
		}
	}
	return n
}

// DoubleReleases returns the number of created objects released more than once.
func (w *World) DoubleReleases() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, releases := range w.objects {
		if releases > 1 {
			n++
		}
	}
	return n
}

func (h *handle) Path() string { return h.path }

func (h *handle) Symbol(name string) (uintptr, error) {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()

	if h.closed {
		return 0, &module.SymbolError{Module: h.path, Symbol: name, Err: module.ErrClosed}
	}
	p := h.w.plugins[h.path]
	_, isTable := p.Tables[name]
	_, isFactory := p.Factories[name]
	if !isTable && !isFactory {
		return 0, &module.SymbolError{Module: h.path, Symbol: name}
	}
	for addr, b := range h.w.symbols {
		if b.path == h.path && b.symbol == name {
			return addr, nil
		}
	}
	addr := h.w.nextSym
	h.w.nextSym += 16
	h.w.symbols[addr] = binding{path: h.path, symbol: name}
	return addr, nil
}

func (h *handle) Close() error {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.w.open[h.path]--
	}
	return nil
}

// Descriptors implements abi.Caller.
func (w *World) Descriptors(export uintptr) (abi.Status, uintptr, uintptr) {
	w.mu.Lock()
	b, ok := w.symbols[export]
	var t Table
	if ok {
		t, ok = w.plugins[b.path].Tables[b.symbol]
	}
	w.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("call through unbound descriptor address 0x%X", export))
	}
	if t.OnCall != nil {
		t.OnCall()
	}
	if t.Panic != nil {
		panic(t.Panic)
	}
	if t.Status.Failed() {
		return t.Status, 0, 0
	}
	if t.Range != nil {
		return t.Status, t.Range.Begin, t.Range.End
	}
	if len(t.Records) == 0 {
		return t.Status, 0, 0
	}
	r := w.arena.Table(t.Kind, t.Records...)
	return t.Status, r.Begin, r.End
}

// Create implements abi.Caller.
func (w *World) Create(factory uintptr, id guid.GUID, input uintptr) (abi.Status, uintptr) {
	w.mu.Lock()
	b, ok := w.symbols[factory]
	var f Factory
	if ok {
		f, ok = w.plugins[b.path].Factories[b.symbol]
	}
	if ok {
		w.calls = append(w.calls, Call{Path: b.path, Symbol: b.symbol, ID: id, Input: input})
	}
	w.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("call through unbound factory address 0x%X", factory))
	}
	res := f(id, input)
	if res.Panic != nil {
		panic(res.Panic)
	}
	if !res.Object {
		return res.Status, 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	obj := w.nextObj
	w.nextObj += 16
	w.objects[obj] = 0
	return res.Status, obj
}

// Release implements abi.Caller.
func (w *World) Release(object uintptr) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.objects[object]; !ok {
		panic(fmt.Sprintf("release of unknown object 0x%X", object))
	}
	w.objects[object]++
	return 0
}
