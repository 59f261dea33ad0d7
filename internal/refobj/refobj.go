// SPDX-License-Identifier: MPL-2.0

// Package refobj implements the minimal IUnknown object plugcheck hands to
// factories that require an input argument.
//
// An Object is a pinned one-word header whose first field points at a shared
// vtable of QueryInterface, AddRef and Release. Foreign code sees the header
// address as an IUnknown*; the callbacks map it back to the Go Object.
package refobj

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

// IIDUnknown is the interface id of IUnknown.
var IIDUnknown = guid.MustParse("{00000000-0000-0000-C000-000000000046}")

var (
	live     sync.Map // uintptr(header) -> *Object
	liveObjs atomic.Int64
)

type (
	// Object is an atomically reference-counted IUnknown. The count starts at
	// one, held by the creator.
	Object struct {
		hdr       *header
		pinner    runtime.Pinner
		refs      atomic.Int32
		over      atomic.Int32
		destroyed atomic.Bool
		onDestroy func()
	}

	header struct {
		vtbl uintptr
	}

	// Option configures an Object.
	Option func(*Object)
)

// WithOnDestroy registers fn to run once when the count reaches zero.
func WithOnDestroy(fn func()) Option {
	return func(o *Object) { o.onDestroy = fn }
}

// New returns an Object with a count of one.
func New(opts ...Option) *Object {
	o := &Object{hdr: &header{vtbl: vtable()}}
	for _, opt := range opts {
		opt(o)
	}
	o.pinner.Pin(o.hdr)
	o.refs.Store(1)
	live.Store(o.Ptr(), o)
	liveObjs.Add(1)
	return o
}

// Live returns the number of Objects not yet destroyed in this process.
func Live() int64 { return liveObjs.Load() }

// Ptr returns the IUnknown* foreign code should receive.
func (o *Object) Ptr() uintptr {
	return uintptr(unsafe.Pointer(o.hdr))
}

// Count returns the current reference count.
func (o *Object) Count() int32 { return o.refs.Load() }

// Destroyed reports whether the count reached zero.
func (o *Object) Destroyed() bool { return o.destroyed.Load() }

// OverReleases returns how many Release calls arrived after destruction.
func (o *Object) OverReleases() int32 { return o.over.Load() }

// AddRef increments the count and returns the new value. Retaining a
// destroyed object is recorded as an over-release and returns zero.
func (o *Object) AddRef() uint32 {
	for {
		n := o.refs.Load()
		if n <= 0 {
			o.over.Add(1)
			return 0
		}
		if o.refs.CompareAndSwap(n, n+1) {
			return uint32(n + 1)
		}
	}
}

// Release decrements the count and returns the new value, destroying the
// object when it reaches zero. The count never goes negative.
func (o *Object) Release() uint32 {
	for {
		n := o.refs.Load()
		if n <= 0 {
			o.over.Add(1)
			return 0
		}
		if o.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				o.destroy()
			}
			return uint32(n - 1)
		}
	}
}

func (o *Object) destroy() {
	if !o.destroyed.CompareAndSwap(false, true) {
		return
	}
	live.Delete(o.Ptr())
	liveObjs.Add(-1)
	o.pinner.Unpin()
	if o.onDestroy != nil {
		o.onDestroy()
	}
}

func lookup(this uintptr) (*Object, bool) {
	v, ok := live.Load(this)
	if !ok {
		return nil, false
	}
	return v.(*Object), true
}

// queryInterface implements IUnknown::QueryInterface for IIDUnknown only.
func queryInterface(this, riid, ppv uintptr) uintptr {
	if ppv == 0 {
		return statusWord(abi.StatusPointer)
	}
	out := (*uintptr)(unsafe.Pointer(ppv)) //nolint:govet // foreign out-parameter
	*out = 0
	o, ok := lookup(this)
	if !ok || riid == 0 {
		return statusWord(abi.StatusPointer)
	}
	var iid guid.GUID
	copy(iid[:], unsafe.Slice((*byte)(unsafe.Pointer(riid)), guid.Size)) //nolint:govet // foreign in-parameter
	if iid != IIDUnknown {
		return statusWord(abi.StatusNoInterface)
	}
	o.AddRef()
	*out = this
	return statusWord(abi.StatusOK)
}

func addRef(this uintptr) uintptr {
	if o, ok := lookup(this); ok {
		return uintptr(o.AddRef())
	}
	return 0
}

func release(this uintptr) uintptr {
	if o, ok := lookup(this); ok {
		return uintptr(o.Release())
	}
	return 0
}

func statusWord(s abi.Status) uintptr {
	return uintptr(uint32(s))
}
