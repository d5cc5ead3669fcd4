package aml

import (
	"sync"
	"time"
)

// mutexWaitIndefinitely is the 16-bit timeout sentinel meaning "block until
// the mutex or event becomes available".
const mutexWaitIndefinitely = 0xFFFF

// Host supplies the operating system primitives the interpreter delegates to:
// time, notification, the global lock, OSI policy and the operation region
// backends. Implementations must be usable from the single thread driving the
// interpreter; only Sleep and event waits may block.
type Host interface {
	// Sleep yields the executing thread for at least the given number of
	// milliseconds.
	Sleep(milliseconds uint64)

	// Stall busy-spins for the given number of microseconds without
	// yielding the thread.
	Stall(microseconds uint64)

	// Timer returns the current value of a monotonic clock in 100
	// nanosecond units.
	Timer() uint64

	// AcquireGlobalLock acquires the ACPI global lock shared with the
	// firmware.
	AcquireGlobalLock()

	// ReleaseGlobalLock releases the ACPI global lock.
	ReleaseGlobalLock()

	// NotifyOperatingSystem delivers a Notify opcode's value for the given
	// namespace object.
	NotifyOperatingSystem(obj *Object, value uint64)

	// FatalError surfaces a Fatal opcode to the host. The interpreter
	// never calls this on its own behalf.
	FatalError(fatalType, code, argument uint64)

	// CheckOsiSupport reports whether the host wants _OSI to claim
	// support for an interface string outside the built-in list.
	CheckOsiSupport(name string) bool

	// RegionHandler returns the handler servicing the given operation
	// region space, or nil when the space is unsupported.
	RegionHandler(space RegionSpace) RegionHandler
}

// HostMutex is the synchronization object backing AML Mutex objects and
// serialized methods. Acquisition is recursive with respect to a single
// execution context.
type HostMutex struct {
	// SyncLevel is the advisory ordering hint from the Mutex or Method
	// declaration. It is tracked but not enforced.
	SyncLevel uint8

	ch    chan struct{}
	owner *execContext
	depth int
}

func newHostMutex(syncLevel uint8) *HostMutex {
	return &HostMutex{
		SyncLevel: syncLevel,
		ch:        make(chan struct{}, 1),
	}
}

// acquire obtains the mutex on behalf of the given execution context,
// waiting up to timeout milliseconds. It returns false if the wait timed out.
func (m *HostMutex) acquire(ctx *execContext, timeout uint16) bool {
	if ctx != nil && m.owner == ctx {
		m.depth++
		return true
	}

	if timeout == mutexWaitIndefinitely {
		m.ch <- struct{}{}
	} else {
		select {
		case m.ch <- struct{}{}:
		case <-time.After(time.Duration(timeout) * time.Millisecond):
			return false
		}
	}

	m.owner = ctx
	m.depth = 1
	return true
}

// release drops one level of ownership, unblocking waiters when the depth
// reaches zero.
func (m *HostMutex) release() {
	m.depth--
	if m.depth == 0 {
		m.owner = nil
		<-m.ch
	}
}

// HostEvent is the synchronization object backing AML Event objects. Signals
// accumulate; each wait consumes one.
type HostEvent struct {
	signals chan struct{}
}

func newHostEvent() *HostEvent {
	return &HostEvent{signals: make(chan struct{}, 1024)}
}

// signal increments the event's pending signal count.
func (e *HostEvent) signal() {
	select {
	case e.signals <- struct{}{}:
	default:
	}
}

// wait consumes one pending signal, blocking up to timeout milliseconds. It
// returns false if the wait timed out.
func (e *HostEvent) wait(timeout uint16) bool {
	if timeout == mutexWaitIndefinitely {
		<-e.signals
		return true
	}

	select {
	case <-e.signals:
		return true
	case <-time.After(time.Duration(timeout) * time.Millisecond):
		return false
	}
}

// reset discards all pending signals.
func (e *HostEvent) reset() {
	for {
		select {
		case <-e.signals:
		default:
			return
		}
	}
}

// DefaultHost is a hermetic Host implementation backed by the Go runtime:
// regions are plain in-memory buffers, the clock is the monotonic wall clock
// and notifications are recorded for inspection. It is suitable for tests and
// for embedders that install their own region handlers on top.
type DefaultHost struct {
	// OsName is the string the \_OS object reports.
	OsName string

	// OsiInterfaces lists extra _OSI strings the host claims support for
	// beyond the built-in Windows list.
	OsiInterfaces []string

	// Notifications records every Notify delivered to the host, in order.
	Notifications []HostNotification

	// Fatal records the parameters of a Fatal opcode, if one executed.
	Fatal *HostFatal

	globalLock sync.Mutex
	pciEarly   sync.Mutex
	handlers   map[RegionSpace]RegionHandler
	start      time.Time
}

// HostNotification is a recorded Notify delivery.
type HostNotification struct {
	Object *Object
	Value  uint64
}

// HostFatal carries the parameters of an executed Fatal opcode.
type HostFatal struct {
	Type     uint64
	Code     uint64
	Argument uint64
}

// NewDefaultHost creates a host whose eight region spaces are all serviced by
// zero-initialized in-memory buffers.
func NewDefaultHost() *DefaultHost {
	host := &DefaultHost{
		OsName:   defaultOsName,
		handlers: make(map[RegionSpace]RegionHandler),
		start:    time.Now(),
	}

	ram := &RAMRegionHandler{}
	for _, space := range []RegionSpace{
		RegionSpaceSystemMemory, RegionSpaceSystemIO,
		RegionSpaceEmbeddedController, RegionSpaceSMBus,
		RegionSpaceCMOS, RegionSpacePCIBarTarget, RegionSpaceIPMI,
	} {
		host.handlers[space] = ram
	}

	// PCI config space goes through the early-access path until a bus
	// driver takes over; accesses are serialized by the early lock.
	host.handlers[RegionSpacePCIConfig] = &pciEarlyHandler{host: host, backing: ram}
	return host
}

// InstallRegionHandler overrides the handler for one region space. A nil
// handler makes the space unsupported.
func (h *DefaultHost) InstallRegionHandler(space RegionSpace, handler RegionHandler) {
	h.handlers[space] = handler
}

// Sleep implements Host.
func (h *DefaultHost) Sleep(milliseconds uint64) {
	time.Sleep(time.Duration(milliseconds) * time.Millisecond)
}

// Stall implements Host. The default host yields rather than burning cycles.
func (h *DefaultHost) Stall(microseconds uint64) {
	time.Sleep(time.Duration(microseconds) * time.Microsecond)
}

// Timer implements Host, returning 100ns ticks of a monotonic clock.
func (h *DefaultHost) Timer() uint64 {
	return uint64(time.Since(h.start).Nanoseconds() / 100)
}

// AcquireGlobalLock implements Host.
func (h *DefaultHost) AcquireGlobalLock() { h.globalLock.Lock() }

// ReleaseGlobalLock implements Host.
func (h *DefaultHost) ReleaseGlobalLock() { h.globalLock.Unlock() }

// NotifyOperatingSystem implements Host.
func (h *DefaultHost) NotifyOperatingSystem(obj *Object, value uint64) {
	h.Notifications = append(h.Notifications, HostNotification{Object: obj, Value: value})
}

// FatalError implements Host.
func (h *DefaultHost) FatalError(fatalType, code, argument uint64) {
	h.Fatal = &HostFatal{Type: fatalType, Code: code, Argument: argument}
}

// CheckOsiSupport implements Host.
func (h *DefaultHost) CheckOsiSupport(name string) bool {
	for _, iface := range h.OsiInterfaces {
		if iface == name {
			return true
		}
	}
	return false
}

// RegionHandler implements Host.
func (h *DefaultHost) RegionHandler(space RegionSpace) RegionHandler {
	return h.handlers[space]
}

// RAMRegionHandler services operation regions out of plain zero-initialized
// memory buffers, one per region.
type RAMRegionHandler struct{}

type ramRegion struct {
	data []byte
}

// Create implements RegionHandler.
func (*RAMRegionHandler) Create(space RegionSpace, offset, length uint64) (interface{}, error) {
	return &ramRegion{data: make([]byte, length)}, nil
}

// Destroy implements RegionHandler.
func (*RAMRegionHandler) Destroy(osContext interface{}) {}

// Read implements RegionHandler.
func (*RAMRegionHandler) Read(osContext interface{}, byteOffset uint64, accessBits uint32) (uint64, error) {
	region := osContext.(*ramRegion)
	byteCount := uint64(accessBits / 8)
	if byteOffset+byteCount > uint64(len(region.data)) {
		return 0, errOutOfBounds
	}

	var value uint64
	for i := uint64(0); i < byteCount; i++ {
		value |= uint64(region.data[byteOffset+i]) << (8 * i)
	}
	return value, nil
}

// Write implements RegionHandler.
func (*RAMRegionHandler) Write(osContext interface{}, byteOffset uint64, accessBits uint32, value uint64) error {
	region := osContext.(*ramRegion)
	byteCount := uint64(accessBits / 8)
	if byteOffset+byteCount > uint64(len(region.data)) {
		return errOutOfBounds
	}

	for i := uint64(0); i < byteCount; i++ {
		region.data[byteOffset+i] = byte(value >> (8 * i))
	}
	return nil
}

// pciEarlyHandler wraps the PCI config backing with the early-access lock
// that serializes accesses before the PCI bus driver is online.
type pciEarlyHandler struct {
	host    *DefaultHost
	backing RegionHandler
}

func (p *pciEarlyHandler) Create(space RegionSpace, offset, length uint64) (interface{}, error) {
	return p.backing.Create(space, offset, length)
}

func (p *pciEarlyHandler) Destroy(osContext interface{}) {
	p.backing.Destroy(osContext)
}

func (p *pciEarlyHandler) Read(osContext interface{}, byteOffset uint64, accessBits uint32) (uint64, error) {
	p.host.pciEarly.Lock()
	defer p.host.pciEarly.Unlock()
	return p.backing.Read(osContext, byteOffset, accessBits)
}

func (p *pciEarlyHandler) Write(osContext interface{}, byteOffset uint64, accessBits uint32, value uint64) error {
	p.host.pciEarly.Lock()
	defer p.host.pciEarly.Unlock()
	return p.backing.Write(osContext, byteOffset, accessBits, value)
}
