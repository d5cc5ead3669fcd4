// Package aml implements an ACPI Machine Language interpreter and the
// hierarchical namespace it populates. Definition blocks (DSDT/SSDT) are
// executed to build the namespace; control methods are evaluated on demand
// through the same statement-stack driver.
package aml

// ObjectType describes the kind of value an Object carries.
type ObjectType uint16

// The list of supported object types. The values below 0x100 are the types
// visible to executing AML via the ObjectType opcode.
const (
	ObjectUninitialized   ObjectType = 0
	ObjectInteger         ObjectType = 1
	ObjectString          ObjectType = 2
	ObjectBuffer          ObjectType = 3
	ObjectPackage         ObjectType = 4
	ObjectFieldUnit       ObjectType = 5
	ObjectDevice          ObjectType = 6
	ObjectEvent           ObjectType = 7
	ObjectMethod          ObjectType = 8
	ObjectMutex           ObjectType = 9
	ObjectOperationRegion ObjectType = 10
	ObjectPowerResource   ObjectType = 11
	ObjectProcessor       ObjectType = 12
	ObjectThermalZone     ObjectType = 13
	ObjectBufferField     ObjectType = 14
	ObjectDdbHandle       ObjectType = 15
	ObjectDebug           ObjectType = 16

	// Internal types; these never escape to AML.
	ObjectAlias          ObjectType = 0x100
	ObjectUnresolvedName ObjectType = 0x101
)

func (t ObjectType) String() string {
	switch t {
	case ObjectUninitialized:
		return "Uninitialized"
	case ObjectInteger:
		return "Integer"
	case ObjectString:
		return "String"
	case ObjectBuffer:
		return "Buffer"
	case ObjectPackage:
		return "Package"
	case ObjectFieldUnit:
		return "FieldUnit"
	case ObjectDevice:
		return "Device"
	case ObjectEvent:
		return "Event"
	case ObjectMethod:
		return "Method"
	case ObjectMutex:
		return "Mutex"
	case ObjectOperationRegion:
		return "OperationRegion"
	case ObjectPowerResource:
		return "PowerResource"
	case ObjectProcessor:
		return "Processor"
	case ObjectThermalZone:
		return "ThermalZone"
	case ObjectBufferField:
		return "BufferField"
	case ObjectDdbHandle:
		return "DdbHandle"
	case ObjectDebug:
		return "Debug"
	case ObjectAlias:
		return "Alias"
	case ObjectUnresolvedName:
		return "UnresolvedName"
	}
	return "Unknown"
}

// FieldAccess specifies the access width used when reading from or writing to
// an operation region.
type FieldAccess uint8

// The list of supported FieldAccess values.
const (
	FieldAccessAny FieldAccess = iota
	FieldAccessByte
	FieldAccessWord
	FieldAccessDWord
	FieldAccessQWord
	FieldAccessBuffer
)

// FieldUpdateRule specifies what happens to the bits of an access window that
// fall outside the field being written.
type FieldUpdateRule uint8

// The list of supported FieldUpdateRule values.
const (
	FieldUpdatePreserve FieldUpdateRule = iota
	FieldUpdateWriteAsOnes
	FieldUpdateWriteAsZeros
)

// FieldUnitData binds a bit range inside an operation region with the access
// parameters declared by its field list.
type FieldUnitData struct {
	Region            *Object
	Access            FieldAccess
	AcquireGlobalLock bool
	UpdateRule        FieldUpdateRule
	BitOffset         uint64
	BitLength         uint64

	// Optional banked access: BankValue must be written to BankRegister
	// before every access.
	BankRegister *Object
	BankValue    *Object

	// Optional index/data access: the element byte offset is written to
	// IndexRegister, then the access goes through DataRegister.
	IndexRegister *Object
	DataRegister  *Object
}

// BufferFieldData describes a bit range over an in-memory Integer, String or
// Buffer object.
type BufferFieldData struct {
	Source    *Object
	BitOffset uint64
	BitLength uint64
}

// NativeMethod is a method implemented in Go rather than AML. The function
// must deposit its result in the context's return value cell.
type NativeMethod func(ctx *execContext, method *Object, args []*Object) error

// MethodData describes an invocable control method.
type MethodData struct {
	ArgumentCount    uint8
	Serialized       bool
	SyncLevel        uint8
	OsMutex          *HostMutex
	AML              []byte
	IntegerWidthIs32 bool

	// Function is non-nil for methods implemented natively (e.g. \_OSI).
	Function NativeMethod
}

// OperationRegionData describes a named window onto a physical address space.
type OperationRegionData struct {
	Space   RegionSpace
	Offset  uint64
	Length  uint64
	Handler RegionHandler
	OsCtx   interface{}
	OsMutex *HostMutex
}

// PowerResourceData carries the attributes of a PowerResource declaration.
type PowerResourceData struct {
	SystemLevel   uint8
	ResourceOrder uint16
}

// ProcessorData carries the attributes of a Processor declaration.
type ProcessorData struct {
	ProcessorID    uint8
	BlockAddress   uint32
	BlockLength    uint8
}

// UnresolvedNameData is a late-bound reference: a name that was mentioned
// (typically inside a Package) before it was defined. It is resolved on first
// use against the scope captured here.
type UnresolvedNameData struct {
	Name  string
	Scope *Object
}

// Object is the runtime representation of every AML value and namespace node.
type Object struct {
	Type ObjectType

	// Name is the packed 4-byte object name, or zero for anonymous
	// objects.
	Name uint32

	refCount int32

	// immortal marks the statically allocated constants Zero, One and
	// Ones; reference counting is a no-op for them.
	immortal bool

	// Namespace links. Parent is nil for unlinked objects.
	Parent      *Object
	nextSibling *Object
	prevSibling *Object
	firstChild  *Object
	lastChild   *Object

	// Destructor list links; an object sits on at most one destructor
	// list (the active method's created-objects list or a loaded
	// definition block's object list).
	dList *objectList
	dNext *Object
	dPrev *Object

	// Type-specific payloads; Type selects which one is meaningful.
	Integer       uint64
	String        []byte
	Buffer        []byte
	Package       []*Object
	FieldUnit     FieldUnitData
	BufferField   BufferFieldData
	Method        MethodData
	Mutex         *HostMutex
	Event         *HostEvent
	OpRegion      OperationRegionData
	PowerResource PowerResourceData
	Processor     ProcessorData
	Alias         *Object
	Unresolved    UnresolvedNameData
}

// The shared integer constants. Ones comes in two widths; the evaluator picks
// the one matching the current integer width.
var (
	constZero   = &Object{Type: ObjectInteger, refCount: 1, immortal: true, Integer: 0}
	constOne    = &Object{Type: ObjectInteger, refCount: 1, immortal: true, Integer: 1}
	constOnes32 = &Object{Type: ObjectInteger, refCount: 1, immortal: true, Integer: 0xFFFFFFFF}
	constOnes64 = &Object{Type: ObjectInteger, refCount: 1, immortal: true, Integer: 0xFFFFFFFFFFFFFFFF}
)

func isConstant(obj *Object) bool { return obj != nil && obj.immortal }

// addRef increments the object's reference count.
func (o *Object) addRef() {
	if o.immortal {
		return
	}
	o.refCount++
}

// release decrements the reference count, destroying the object when it
// reaches zero.
func (o *Object) release() {
	if o.immortal {
		return
	}
	if o.refCount <= 0 {
		panic("aml: release of object with zero reference count")
	}
	o.refCount--
	if o.refCount == 0 {
		o.destroy()
	}
}

// objectList is an intrusive doubly-linked list threaded through the
// destructor links of its member objects.
type objectList struct {
	head *Object
	tail *Object
}

func (l *objectList) push(o *Object) {
	o.dList = l
	o.dPrev = l.tail
	o.dNext = nil
	if l.tail != nil {
		l.tail.dNext = o
	} else {
		l.head = o
	}
	l.tail = o
}

func (l *objectList) remove(o *Object) {
	if o.dPrev != nil {
		o.dPrev.dNext = o.dNext
	} else {
		l.head = o.dNext
	}
	if o.dNext != nil {
		o.dNext.dPrev = o.dPrev
	} else {
		l.tail = o.dPrev
	}
	o.dList = nil
	o.dNext = nil
	o.dPrev = nil
}

// unlinkFromParent detaches the object from its parent's child list.
func (o *Object) unlinkFromParent() {
	parent := o.Parent
	if parent == nil {
		return
	}
	if o.prevSibling != nil {
		o.prevSibling.nextSibling = o.nextSibling
	} else {
		parent.firstChild = o.nextSibling
	}
	if o.nextSibling != nil {
		o.nextSibling.prevSibling = o.prevSibling
	} else {
		parent.lastChild = o.prevSibling
	}
	o.Parent = nil
	o.nextSibling = nil
	o.prevSibling = nil
}

// linkChild appends child to the object's child list.
func (o *Object) linkChild(child *Object) {
	child.Parent = o
	child.prevSibling = o.lastChild
	child.nextSibling = nil
	if o.lastChild != nil {
		o.lastChild.nextSibling = child
	} else {
		o.firstChild = child
	}
	o.lastChild = child
}

// destroy tears down the object and its entire subtree. The traversal is an
// explicit work stack rather than recursion so that arbitrarily deep
// namespaces cannot exhaust the host stack.
func (o *Object) destroy() {
	o.unlinkFromParent()
	if o.dList != nil {
		o.dList.remove(o)
	}

	var stack objectList
	stack.push(o)
	for stack.head != nil {
		cur := stack.head

		// Children are destroyed before their parent.
		if cur.firstChild != nil {
			child := cur.firstChild
			child.unlinkFromParent()
			if child.dList != nil {
				child.dList.remove(child)
			}
			// Re-push on top of the stack.
			stack.remove(cur)
			stack.push(child)
			stack.push(cur)
			// The child must come off first.
			stack.remove(child)
			child.dPrev = nil
			child.dNext = stack.head
			stack.head.dPrev = child
			stack.head = child
			child.dList = &stack
			continue
		}

		stack.remove(cur)
		cur.releasePayload()
		cur.Type = ObjectUninitialized
	}
}

// releasePayload drops the references and host resources owned by the
// object's payload.
func (o *Object) releasePayload() {
	switch o.Type {
	case ObjectPackage:
		for _, element := range o.Package {
			if element != nil {
				element.release()
			}
		}
		o.Package = nil
	case ObjectFieldUnit:
		if o.FieldUnit.BankRegister != nil {
			o.FieldUnit.BankRegister.release()
			o.FieldUnit.BankValue.release()
		}
		if o.FieldUnit.IndexRegister != nil {
			o.FieldUnit.IndexRegister.release()
			o.FieldUnit.DataRegister.release()
		}
		if o.FieldUnit.Region != nil {
			o.FieldUnit.Region.release()
		}
	case ObjectEvent:
		o.Event = nil
	case ObjectMethod:
		o.Method.OsMutex = nil
	case ObjectMutex:
		o.Mutex = nil
	case ObjectOperationRegion:
		destroyOperationRegion(o)
	case ObjectBufferField:
		if o.BufferField.Source != nil {
			o.BufferField.Source.release()
		}
	case ObjectAlias:
		if o.Alias != nil {
			o.Alias.release()
		}
	case ObjectUnresolvedName:
		if o.Unresolved.Scope != nil {
			o.Unresolved.Scope.release()
		}
	case ObjectString:
		o.String = nil
	case ObjectBuffer:
		o.Buffer = nil
	}
}

// resolveAlias follows alias links to the eventual destination object.
func resolveAlias(obj *Object) *Object {
	for obj != nil && obj.Type == ObjectAlias {
		obj = obj.Alias
	}
	return obj
}

// copyObject produces an unnamed, unlinked duplicate carrying the payload of
// the source. It is not defined for object kinds backed by host resources.
func (ctx *execContext) copyObject(src *Object) (*Object, error) {
	switch src.Type {
	case ObjectDevice, ObjectEvent, ObjectMethod, ObjectMutex, ObjectOperationRegion:
		return nil, errUnexpectedType
	}

	dst, err := ctx.createObject(src.Type, "")
	if err != nil {
		return nil, err
	}
	if err = copyPayload(dst, src); err != nil {
		dst.release()
		return nil, err
	}
	return dst, nil
}

// copyPayload duplicates the payload of src into dst, whose type has already
// been set to match. Package slots are shared, each with a new reference.
func copyPayload(dst, src *Object) error {
	switch src.Type {
	case ObjectInteger:
		dst.Integer = src.Integer
	case ObjectString:
		dst.String = append([]byte(nil), src.String...)
	case ObjectBuffer:
		dst.Buffer = append([]byte(nil), src.Buffer...)
	case ObjectPackage:
		dst.Package = make([]*Object, len(src.Package))
		for i, element := range src.Package {
			dst.Package[i] = element
			if element != nil {
				element.addRef()
			}
		}
	case ObjectFieldUnit:
		dst.FieldUnit = src.FieldUnit
		if dst.FieldUnit.Region != nil {
			dst.FieldUnit.Region.addRef()
		}
		if dst.FieldUnit.BankRegister != nil {
			dst.FieldUnit.BankRegister.addRef()
			dst.FieldUnit.BankValue.addRef()
		}
		if dst.FieldUnit.IndexRegister != nil {
			dst.FieldUnit.IndexRegister.addRef()
			dst.FieldUnit.DataRegister.addRef()
		}
	case ObjectBufferField:
		dst.BufferField = src.BufferField
		if dst.BufferField.Source != nil {
			dst.BufferField.Source.addRef()
		}
	case ObjectAlias:
		dst.Alias = src.Alias
		if dst.Alias != nil {
			dst.Alias.addRef()
		}
	case ObjectUnresolvedName:
		dst.Unresolved = src.Unresolved
		if dst.Unresolved.Scope != nil {
			dst.Unresolved.Scope.addRef()
		}
	case ObjectPowerResource:
		dst.PowerResource = src.PowerResource
	case ObjectProcessor:
		dst.Processor = src.Processor
	case ObjectUninitialized, ObjectThermalZone, ObjectDebug, ObjectDdbHandle:
	default:
		return errUnexpectedType
	}
	return nil
}

// replaceContents retypes dst in place to the kind of src and copies src's
// payload into it, dropping whatever dst owned before. FieldUnit and
// BufferField sources are read first, and the read result is substituted.
func (ctx *execContext) replaceContents(dst, src *Object) error {
	if src.Type == ObjectFieldUnit {
		readResult, err := ctx.readFromField(src)
		if err != nil {
			return err
		}
		err = ctx.replaceContents(dst, readResult)
		readResult.release()
		return err
	}
	if src.Type == ObjectBufferField {
		readResult, err := ctx.readFromBufferField(src)
		if err != nil {
			return err
		}
		err = ctx.replaceContents(dst, readResult)
		readResult.release()
		return err
	}

	dst.releasePayload()
	dst.Type = src.Type
	return copyPayload(dst, src)
}

// packName packs up to four name characters into the inline name field,
// padding short names with '_'.
func packName(name string) uint32 {
	var packed uint32
	for i := 0; i < 4; i++ {
		ch := byte('_')
		if i < len(name) {
			ch = name[i]
		}
		packed |= uint32(ch) << (8 * uint(i))
	}
	return packed
}

// unpackName converts a packed 4-byte name back to its string form.
func unpackName(packed uint32) string {
	if packed == 0 {
		return ""
	}
	return string([]byte{
		byte(packed),
		byte(packed >> 8),
		byte(packed >> 16),
		byte(packed >> 24),
	})
}
