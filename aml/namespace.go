package aml

// Namespace name grammar: '\' resets resolution to the root, each '^' walks
// one level toward it, and the remainder is a run of 4-character segments.
const (
	rootChar   = '\\'
	parentChar = '^'
	nameLen    = 4
)

// interpreterRevision is the value of \_REV and of the Revision opcode.
const interpreterRevision = 4

// pullOffLastName splits a canonical path into the parent prefix and the
// final 4-character segment.
func pullOffLastName(name string) (parent, last string, err error) {
	if len(name) < nameLen {
		return "", "", errMalformedStream
	}
	return name[:len(name)-nameLen], name[len(name)-nameLen:], nil
}

// findChild returns the direct child of parent carrying the given packed
// name, or nil.
func findChild(parent *Object, packed uint32) *Object {
	for child := parent.firstChild; child != nil; child = child.nextSibling {
		if child.Name == packed {
			return child
		}
	}
	return nil
}

// findNamedObject returns the direct child of parent named name, or nil.
func (ip *Interpreter) findNamedObject(parent *Object, name string) *Object {
	if parent == nil {
		parent = ip.root
	}
	return findChild(parent, packName(name))
}

// getNamespaceObject resolves a canonical path starting at the given scope.
// Relative single-prefix paths that miss on their first segment are retried
// against each ancestor scope up to the root.
func (ip *Interpreter) getNamespaceObject(name string, scope *Object) (*Object, error) {
	current := scope
	if current == nil {
		current = ip.root
	}

	searchUp := true
	i := 0
	if i < len(name) && name[i] == rootChar {
		current = ip.root
		searchUp = false
		i++
	}

	for i < len(name) && name[i] == parentChar {
		searchUp = false
		if current.Parent != nil {
			current = current.Parent
		}
		i++
	}

	if (len(name)-i)%nameLen != 0 {
		return nil, errMalformedStream
	}

	firstSegment := true
	for i < len(name) {
		packed := packName(name[i : i+nameLen])
		child := findChild(current, packed)

		// The relative search rule: a miss on the very first segment
		// of an unprefixed path walks up the ancestor chain before
		// giving up. Any match or prefix disables the walk.
		if child == nil && firstSegment && searchUp {
			for ancestor := current.Parent; ancestor != nil; ancestor = ancestor.Parent {
				if child = findChild(ancestor, packed); child != nil {
					break
				}
			}
		}

		if child == nil {
			return nil, errPathNotFound
		}

		current = child
		firstSegment = false
		i += nameLen
	}

	return current, nil
}

// createObject creates a new object of the given type. A non-empty name
// resolves its parent prefix against the current scope and links the object
// into the namespace; the parent link holds its own reference, balanced by
// the destructor-list entry that will release it when the owning method
// returns or the owning definition block is unloaded. An empty name produces
// an anonymous object owned solely by the caller.
func (ctx *execContext) createObject(typ ObjectType, name string) (*Object, error) {
	var parent *Object

	packed := uint32(0)
	if name != "" {
		scope := ctx.currentScope
		if scope == nil {
			scope = ctx.interp.root
		}

		parentPath, last, err := pullOffLastName(name)
		if err != nil {
			return nil, err
		}

		packed = packName(last)
		if parentPath == "" {
			parent = scope
		} else if parentPath == string(rootChar) {
			parent = ctx.interp.root
		} else {
			parent, err = ctx.interp.getNamespaceObject(parentPath, scope)
			if err != nil {
				return nil, err
			}
		}
	}

	obj := &Object{Type: typ, Name: packed, refCount: 1}
	switch typ {
	case ObjectEvent:
		obj.Event = newHostEvent()
	case ObjectMutex:
		obj.Mutex = newHostMutex(0)
	}

	if parent != nil {
		obj.refCount++
		parent.linkChild(obj)
		if ctx.destructorList != nil {
			ctx.destructorList.push(obj)
		} else if ctx.currentMethod != nil {
			ctx.currentMethod.createdObjects.push(obj)
		}
	}

	return obj, nil
}

// newInteger creates an anonymous Integer object.
func (ctx *execContext) newInteger(value uint64) (*Object, error) {
	obj, err := ctx.createObject(ObjectInteger, "")
	if err != nil {
		return nil, err
	}
	obj.Integer = value
	return obj, nil
}

// newString creates an anonymous String object holding a copy of s.
func (ctx *execContext) newString(s []byte) (*Object, error) {
	obj, err := ctx.createObject(ObjectString, "")
	if err != nil {
		return nil, err
	}
	obj.String = append([]byte(nil), s...)
	return obj, nil
}

// newBuffer creates an anonymous Buffer object holding a copy of b.
func (ctx *execContext) newBuffer(b []byte) (*Object, error) {
	obj, err := ctx.createObject(ObjectBuffer, "")
	if err != nil {
		return nil, err
	}
	obj.Buffer = append([]byte(nil), b...)
	return obj, nil
}

// ones returns the all-ones constant matching the current integer width.
func (ctx *execContext) ones() *Object {
	if ctx.integerWidthIs32() {
		return constOnes32
	}
	return constOnes64
}

// getPackageObject returns the element at the given index of a package,
// lazily resolving UnresolvedName entries and materializing empty slots as
// Uninitialized objects. When convertConstants is set, a slot holding one of
// the shared integer constants is replaced by a fresh mutable Integer so the
// caller can store through the reference.
func (ctx *execContext) getPackageObject(pkg *Object, index uint64, convertConstants bool) (*Object, error) {
	if pkg.Type != ObjectPackage {
		return nil, errUnexpectedType
	}
	if index >= uint64(len(pkg.Package)) {
		return nil, errOutOfBounds
	}

	element := pkg.Package[index]
	if element == nil {
		empty, err := ctx.createObject(ObjectUninitialized, "")
		if err != nil {
			return nil, err
		}
		pkg.Package[index] = empty
		return empty, nil
	}

	if element.Type == ObjectUnresolvedName {
		resolved, err := ctx.interp.getNamespaceObject(element.Unresolved.Name, element.Unresolved.Scope)
		if err != nil {
			return nil, err
		}

		resolved.addRef()
		element.release()
		pkg.Package[index] = resolved
		element = resolved
	}

	if convertConstants && isConstant(element) {
		mutable, err := ctx.newInteger(element.Integer)
		if err != nil {
			return nil, err
		}
		element.release()
		pkg.Package[index] = mutable
		element = mutable
	}

	return element, nil
}

// initializeNamespace builds the default tree: the root, the well-known
// container scopes, the OS identity objects, the built-in _OSI method and the
// global lock mutex.
func (ip *Interpreter) initializeNamespace() error {
	ip.root = &Object{
		Type:     ObjectUninitialized,
		Name:     packName(string(rootChar)),
		refCount: 1,
	}

	ctx := &execContext{interp: ip, currentScope: ip.root}

	systemBus, err := ctx.createObject(ObjectDevice, "_SB_")
	if err != nil {
		return err
	}
	ip.systemBus = systemBus

	if ip.processorRoot, err = ctx.createObject(ObjectUninitialized, "_PR_"); err != nil {
		return err
	}
	if _, err = ctx.createObject(ObjectUninitialized, "_GPE"); err != nil {
		return err
	}

	osName, err := ctx.createObject(ObjectString, "_OS_")
	if err != nil {
		return err
	}
	osName.String = []byte(ip.osName())

	osi, err := ctx.createObject(ObjectMethod, "_OSI")
	if err != nil {
		return err
	}
	osi.Method = MethodData{ArgumentCount: 1, Function: osiMethod}

	revision, err := ctx.createObject(ObjectInteger, "_REV")
	if err != nil {
		return err
	}
	revision.Integer = interpreterRevision

	// The global lock mutex, acquired by fields declaring the Lock flag.
	globalLock, err := ctx.createObject(ObjectMutex, "_GL_")
	if err != nil {
		return err
	}
	ip.globalLock = globalLock

	return nil
}

// Visitor is invoked for every object visited by Visit; returning false
// prunes the subtree below obj.
type Visitor func(depth int, obj *Object) bool

// Visit performs a parent-first DFS over the namespace.
func (ip *Interpreter) Visit(visitorFn Visitor) {
	visitObject(0, ip.root, visitorFn)
}

func visitObject(depth int, obj *Object, visitorFn Visitor) {
	if !visitorFn(depth, obj) {
		return
	}
	for child := obj.firstChild; child != nil; child = child.nextSibling {
		visitObject(depth+1, child, visitorFn)
	}
}
