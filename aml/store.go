package aml

import "fmt"

// resolveStoreDestination follows aliases and applies the local rebinding
// rule: when the destination is the object bound to the Local slot the
// previous statement evaluated, the slot is rebound to a fresh object and
// that object becomes the destination. Storing through a local therefore
// never mutates a value the local merely referenced.
func (ctx *execContext) resolveStoreDestination(destination *Object) (*Object, error) {
	resolved := resolveAlias(destination)

	m := ctx.currentMethod
	if m != nil && m.lastLocalIndex != invalidLocalIndex &&
		m.LocalVariable[m.lastLocalIndex] == resolved {

		fresh, err := ctx.createObject(ObjectUninitialized, "")
		if err != nil {
			return nil, err
		}
		m.LocalVariable[m.lastLocalIndex].release()
		m.LocalVariable[m.lastLocalIndex] = fresh
		resolved = fresh
	}

	resolved.addRef()
	return resolved, nil
}

// performStoreOperation writes source into destination under the implicit
// store conversion rules. The destination keeps its own type where it has
// one; uninitialized destinations adopt the type of the source.
func (ctx *execContext) performStoreOperation(source, destination *Object) error {
	dest, err := ctx.resolveStoreDestination(destination)
	if err != nil {
		return err
	}
	defer dest.release()

	// Storing to one of the shared constants is a quiet no-op; firmware
	// uses a store to Zero as a bit bucket.
	if isConstant(dest) {
		return nil
	}

	src := source
	var converted *Object

	switch dest.Type {
	case ObjectFieldUnit, ObjectBufferField:
		if src.Type != ObjectInteger && src.Type != ObjectBuffer {
			if converted, err = ctx.convertObjectType(src, ObjectBuffer); err != nil {
				return err
			}
			src = converted
		}
	case ObjectDebug, ObjectUninitialized:
	default:
		if src.Type != dest.Type {
			if converted, err = ctx.convertObjectType(src, dest.Type); err != nil {
				return err
			}
			src = converted
		}
	}
	if converted != nil {
		defer converted.release()
	}

	switch dest.Type {
	case ObjectUninitialized:
		return ctx.replaceContents(dest, src)

	case ObjectInteger:
		dest.Integer = src.Integer

	case ObjectString:
		dest.String = append(dest.String[:0], src.String...)

	case ObjectBuffer:
		// A store into a larger buffer only overwrites its prefix.
		if len(dest.Buffer) >= len(src.Buffer) {
			copy(dest.Buffer, src.Buffer)
		} else {
			dest.Buffer = append([]byte(nil), src.Buffer...)
		}

	case ObjectFieldUnit:
		return ctx.writeToField(dest, src)

	case ObjectBufferField:
		return ctx.writeToBufferField(dest, src)

	case ObjectPackage:
		if src.Type != ObjectPackage {
			return errUnexpectedType
		}
		return ctx.replaceContents(dest, src)

	case ObjectDebug:
		ctx.debugOutput(src)

	default:
		return errNotSupported
	}

	return nil
}

// debugOutput formats an object stored to the Debug destination onto the
// interpreter's debug sink.
func (ctx *execContext) debugOutput(obj *Object) {
	w := ctx.interp.debug
	if w == nil {
		return
	}

	obj = resolveAlias(obj)
	switch obj.Type {
	case ObjectInteger:
		fmt.Fprintf(w, "Debug: 0x%x\n", obj.Integer)
	case ObjectString:
		fmt.Fprintf(w, "Debug: %s\n", obj.String)
	case ObjectBuffer:
		fmt.Fprintf(w, "Debug: % x\n", obj.Buffer)
	default:
		fmt.Fprintf(w, "Debug: <%s>\n", obj.Type)
	}
}
