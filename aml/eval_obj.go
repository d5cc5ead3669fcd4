package aml

// evalStore performs the Store operator: the source is converted to the
// destination's type and written through; the reduction is the stored value.
func evalStore(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	if err := ctx.performStoreOperation(stmt.Argument[0], stmt.Argument[1]); err != nil {
		return ctx.tracedError(err, "Store")
	}

	stmt.Reduction = stmt.Argument[1]
	stmt.Reduction.addRef()
	return nil
}

// evalCopyObject clones the source as a DataRefObject, without the implicit
// store conversions, and replaces the destination's contents wholesale.
func evalCopyObject(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	source, err := ctx.convertToDataRefObject(stmt.Argument[0])
	if err != nil {
		return ctx.tracedError(err, "CopyObject")
	}

	copied, err := ctx.copyObject(source)
	source.release()
	if err != nil {
		return ctx.tracedError(err, "CopyObject")
	}
	stmt.Reduction = copied

	if stmt.Argument[1] != nil {
		dest, err := ctx.resolveStoreDestination(stmt.Argument[1])
		if err != nil {
			return ctx.tracedError(err, "CopyObject")
		}
		err = ctx.replaceContents(dest, copied)
		dest.release()
		if err != nil {
			return ctx.tracedError(err, "CopyObject")
		}
	}
	return nil
}

// evalIndex produces a reference into a Buffer, String or Package: a one-byte
// BufferField for the former two, an alias to the slot for the latter.
func evalIndex(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if ctx.executeStatements && stmt.ArgumentsAcquired == 0 {
			arg := ctx.previousStatement.Reduction
			if arg == nil {
				return ctx.tracedError(errArgumentExpected, "Index")
			}
			switch arg.Type {
			case ObjectBuffer, ObjectPackage, ObjectString:
				arg.addRef()
			default:
				converted, err := ctx.convertObjectType(arg, ObjectBuffer)
				if err != nil {
					return ctx.tracedError(err, "Index")
				}
				arg = converted
			}
			stmt.Argument[0] = arg
			stmt.ArgumentsAcquired++
		} else {
			kinds := [3]argKind{argRaw, argInteger, argTarget}
			if err := ctx.acquireArgument(stmt, kinds[stmt.ArgumentsAcquired]); err != nil {
				return err
			}
		}
		if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
			return errMoreProcessing
		}
	}
	if !ctx.executeStatements {
		return nil
	}

	source := stmt.Argument[0]
	index := stmt.Argument[1].Integer

	switch source.Type {
	case ObjectString, ObjectBuffer:
		field, err := ctx.createObject(ObjectBufferField, "")
		if err != nil {
			return ctx.tracedError(err, "Index")
		}
		source.addRef()
		field.BufferField = BufferFieldData{
			Source:    source,
			BitOffset: index * 8,
			BitLength: 8,
		}
		stmt.Reduction = field

	case ObjectPackage:
		element, err := ctx.getPackageObject(source, index, true)
		if err != nil {
			return ctx.tracedError(err, "Index")
		}
		alias, err := ctx.createObject(ObjectAlias, "")
		if err != nil {
			return ctx.tracedError(err, "Index")
		}
		element.addRef()
		alias.Alias = element
		stmt.Reduction = alias
	}

	if stmt.Argument[2] != nil {
		if err := ctx.performStoreOperation(stmt.Reduction, stmt.Argument[2]); err != nil {
			return ctx.tracedError(err, "Index")
		}
	}
	return nil
}

// evalDereferenceOf follows an alias, resolves a string as a namespace path,
// or reads through a buffer field.
func evalDereferenceOf(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	obj := stmt.Argument[0]
	switch obj.Type {
	case ObjectAlias:
		dest := obj.Alias
		dest.addRef()
		stmt.Reduction = dest

	case ObjectString:
		resolved, err := ctx.interp.getNamespaceObject(string(obj.String), ctx.currentScope)
		if err != nil {
			return ctx.tracedError(err, "DerefOf")
		}
		resolved.addRef()
		stmt.Reduction = resolved

	case ObjectBufferField:
		result, err := ctx.readFromBufferField(obj)
		if err != nil {
			return ctx.tracedError(err, "DerefOf")
		}
		stmt.Reduction = result

	default:
		return ctx.tracedError(errUnexpectedType, "DerefOf")
	}
	return nil
}

// evalReferenceOf wraps its argument in a fresh alias.
func evalReferenceOf(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	alias, err := ctx.createObject(ObjectAlias, "")
	if err != nil {
		return ctx.tracedError(err, "RefOf")
	}
	stmt.Argument[0].addRef()
	alias.Alias = stmt.Argument[0]
	stmt.Reduction = alias
	return nil
}

// evalConditionalReferenceOf resolves a name without failing on a miss,
// reducing to one or zero and storing the reference when the name exists. The
// source operand may also arrive as a child statement reduction.
func evalConditionalReferenceOf(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			if stmt.ArgumentsAcquired == 0 {
				name, err := ctx.parseNameString()
				if err == nil {
					if ctx.executeStatements {
						obj, lookupErr := ctx.interp.getNamespaceObject(string(name.String), ctx.currentScope)
						if lookupErr == nil {
							obj.addRef()
							stmt.Argument[0] = obj
						}
					}
					name.release()
					stmt.ArgumentsAcquired++
				}
			}
			return errMoreProcessing
		}
		if err := ctx.acquireArgument(stmt, argTarget); err != nil {
			return err
		}
		if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
			return errMoreProcessing
		}
	}
	if !ctx.executeStatements {
		return nil
	}

	found := stmt.Argument[0] != nil && stmt.Argument[0].Type != ObjectUninitialized

	var value uint64
	if found {
		value = 1
	}
	result, err := ctx.newInteger(value)
	if err != nil {
		return ctx.tracedError(err, "CondRefOf")
	}
	stmt.Reduction = result

	if found && stmt.Argument[1] != nil {
		alias, err := ctx.createObject(ObjectAlias, "")
		if err != nil {
			return ctx.tracedError(err, "CondRefOf")
		}
		stmt.Argument[0].addRef()
		alias.Alias = stmt.Argument[0]
		err = ctx.performStoreOperation(alias, stmt.Argument[1])
		alias.release()
		if err != nil {
			return ctx.tracedError(err, "CondRefOf")
		}
	}
	return nil
}

// evalObjectType reduces to the integer kind tag of its argument, following
// aliases.
func evalObjectType(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	resolved := resolveAlias(stmt.Argument[0])
	result, err := ctx.newInteger(uint64(resolved.Type))
	if err != nil {
		return ctx.tracedError(err, "ObjectType")
	}
	stmt.Reduction = result
	return nil
}

// evalSizeOf reduces to the string length, buffer byte count or package
// element count of its argument.
func evalSizeOf(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	var size uint64
	switch resolved := resolveAlias(stmt.Argument[0]); resolved.Type {
	case ObjectString:
		size = uint64(len(resolved.String))
	case ObjectBuffer:
		size = uint64(len(resolved.Buffer))
	case ObjectPackage:
		size = uint64(len(resolved.Package))
	default:
		return ctx.tracedError(errUnexpectedType, "SizeOf")
	}

	result, err := ctx.newInteger(size)
	if err != nil {
		return ctx.tracedError(err, "SizeOf")
	}
	stmt.Reduction = result
	return nil
}

// evalAlias registers a named alias to an existing object. Both names were
// parsed at creation time.
func evalAlias(ctx *execContext, stmt *Statement) error {
	if !ctx.executeStatements {
		return nil
	}

	target, err := ctx.interp.getNamespaceObject(string(stmt.Argument[0].String), ctx.currentScope)
	if err != nil {
		return ctx.tracedError(err, "Alias")
	}

	alias, err := ctx.createObject(ObjectAlias, string(stmt.Argument[1].String))
	if err != nil {
		return ctx.tracedError(err, "Alias")
	}
	target.addRef()
	alias.Alias = target
	stmt.Reduction = alias
	return nil
}

// evalName creates a named object initialized by storing the gathered value
// into it; the object adopts the value's type.
func evalName(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	obj, err := ctx.createObject(ObjectUninitialized, string(stmt.Argument[0].String))
	if err != nil {
		return ctx.tracedError(err, "Name")
	}
	if err := ctx.performStoreOperation(stmt.Argument[1], obj); err != nil {
		obj.release()
		return ctx.tracedError(err, "Name")
	}
	stmt.Reduction = obj
	return nil
}

// evalNameString resolves an in-stream name against the current scope. A miss
// reduces to an UnresolvedName carrying the name and scope, so package bodies
// may reference objects defined later in the block.
func evalNameString(ctx *execContext, stmt *Statement) error {
	if !ctx.executeStatements {
		return nil
	}

	name := string(stmt.Argument[0].String)
	obj, err := ctx.interp.getNamespaceObject(name, ctx.currentScope)
	if err != nil {
		unresolved, createErr := ctx.createObject(ObjectUnresolvedName, "")
		if createErr != nil {
			return ctx.tracedError(createErr, "NameString")
		}
		unresolved.Unresolved = UnresolvedNameData{Name: name, Scope: ctx.currentScope}
		if ctx.currentScope != nil {
			ctx.currentScope.addRef()
		}
		stmt.Reduction = unresolved
		return nil
	}

	obj.addRef()
	stmt.Reduction = obj
	return nil
}

// evalLocal reduces to the method's Local slot, materializing an
// uninitialized object on first touch, and arms the store rebinding rule for
// the statement that consumes the reduction.
func evalLocal(ctx *execContext, stmt *Statement) error {
	if !ctx.executeStatements {
		return nil
	}

	m := ctx.currentMethod
	if m == nil {
		return ctx.tracedError(errNotSupported, "Local")
	}

	index := int(stmt.AdditionalData)
	if m.LocalVariable[index] == nil {
		obj, err := ctx.createObject(ObjectUninitialized, "")
		if err != nil {
			return ctx.tracedError(err, "Local")
		}
		m.LocalVariable[index] = obj
	}

	m.LocalVariable[index].addRef()
	stmt.Reduction = m.LocalVariable[index]
	m.lastLocalIndex = index
	return nil
}

// evalArgument reduces to the method's Arg slot; an unset slot reduces to
// nothing.
func evalArgument(ctx *execContext, stmt *Statement) error {
	if !ctx.executeStatements {
		return nil
	}

	m := ctx.currentMethod
	if m == nil {
		return ctx.tracedError(errNotSupported, "Arg")
	}

	if arg := m.Argument[stmt.AdditionalData]; arg != nil {
		arg.addRef()
		stmt.Reduction = arg
	}
	return nil
}

// evalData materializes an inline literal recorded at parse time: integers of
// 1, 2, 4 or 8 bytes, or a NUL terminated string.
func evalData(ctx *execContext, stmt *Statement) error {
	offset := int(stmt.AdditionalData)
	width := int(stmt.AdditionalData2)

	if width == 0 {
		end := offset
		for end < len(ctx.aml) && ctx.aml[end] != 0 {
			end++
		}
		obj, err := ctx.newString(ctx.aml[offset:end])
		if err != nil {
			return ctx.tracedError(err, "Data")
		}
		stmt.Reduction = obj
		return nil
	}

	var value uint64
	for i := 0; i < width; i++ {
		value |= uint64(ctx.aml[offset+i]) << (8 * uint(i))
	}
	obj, err := ctx.newInteger(value)
	if err != nil {
		return ctx.tracedError(err, "Data")
	}
	stmt.Reduction = obj
	return nil
}

// evalIntegerConstant covers Zero, One, Ones, Revision and Timer.
func evalIntegerConstant(ctx *execContext, stmt *Statement) error {
	switch stmt.Type {
	case stmtZero:
		stmt.Reduction = constZero
	case stmtOne:
		stmt.Reduction = constOne
	case stmtOnes:
		stmt.Reduction = ctx.ones()
	case stmtRevision:
		obj, err := ctx.newInteger(interpreterRevision)
		if err != nil {
			return ctx.tracedError(err, "Revision")
		}
		stmt.Reduction = obj
	case stmtTimer:
		obj, err := ctx.newInteger(ctx.interp.host.Timer())
		if err != nil {
			return ctx.tracedError(err, "Timer")
		}
		stmt.Reduction = obj
	}
	return nil
}

// evalMid extracts a substring or subbuffer. Out-of-range indices clamp to an
// empty result; the result has the source's type and is stored to the target
// operand when one is present.
func evalMid(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if ctx.executeStatements && stmt.ArgumentsAcquired == 0 {
			arg := resolveAlias(ctx.previousStatement.Reduction)
			if arg == nil {
				return ctx.tracedError(errArgumentExpected, "Mid")
			}
			switch arg.Type {
			case ObjectString, ObjectBuffer:
				arg.addRef()
			default:
				converted, err := ctx.convertObjectType(arg, ObjectBuffer)
				if err != nil {
					return ctx.tracedError(err, "Mid")
				}
				arg = converted
			}
			stmt.Argument[0] = arg
			stmt.ArgumentsAcquired++
		} else {
			kinds := [4]argKind{argRaw, argInteger, argInteger, argTarget}
			if err := ctx.acquireArgument(stmt, kinds[stmt.ArgumentsAcquired]); err != nil {
				return err
			}
		}
		if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
			return errMoreProcessing
		}
	}
	if !ctx.executeStatements {
		return nil
	}

	source := stmt.Argument[0]
	data := source.Buffer
	if source.Type == ObjectString {
		data = source.String
	}

	index := stmt.Argument[1].Integer
	length := stmt.Argument[2].Integer
	if index > uint64(len(data)) {
		index = uint64(len(data))
	}
	if length > uint64(len(data))-index {
		length = uint64(len(data)) - index
	}
	slice := data[index : index+length]

	var result *Object
	var err error
	if source.Type == ObjectString {
		result, err = ctx.newString(slice)
	} else {
		result, err = ctx.newBuffer(slice)
	}
	if err != nil {
		return ctx.tracedError(err, "Mid")
	}
	stmt.Reduction = result

	if stmt.Argument[3] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[3]); err != nil {
			return ctx.tracedError(err, "Mid")
		}
	}
	return nil
}

// evalDebug reduces to a fresh Debug object; stores into it land on the debug
// sink.
func evalDebug(ctx *execContext, stmt *Statement) error {
	obj, err := ctx.createObject(ObjectDebug, "")
	if err != nil {
		return ctx.tracedError(err, "Debug")
	}
	stmt.Reduction = obj
	return nil
}
