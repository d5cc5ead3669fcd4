package aml

// evalBuffer gathers the declared size, then swallows the initializer bytes
// directly from the stream. The buffer is the larger of the declared size and
// the initializer, zero padded.
func evalBuffer(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger); err != nil {
		return err
	}

	end := int(stmt.AdditionalData)
	list := ctx.aml[ctx.offset:end]
	ctx.offset = end

	if !ctx.executeStatements {
		return nil
	}

	size := int(stmt.Argument[0].Integer)
	if size < len(list) {
		size = len(list)
	}

	data := make([]byte, size)
	copy(data, list)

	buffer, err := ctx.createObject(ObjectBuffer, "")
	if err != nil {
		return ctx.tracedError(err, "Buffer")
	}
	buffer.Buffer = data
	stmt.Reduction = buffer
	return nil
}

// evalPackage builds Package and VarPackage objects. The reduction is created
// before any element arrives so early reductions have somewhere to land;
// element slots beyond the initializer list stay nil until touched.
func evalPackage(ctx *execContext, stmt *Statement) error {
	end := int(stmt.AdditionalData)

	if stmt.Reduction == nil && ctx.executeStatements {
		pkg, err := ctx.createObject(ObjectPackage, "")
		if err != nil {
			return ctx.tracedError(err, "Package")
		}
		stmt.Reduction = pkg
	}

	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if err := ctx.acquireArgument(stmt, argInteger); err != nil {
			return err
		}
	} else if ctx.executeStatements && ctx.previousStatement != nil &&
		ctx.previousStatement.Reduction != nil {

		element := ctx.previousStatement.Reduction
		element.addRef()
		stmt.Reduction.Package = append(stmt.Reduction.Package, element)
	}

	if ctx.offset < end {
		return errMoreProcessing
	}

	if !ctx.executeStatements {
		return nil
	}

	count := int(stmt.AdditionalData2)
	if stmt.Type == stmtVariablePackage {
		count = int(stmt.Argument[0].Integer)
	}
	for len(stmt.Reduction.Package) < count {
		stmt.Reduction.Package = append(stmt.Reduction.Package, nil)
	}
	return nil
}

// evalConcatenate joins two operands. The first operand fixes the result
// type: integers become a buffer holding both values, strings and buffers
// append.
func evalConcatenate(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if ctx.executeStatements && stmt.ArgumentsAcquired == 0 {
			arg := resolveAlias(ctx.previousStatement.Reduction)
			if arg == nil {
				return ctx.tracedError(errArgumentExpected, "Concatenate")
			}
			switch arg.Type {
			case ObjectInteger, ObjectString, ObjectBuffer:
				arg.addRef()
			default:
				converted, err := ctx.convertObjectType(arg, ObjectBuffer)
				if err != nil {
					return ctx.tracedError(err, "Concatenate")
				}
				arg = converted
			}
			stmt.Argument[0] = arg
			stmt.ArgumentsAcquired++
		} else {
			kinds := [3]argKind{argRaw, argRaw, argTarget}
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

	first := stmt.Argument[0]
	second, err := ctx.convertObjectType(resolveAlias(stmt.Argument[1]), first.Type)
	if err != nil {
		return ctx.tracedError(err, "Concatenate")
	}
	defer second.release()

	var result *Object
	switch first.Type {
	case ObjectInteger:
		width := ctx.integerByteWidth()
		data := make([]byte, 2*width)
		for i := 0; i < width; i++ {
			data[i] = byte(first.Integer >> (8 * uint(i)))
			data[width+i] = byte(second.Integer >> (8 * uint(i)))
		}
		result, err = ctx.newBuffer(data)

	case ObjectString:
		joined := make([]byte, 0, len(first.String)+len(second.String))
		joined = append(joined, first.String...)
		joined = append(joined, second.String...)
		result, err = ctx.newString(joined)

	case ObjectBuffer:
		joined := make([]byte, 0, len(first.Buffer)+len(second.Buffer))
		joined = append(joined, first.Buffer...)
		joined = append(joined, second.Buffer...)
		result, err = ctx.newBuffer(joined)
	}
	if err != nil {
		return ctx.tracedError(err, "Concatenate")
	}
	stmt.Reduction = result

	if stmt.Argument[2] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[2]); err != nil {
			return ctx.tracedError(err, "Concatenate")
		}
	}
	return nil
}

// resourceTemplateEndTag is the small resource end tag descriptor byte.
const resourceTemplateEndTag = 0x79

// stripResourceEndTag drops a trailing end tag descriptor and its checksum
// byte, when present.
func stripResourceEndTag(data []byte) []byte {
	if len(data) >= 2 && data[len(data)-2] == resourceTemplateEndTag {
		return data[:len(data)-2]
	}
	return data
}

// evalConcatenateResourceTemplates joins two resource template buffers,
// replacing their end tags with a single fresh one whose checksum byte makes
// the template sum to zero.
func evalConcatenateResourceTemplates(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argRaw, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	buffers := make([][]byte, 2)
	for i := 0; i < 2; i++ {
		arg := resolveAlias(stmt.Argument[i])
		if arg.Type != ObjectBuffer {
			converted, err := ctx.convertObjectType(arg, ObjectBuffer)
			if err != nil {
				return ctx.tracedError(err, "ConcatRes")
			}
			buffers[i] = append([]byte(nil), converted.Buffer...)
			converted.release()
		} else {
			buffers[i] = arg.Buffer
		}
		buffers[i] = stripResourceEndTag(buffers[i])
	}

	data := make([]byte, 0, len(buffers[0])+len(buffers[1])+2)
	data = append(data, buffers[0]...)
	data = append(data, buffers[1]...)
	data = append(data, resourceTemplateEndTag)

	var sum byte
	for _, b := range data {
		sum += b
	}
	data = append(data, -sum)

	result, err := ctx.newBuffer(data)
	if err != nil {
		return ctx.tracedError(err, "ConcatRes")
	}
	stmt.Reduction = result

	if stmt.Argument[2] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[2]); err != nil {
			return ctx.tracedError(err, "ConcatRes")
		}
	}
	return nil
}

// bufferFieldName extracts the name carried by the final operand of a
// CreateField style statement, which reduces to an unresolved name when the
// field does not exist yet.
func bufferFieldName(arg *Object) (string, error) {
	if arg == nil {
		return "", errArgumentExpected
	}
	if arg.Type == ObjectUnresolvedName {
		return arg.Unresolved.Name, nil
	}
	return "", errUnexpectedType
}

// createBufferFieldObject makes the named BufferField over the given source,
// converting a non-buffer source first.
func (ctx *execContext) createBufferFieldObject(stmt *Statement, source *Object, name string, bitOffset, bitLength uint64) error {
	resolved := resolveAlias(source)
	if resolved.Type != ObjectBuffer {
		return ctx.tracedError(errUnexpectedType, stmt.Type.String())
	}

	field, err := ctx.createObject(ObjectBufferField, name)
	if err != nil {
		return ctx.tracedError(err, stmt.Type.String())
	}
	resolved.addRef()
	field.BufferField = BufferFieldData{
		Source:    resolved,
		BitOffset: bitOffset,
		BitLength: bitLength,
	}
	stmt.Reduction = field
	return nil
}

// evalCreateBufferField handles CreateField with an arbitrary bit offset and
// length.
func evalCreateBufferField(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argInteger, argInteger, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	name, err := bufferFieldName(stmt.Argument[3])
	if err != nil {
		return ctx.tracedError(err, "CreateField")
	}
	return ctx.createBufferFieldObject(stmt, stmt.Argument[0], name,
		stmt.Argument[1].Integer, stmt.Argument[2].Integer)
}

// evalCreateBufferFieldFixed handles the fixed width variants: CreateBitField
// indexes bits, the rest index bytes.
func evalCreateBufferFieldFixed(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argInteger, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	name, err := bufferFieldName(stmt.Argument[2])
	if err != nil {
		return ctx.tracedError(err, stmt.Type.String())
	}

	width := stmt.AdditionalData
	bitOffset := stmt.Argument[1].Integer
	if width != 1 {
		bitOffset *= 8
	}
	return ctx.createBufferFieldObject(stmt, stmt.Argument[0], name, bitOffset, width)
}

// evalField creates the field units of a Field list over an operation
// region.
func evalField(ctx *execContext, stmt *Statement) error {
	end := int(stmt.AdditionalData)

	if !ctx.executeStatements {
		ctx.offset = end
		return nil
	}

	region, err := ctx.interp.getNamespaceObject(string(stmt.Argument[0].String), ctx.currentScope)
	if err != nil {
		return ctx.tracedError(err, "Field")
	}
	if resolveAlias(region).Type != ObjectOperationRegion {
		return ctx.tracedError(errUnexpectedType, "Field")
	}

	return ctx.parseFieldList(stmtField, resolveAlias(region), nil, nil, nil, nil,
		end, uint8(stmt.AdditionalData2))
}

// evalIndexField creates field units that reach their storage through a pair
// of index and data field units.
func evalIndexField(ctx *execContext, stmt *Statement) error {
	end := int(stmt.AdditionalData)

	if !ctx.executeStatements {
		ctx.offset = end
		return nil
	}

	index, err := ctx.interp.getNamespaceObject(string(stmt.Argument[0].String), ctx.currentScope)
	if err != nil {
		return ctx.tracedError(err, "IndexField")
	}
	data, err := ctx.interp.getNamespaceObject(string(stmt.Argument[1].String), ctx.currentScope)
	if err != nil {
		return ctx.tracedError(err, "IndexField")
	}
	index = resolveAlias(index)
	data = resolveAlias(data)
	if index.Type != ObjectFieldUnit || data.Type != ObjectFieldUnit {
		return ctx.tracedError(errUnexpectedType, "IndexField")
	}

	return ctx.parseFieldList(stmtIndexField, nil, nil, nil, index, data,
		end, uint8(stmt.AdditionalData2))
}

// evalBankField creates field units guarded by a bank register value. The
// flags byte follows the bank value term in the stream, so it is consumed
// here rather than at creation.
func evalBankField(ctx *execContext, stmt *Statement) error {
	end := int(stmt.AdditionalData)

	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if err := ctx.acquireArgument(stmt, argInteger); err != nil {
			return err
		}
		flags, err := ctx.readStreamByte()
		if err != nil {
			return ctx.tracedError(err, "BankField")
		}
		stmt.AdditionalData2 = uint64(flags)
	}

	if !ctx.executeStatements {
		ctx.offset = end
		return nil
	}

	region, err := ctx.interp.getNamespaceObject(string(stmt.Argument[0].String), ctx.currentScope)
	if err != nil {
		return ctx.tracedError(err, "BankField")
	}
	bank, err := ctx.interp.getNamespaceObject(string(stmt.Argument[1].String), ctx.currentScope)
	if err != nil {
		return ctx.tracedError(err, "BankField")
	}
	region = resolveAlias(region)
	bank = resolveAlias(bank)
	if region.Type != ObjectOperationRegion || bank.Type != ObjectFieldUnit {
		return ctx.tracedError(errUnexpectedType, "BankField")
	}

	return ctx.parseFieldList(stmtBankField, region, bank, stmt.Argument[2],
		nil, nil, end, uint8(stmt.AdditionalData2))
}

// evalOperationRegion creates a named region once its offset and length
// operands are in; the region space byte was recorded at creation.
func evalOperationRegion(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argInteger, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	region, err := ctx.createOperationRegion(string(stmt.Argument[0].String),
		RegionSpace(stmt.AdditionalData), stmt.Argument[1].Integer,
		stmt.Argument[2].Integer)
	if err != nil {
		return ctx.tracedError(err, "OperationRegion")
	}
	stmt.Reduction = region
	return nil
}

// evalMutex creates a named mutex with the sync level from its flags byte.
func evalMutex(ctx *execContext, stmt *Statement) error {
	if !ctx.executeStatements {
		return nil
	}

	mutex, err := ctx.createObject(ObjectMutex, string(stmt.Argument[0].String))
	if err != nil {
		return ctx.tracedError(err, "Mutex")
	}
	mutex.Mutex.SyncLevel = uint8(stmt.AdditionalData) & 0xF
	stmt.Reduction = mutex
	return nil
}

// evalEvent creates a named event.
func evalEvent(ctx *execContext, stmt *Statement) error {
	if !ctx.executeStatements {
		return nil
	}

	event, err := ctx.createObject(ObjectEvent, string(stmt.Argument[0].String))
	if err != nil {
		return ctx.tracedError(err, "Event")
	}
	stmt.Reduction = event
	return nil
}
