package aml

// evalIf gathers the predicate, skips the body when it is zero, and records
// the outcome for a following Else.
func evalIf(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			ctx.indentation++
			return errMoreProcessing
		}
		if err := ctx.acquireArgument(stmt, argInteger); err != nil {
			return err
		}
		if ctx.executeStatements {
			stmt.AdditionalData2 = 1
			if stmt.Argument[0].Integer == 0 {
				stmt.AdditionalData2 = 0
				ctx.offset = int(stmt.AdditionalData)
			}
		}
	}

	if ctx.offset < int(stmt.AdditionalData) {
		return errMoreProcessing
	}

	ctx.indentation--
	ctx.lastIfResult = stmt.AdditionalData2 != 0
	return nil
}

// evalElse skips its body when the preceding If was taken.
func evalElse(ctx *execContext, stmt *Statement) error {
	if ctx.previousStatement == nil {
		ctx.indentation++
		if ctx.executeStatements && ctx.lastIfResult {
			ctx.offset = int(stmt.AdditionalData)
		}
	}

	if ctx.offset < int(stmt.AdditionalData) {
		return errMoreProcessing
	}

	ctx.indentation--
	return nil
}

// evalWhile re-gathers its predicate for every iteration: when the body's end
// is reached the cursor rewinds to the predicate and the acquired argument is
// dropped so the next pass converts a fresh value.
func evalWhile(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			ctx.indentation++
			return errMoreProcessing
		}
		if err := ctx.acquireArgument(stmt, argInteger); err != nil {
			return err
		}
		if ctx.executeStatements && stmt.Argument[0].Integer == 0 {
			ctx.offset = int(stmt.AdditionalData)
			ctx.indentation--
			return nil
		}
	}

	if ctx.offset < int(stmt.AdditionalData) {
		return errMoreProcessing
	}

	if ctx.executeStatements {
		ctx.offset = int(stmt.AdditionalData2)
		stmt.Argument[0].release()
		stmt.Argument[0] = nil
		stmt.ArgumentsAcquired = 0
		return errMoreProcessing
	}

	ctx.indentation--
	return nil
}

// evalWhileModifier implements Break and Continue by unwinding the statement
// stack to the innermost While.
func evalWhileModifier(ctx *execContext, stmt *Statement) error {
	if ctx.executeStatements {
		ctx.popExecutingStatements(true, stmt.Type == stmtContinue)
	}
	return nil
}

// evalReturn deposits its argument in the context's return value cell and
// unwinds both the statement stack and the current activation.
func evalReturn(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	if ctx.returnValue != nil {
		ctx.returnValue.release()
		ctx.returnValue = nil
	}
	if stmt.Argument[0] != nil {
		stmt.Argument[0].addRef()
		ctx.returnValue = stmt.Argument[0]
	}

	ctx.popExecutingStatements(false, false)
	ctx.popCurrentMethodContext()
	return nil
}

// evalExecutingMethod is the synthetic statement the driver pushes when a
// reduction turns out to be a method object. It gathers the call's arguments,
// pushes the activation and then idles until the activation pops back to the
// caller's, at which point the context's return value becomes its reduction.
func evalExecutingMethod(ctx *execContext, stmt *Statement) error {
	if stmt.waitContext != nil {
		// The body is executing (or done).
		if ctx.currentMethod == stmt.waitContext {
			if stmt.Reduction = ctx.returnValue; stmt.Reduction != nil {
				stmt.Reduction.addRef()
			}
			ctx.indentation--
			return nil
		}

		// Running off the end of the body without a Return yields zero.
		// The statements below this one on the stack belong to the
		// caller and stay put; they are waiting for the reduction.
		if ctx.offset == len(ctx.aml) {
			if ctx.returnValue == nil {
				zero, err := ctx.newInteger(0)
				if err != nil {
					return err
				}
				ctx.returnValue = zero
			}
			ctx.popCurrentMethodContext()
			stmt.Reduction = ctx.returnValue
			stmt.Reduction.addRef()
			ctx.indentation--
			return nil
		}
		return errMoreProcessing
	}

	if stmt.invokedMethod == nil {
		prev := ctx.previousStatement
		if prev == nil || prev.Reduction == nil || prev.Reduction.Type != ObjectMethod {
			return ctx.tracedError(errArgumentExpected, "ExecutingMethod")
		}
		prev.Reduction.addRef()
		stmt.invokedMethod = prev.Reduction
		stmt.ArgumentsNeeded = stmt.invokedMethod.Method.ArgumentCount
		if stmt.ArgumentsNeeded != 0 {
			return errMoreProcessing
		}
	} else if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if err := ctx.acquireArgument(stmt, argRaw); err != nil {
			return err
		}
		if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
			return errMoreProcessing
		}
	}

	ctx.indentation++
	stmt.waitContext = ctx.currentMethod

	method := stmt.invokedMethod
	err := ctx.pushMethodContext(method, method.Method.OsMutex,
		method.Method.IntegerWidthIs32, method.Method.AML,
		stmt.Argument[:stmt.ArgumentsNeeded])
	if err != nil {
		ctx.indentation--
		return err
	}

	// Native methods have already completed.
	if method.Method.Function != nil {
		if stmt.Reduction = ctx.returnValue; stmt.Reduction != nil {
			stmt.Reduction.addRef()
		}
		ctx.indentation--
		return nil
	}

	// An empty body falls off the end before the driver gets to parse
	// anything from it.
	if ctx.offset == len(ctx.aml) {
		if ctx.returnValue == nil {
			zero, err := ctx.newInteger(0)
			if err != nil {
				return err
			}
			ctx.returnValue = zero
		}
		ctx.popCurrentMethodContext()
		stmt.Reduction = ctx.returnValue
		stmt.Reduction.addRef()
		ctx.indentation--
		return nil
	}
	return errMoreProcessing
}

// evalMethod registers a named method object covering the body and skips the
// cursor past it. The body only runs when the method is invoked.
func evalMethod(ctx *execContext, stmt *Statement) error {
	end := int(stmt.AdditionalData)

	if !ctx.executeStatements {
		// Parse-only traversal descends into the body.
		if ctx.previousStatement == nil {
			ctx.indentation++
		}
		if ctx.offset < end {
			return errMoreProcessing
		}
		ctx.indentation--
		return nil
	}

	method, err := ctx.createObject(ObjectMethod, string(stmt.Argument[0].String))
	if err != nil {
		return ctx.tracedError(err, "Method")
	}

	flags := uint8(stmt.AdditionalData2)
	method.Method = MethodData{
		ArgumentCount:    flags & 0x07,
		Serialized:       flags&0x08 != 0,
		SyncLevel:        flags >> 4,
		AML:              ctx.aml[ctx.offset:end],
		IntegerWidthIs32: ctx.integerWidthIs32(),
	}
	if method.Method.Serialized {
		method.Method.OsMutex = newHostMutex(method.Method.SyncLevel)
	}

	// Deliberately not the reduction: a method reduction means a call.
	method.release()
	ctx.offset = end
	return nil
}

// evalScope switches the current scope to a named existing object for the
// duration of its body.
func evalScope(ctx *execContext, stmt *Statement) error {
	if ctx.previousStatement == nil {
		if ctx.executeStatements {
			scope, err := ctx.interp.getNamespaceObject(string(stmt.Argument[0].String), ctx.currentScope)
			if err != nil {
				return ctx.tracedError(err, "Scope")
			}
			stmt.SavedScope = ctx.currentScope
			ctx.currentScope = scope
		}
		ctx.indentation++
	}

	if ctx.offset < int(stmt.AdditionalData) {
		return errMoreProcessing
	}

	if ctx.executeStatements {
		ctx.currentScope = stmt.SavedScope
		stmt.SavedScope = nil
	}
	ctx.indentation--
	return nil
}

// evalScopeCreator covers Device, ThermalZone, PowerResource and Processor:
// create the named object, make it the scope for the body, and restore the
// previous scope when the body ends.
func evalScopeCreator(ctx *execContext, stmt *Statement, typ ObjectType) error {
	if ctx.previousStatement == nil {
		if ctx.executeStatements {
			obj, err := ctx.createObject(typ, string(stmt.Argument[0].String))
			if err != nil {
				return ctx.tracedError(err, stmt.Type.String())
			}
			stmt.Reduction = obj
			stmt.SavedScope = ctx.currentScope
			ctx.currentScope = obj
		}
		ctx.indentation++
	}

	if ctx.offset < int(stmt.AdditionalData) {
		return errMoreProcessing
	}

	if ctx.executeStatements {
		ctx.currentScope = stmt.SavedScope
		stmt.SavedScope = nil
	}
	ctx.indentation--
	return nil
}

func evalDevice(ctx *execContext, stmt *Statement) error {
	return evalScopeCreator(ctx, stmt, ObjectDevice)
}

func evalThermalZone(ctx *execContext, stmt *Statement) error {
	return evalScopeCreator(ctx, stmt, ObjectThermalZone)
}

// evalPowerResource decodes the inline system level byte and resource order
// word before opening the body scope.
func evalPowerResource(ctx *execContext, stmt *Statement) error {
	if ctx.previousStatement == nil && ctx.executeStatements {
		inline := int(stmt.AdditionalData2)
		err := evalScopeCreator(ctx, stmt, ObjectPowerResource)
		if stmt.Reduction != nil {
			stmt.Reduction.PowerResource = PowerResourceData{
				SystemLevel:   ctx.aml[inline],
				ResourceOrder: uint16(ctx.aml[inline+1]) | uint16(ctx.aml[inline+2])<<8,
			}
		}
		return err
	}
	return evalScopeCreator(ctx, stmt, ObjectPowerResource)
}

// evalProcessor decodes the inline processor ID, P_BLK address and P_BLK
// length before opening the body scope.
func evalProcessor(ctx *execContext, stmt *Statement) error {
	if ctx.previousStatement == nil && ctx.executeStatements {
		inline := int(stmt.AdditionalData2)
		err := evalScopeCreator(ctx, stmt, ObjectProcessor)
		if stmt.Reduction != nil {
			aml := ctx.aml
			stmt.Reduction.Processor = ProcessorData{
				ProcessorID: aml[inline],
				BlockAddress: uint32(aml[inline+1]) | uint32(aml[inline+2])<<8 |
					uint32(aml[inline+3])<<16 | uint32(aml[inline+4])<<24,
				BlockLength: aml[inline+5],
			}
		}
		return err
	}
	return evalScopeCreator(ctx, stmt, ObjectProcessor)
}

// evalNoOp covers NoOp and BreakPoint, which the interpreter treats as inert.
func evalNoOp(ctx *execContext, stmt *Statement) error {
	return nil
}
