package aml

// evalAcquire attempts to take a mutex. The 16-bit timeout word sits in the
// stream right after the mutex operand, so it is read on the pass that
// completes the gather. Zero means success, all ones means the wait timed
// out.
func evalAcquire(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if err := ctx.acquireArgument(stmt, argRaw); err != nil {
			return err
		}
		timeout, err := ctx.readStreamWord()
		if err != nil {
			return ctx.tracedError(err, "Acquire")
		}
		stmt.AdditionalData = uint64(timeout)
	}
	if !ctx.executeStatements {
		return nil
	}

	mutex := resolveAlias(stmt.Argument[0])
	if mutex.Type != ObjectMutex {
		return ctx.tracedError(errUnexpectedType, "Acquire")
	}

	if mutex.Mutex.acquire(ctx, uint16(stmt.AdditionalData)) {
		stmt.Reduction = constZero
	} else {
		stmt.Reduction = ctx.ones()
	}
	return nil
}

// evalWait blocks on an event for the given timeout; timeouts of 0xFFFF and
// above wait indefinitely. Zero means a signal arrived.
func evalWait(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	event := resolveAlias(stmt.Argument[0])
	if event.Type != ObjectEvent {
		return ctx.tracedError(errUnexpectedType, "Wait")
	}

	timeout := stmt.Argument[1].Integer
	if timeout > mutexWaitIndefinitely {
		timeout = mutexWaitIndefinitely
	}

	if event.Event.wait(uint16(timeout)) {
		stmt.Reduction = constZero
	} else {
		stmt.Reduction = ctx.ones()
	}
	return nil
}

// evalSyncObject covers Release, Reset and Signal, which all take one mutex
// or event operand and produce no value.
func evalSyncObject(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	obj := resolveAlias(stmt.Argument[0])
	switch stmt.Type {
	case stmtRelease:
		if obj.Type != ObjectMutex {
			return ctx.tracedError(errUnexpectedType, "Release")
		}
		obj.Mutex.release()

	case stmtReset:
		if obj.Type != ObjectEvent {
			return ctx.tracedError(errUnexpectedType, "Reset")
		}
		obj.Event.reset()

	case stmtSignal:
		if obj.Type != ObjectEvent {
			return ctx.tracedError(errUnexpectedType, "Signal")
		}
		obj.Event.signal()
	}
	return nil
}

// evalDelay covers Sleep (milliseconds, yielding) and Stall (microseconds,
// spinning).
func evalDelay(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	if stmt.Type == stmtSleep {
		ctx.interp.host.Sleep(stmt.Argument[0].Integer)
	} else {
		ctx.interp.host.Stall(stmt.Argument[0].Integer)
	}
	return nil
}

// evalNotify delivers a notification value for a device, processor, thermal
// zone or power resource to the host.
func evalNotify(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	obj := resolveAlias(stmt.Argument[0])
	switch obj.Type {
	case ObjectDevice, ObjectProcessor, ObjectThermalZone, ObjectPowerResource:
	default:
		return ctx.tracedError(errUnexpectedType, "Notify")
	}

	ctx.interp.host.NotifyOperatingSystem(obj, stmt.Argument[1].Integer)
	return nil
}

// evalFatal reports an unrecoverable firmware error to the host. The inline
// type byte and error code dword precede the argument term in the stream and
// must be consumed before the driver parses that term; AdditionalData2 marks
// whether that has happened yet.
func evalFatal(ctx *execContext, stmt *Statement) error {
	if stmt.AdditionalData2 == 0 {
		stmt.AdditionalData2 = 1

		fatalType, err := ctx.readStreamByte()
		if err != nil {
			return ctx.tracedError(err, "Fatal")
		}
		code, err := ctx.readStreamDword()
		if err != nil {
			return ctx.tracedError(err, "Fatal")
		}
		stmt.AdditionalData = uint64(fatalType)<<32 | uint64(code)
		return errMoreProcessing
	}

	if err := ctx.gatherArguments(stmt, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	ctx.interp.host.FatalError(stmt.AdditionalData>>32,
		stmt.AdditionalData&0xFFFFFFFF, stmt.Argument[0].Integer)
	return nil
}

// evalLoad decodes a definition block from a buffer and executes it as a new
// SSDT, reducing to the DDB handle that Unload accepts.
func evalLoad(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	source, err := ctx.convertObjectType(resolveAlias(stmt.Argument[0]), ObjectBuffer)
	if err != nil {
		return ctx.tracedError(err, "Load")
	}
	defer source.release()

	handle, err := ctx.interp.LoadDefinitionBlock(source.Buffer)
	if err != nil {
		return ctx.tracedError(err, "Load")
	}
	stmt.Reduction = handle

	if stmt.Argument[1] != nil {
		if err := ctx.performStoreOperation(handle, stmt.Argument[1]); err != nil {
			return ctx.tracedError(err, "Load")
		}
	}
	return nil
}

// evalUnload tears down a definition block previously installed by Load.
func evalUnload(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	handle := resolveAlias(stmt.Argument[0])
	if handle.Type != ObjectDdbHandle {
		return ctx.tracedError(errUnexpectedType, "Unload")
	}

	ctx.interp.UnloadDefinitionBlock(handle)
	return nil
}
