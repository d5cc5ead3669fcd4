package aml

import "fmt"

// maxLocalVariables is the number of Local slots available to a method.
const maxLocalVariables = 8

// invalidLocalIndex marks the last-local tracker as unset.
const invalidLocalIndex = -1

// methodContext is one activation record on the chain of executing methods.
// It owns the method's argument and local slots, the list of named objects
// the method created (torn down when the activation pops), and the caller's
// saved execution position.
type methodContext struct {
	method           *Object
	methodMutex      *HostMutex
	integerWidthIs32 bool

	Argument      [maxStatementArguments]*Object
	LocalVariable [maxLocalVariables]*Object

	// lastLocalIndex is the Local slot evaluated by the immediately
	// preceding statement, or invalidLocalIndex. A store whose destination
	// is that slot's object rebinds the slot instead of mutating the
	// shared value.
	lastLocalIndex int

	createdObjects objectList

	callingMethod    *methodContext
	savedAML         []byte
	savedOffset      int
	savedIndentation int
	savedScope       *Object
}

// execContext carries the complete state of one AML execution: the code and
// cursor, the statement stack, the activation chain and the return value
// cell.
type execContext struct {
	interp *Interpreter

	aml    []byte
	offset int

	currentScope  *Object
	currentMethod *methodContext

	// stackTop is the innermost statement being evaluated; statements link
	// downward through their parent pointers.
	stackTop *Statement

	// previousStatement is the most recently completed statement; its
	// reduction is the argument currently being delivered to the stack
	// top.
	previousStatement *Statement

	returnValue *Object

	// lastIfResult feeds a subsequent Else statement.
	lastIfResult bool

	// executeStatements distinguishes execution from parse-only traversal
	// of the stream.
	executeStatements bool

	// destructorList, when set, overrides the owner of created named
	// objects; definition block loads point it at the block's object list
	// so the objects die with the block.
	destructorList *objectList

	indentation int
}

// evaluateStatementFn advances one statement. A return of errMoreProcessing
// means the statement needs another child statement before it can reduce.
type evaluateStatementFn func(ctx *execContext, stmt *Statement) error

var statementEvaluators [statementTypeCount]evaluateStatementFn

func init() {
	statementEvaluators[stmtAcquire] = evalAcquire
	statementEvaluators[stmtAdd] = evalIntegerArithmetic
	statementEvaluators[stmtAlias] = evalAlias
	statementEvaluators[stmtAnd] = evalIntegerArithmetic
	statementEvaluators[stmtArgument] = evalArgument
	statementEvaluators[stmtBankField] = evalBankField
	statementEvaluators[stmtBreak] = evalWhileModifier
	statementEvaluators[stmtBreakPoint] = evalNoOp
	statementEvaluators[stmtBuffer] = evalBuffer
	statementEvaluators[stmtConcatenate] = evalConcatenate
	statementEvaluators[stmtConcatenateResourceTemplates] = evalConcatenateResourceTemplates
	statementEvaluators[stmtConditionalReferenceOf] = evalConditionalReferenceOf
	statementEvaluators[stmtContinue] = evalWhileModifier
	statementEvaluators[stmtCopyObject] = evalCopyObject
	statementEvaluators[stmtCreateBufferField] = evalCreateBufferField
	statementEvaluators[stmtCreateBufferFieldFixed] = evalCreateBufferFieldFixed
	statementEvaluators[stmtData] = evalData
	statementEvaluators[stmtDebug] = evalDebug
	statementEvaluators[stmtDecrement] = evalIncrementDecrement
	statementEvaluators[stmtDereferenceOf] = evalDereferenceOf
	statementEvaluators[stmtDevice] = evalDevice
	statementEvaluators[stmtDivide] = evalDivide
	statementEvaluators[stmtElse] = evalElse
	statementEvaluators[stmtEvent] = evalEvent
	statementEvaluators[stmtExecutingMethod] = evalExecutingMethod
	statementEvaluators[stmtFatal] = evalFatal
	statementEvaluators[stmtField] = evalField
	statementEvaluators[stmtFindSetLeftBit] = evalFindSetBit
	statementEvaluators[stmtFindSetRightBit] = evalFindSetBit
	statementEvaluators[stmtFromBcd] = evalToFormat
	statementEvaluators[stmtIf] = evalIf
	statementEvaluators[stmtIncrement] = evalIncrementDecrement
	statementEvaluators[stmtIndex] = evalIndex
	statementEvaluators[stmtIndexField] = evalIndexField
	statementEvaluators[stmtLoad] = evalLoad
	statementEvaluators[stmtLocal] = evalLocal
	statementEvaluators[stmtLogicalAnd] = evalLogicalExpression
	statementEvaluators[stmtLogicalEqual] = evalLogicalExpression
	statementEvaluators[stmtLogicalGreater] = evalLogicalExpression
	statementEvaluators[stmtLogicalLess] = evalLogicalExpression
	statementEvaluators[stmtLogicalNot] = evalLogicalNot
	statementEvaluators[stmtLogicalOr] = evalLogicalExpression
	statementEvaluators[stmtMatch] = evalMatch
	statementEvaluators[stmtMethod] = evalMethod
	statementEvaluators[stmtMid] = evalMid
	statementEvaluators[stmtMod] = evalIntegerArithmetic
	statementEvaluators[stmtMultiply] = evalIntegerArithmetic
	statementEvaluators[stmtMutex] = evalMutex
	statementEvaluators[stmtName] = evalName
	statementEvaluators[stmtNameString] = evalNameString
	statementEvaluators[stmtNand] = evalIntegerArithmetic
	statementEvaluators[stmtNoOp] = evalNoOp
	statementEvaluators[stmtNor] = evalIntegerArithmetic
	statementEvaluators[stmtNot] = evalNot
	statementEvaluators[stmtNotify] = evalNotify
	statementEvaluators[stmtObjectType] = evalObjectType
	statementEvaluators[stmtOne] = evalIntegerConstant
	statementEvaluators[stmtOnes] = evalIntegerConstant
	statementEvaluators[stmtOperationRegion] = evalOperationRegion
	statementEvaluators[stmtOr] = evalIntegerArithmetic
	statementEvaluators[stmtPackage] = evalPackage
	statementEvaluators[stmtPowerResource] = evalPowerResource
	statementEvaluators[stmtProcessor] = evalProcessor
	statementEvaluators[stmtReferenceOf] = evalReferenceOf
	statementEvaluators[stmtRelease] = evalSyncObject
	statementEvaluators[stmtReset] = evalSyncObject
	statementEvaluators[stmtReturn] = evalReturn
	statementEvaluators[stmtRevision] = evalIntegerConstant
	statementEvaluators[stmtScope] = evalScope
	statementEvaluators[stmtShiftLeft] = evalIntegerArithmetic
	statementEvaluators[stmtShiftRight] = evalIntegerArithmetic
	statementEvaluators[stmtSignal] = evalSyncObject
	statementEvaluators[stmtSizeOf] = evalSizeOf
	statementEvaluators[stmtSleep] = evalDelay
	statementEvaluators[stmtStall] = evalDelay
	statementEvaluators[stmtStore] = evalStore
	statementEvaluators[stmtSubtract] = evalIntegerArithmetic
	statementEvaluators[stmtThermalZone] = evalThermalZone
	statementEvaluators[stmtTimer] = evalIntegerConstant
	statementEvaluators[stmtToBcd] = evalToFormat
	statementEvaluators[stmtToBuffer] = evalToFormat
	statementEvaluators[stmtToDecimalString] = evalToFormat
	statementEvaluators[stmtToHexString] = evalToFormat
	statementEvaluators[stmtToInteger] = evalToFormat
	statementEvaluators[stmtToString] = evalToFormat
	statementEvaluators[stmtUnload] = evalUnload
	statementEvaluators[stmtVariablePackage] = evalPackage
	statementEvaluators[stmtWait] = evalWait
	statementEvaluators[stmtWhile] = evalWhile
	statementEvaluators[stmtXor] = evalIntegerArithmetic
	statementEvaluators[stmtZero] = evalIntegerConstant
}

// run is the main execution loop. It alternates between evaluating the stack
// top (delivering the previous statement's reduction to it) and parsing the
// next statement from the stream. The loop exits when the cursor reaches the
// end of the outermost AML buffer with an empty stack.
func (ctx *execContext) run() error {
	for {
		if ctx.stackTop != nil {
			stmt := ctx.stackTop
			err := ctx.evaluateStatement(stmt)

			// The delivered argument has been consumed either way.
			if ctx.previousStatement != nil {
				ctx.previousStatement.destroy()
				ctx.previousStatement = nil
			}

			if err == nil {
				ctx.stackTop = stmt.parent
				stmt.parent = nil
				ctx.previousStatement = stmt

				// A reduction to a method object is a call: push a
				// synthetic statement to gather its arguments and
				// execute the body.
				if stmt.Reduction != nil && stmt.Reduction.Type == ObjectMethod {
					call := &Statement{Type: stmtExecutingMethod}
					call.parent = ctx.stackTop
					ctx.stackTop = call
				}
				continue
			}
			if err != errMoreProcessing {
				return err
			}
		}

		if ctx.previousStatement != nil {
			ctx.previousStatement.destroy()
			ctx.previousStatement = nil
		}

		if ctx.offset == len(ctx.aml) {
			if ctx.stackTop != nil {
				return ctx.tracedError(errMalformedStream, ctx.stackTop.Type.String())
			}
			break
		}

		stmt, err := ctx.createNextStatement()
		if err != nil {
			return err
		}
		stmt.parent = ctx.stackTop
		ctx.stackTop = stmt
	}
	return nil
}

// createNextStatement dispatches on the first stream byte to parse one
// statement.
func (ctx *execContext) createNextStatement() (*Statement, error) {
	create := statementCreators[ctx.aml[ctx.offset]]
	if create == nil {
		return nil, ctx.tracedError(errMalformedStream, fmt.Sprintf("opcode 0x%02x", ctx.aml[ctx.offset]))
	}

	stmt := &Statement{}
	if err := create(ctx, stmt); err != nil {
		stmt.destroy()
		return nil, err
	}

	if w := ctx.interp.trace; w != nil {
		indent := ctx.indentation
		if indent < 0 {
			indent = 0
		}
		fmt.Fprintf(w, "%*s%s\n", indent*2, "", stmt.Type)
	}
	return stmt, nil
}

// evaluateStatement runs one evaluation pass over a statement. The last-local
// tracker only survives across the single statement that consumes the Local
// reduction.
func (ctx *execContext) evaluateStatement(stmt *Statement) error {
	evaluate := statementEvaluators[stmt.Type]
	if evaluate == nil {
		return ctx.tracedError(errNotSupported, stmt.Type.String())
	}

	err := evaluate(ctx, stmt)

	if stmt.Type != stmtLocal && ctx.currentMethod != nil {
		ctx.currentMethod.lastLocalIndex = invalidLocalIndex
	}
	return err
}

// argKind selects how acquireArgument treats the delivered reduction.
type argKind uint8

const (
	// argRaw takes the reduction as-is; a missing reduction is an error.
	argRaw argKind = iota

	// argInteger converts the reduction to an Integer, reading through
	// fields and following aliases.
	argInteger

	// argTarget takes the reduction as-is and tolerates a missing one;
	// optional store targets use this.
	argTarget
)

// acquireArgument captures the previous statement's reduction into the next
// free argument slot. In parse-only mode the slot is filled with nil so the
// acquisition count still advances.
func (ctx *execContext) acquireArgument(stmt *Statement, kind argKind) error {
	if !ctx.executeStatements {
		stmt.Argument[stmt.ArgumentsAcquired] = nil
		stmt.ArgumentsAcquired++
		return nil
	}

	var arg *Object
	switch kind {
	case argTarget:
		arg = ctx.previousStatement.Reduction
		if arg != nil {
			arg.addRef()
		}
	case argRaw:
		arg = ctx.previousStatement.Reduction
		if arg == nil {
			return ctx.tracedError(errArgumentExpected, stmt.Type.String())
		}
		arg.addRef()
	case argInteger:
		converted, err := ctx.argumentAsInteger()
		if err != nil {
			return ctx.tracedError(err, stmt.Type.String())
		}
		arg = converted
	}

	stmt.Argument[stmt.ArgumentsAcquired] = arg
	stmt.ArgumentsAcquired++
	return nil
}

// gatherArguments drives the standard argument acquisition loop: one slot per
// evaluation pass, in the order given by kinds. It returns nil once every
// slot is filled.
func (ctx *execContext) gatherArguments(stmt *Statement, kinds ...argKind) error {
	if stmt.ArgumentsAcquired == stmt.ArgumentsNeeded {
		return nil
	}
	if ctx.previousStatement == nil {
		return errMoreProcessing
	}
	if err := ctx.acquireArgument(stmt, kinds[stmt.ArgumentsAcquired]); err != nil {
		return err
	}
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		return errMoreProcessing
	}
	return nil
}

// takeArgument transfers ownership of the previous statement's reduction to
// the caller, or returns nil when there is none.
func (ctx *execContext) takeArgument() *Object {
	prev := ctx.previousStatement
	if prev == nil || prev.Reduction == nil {
		return nil
	}
	arg := prev.Reduction
	prev.Reduction = nil
	return arg
}

// popExecutingStatements unwinds completed-but-unreduced statements sitting
// behind the stack top. With popToWhile clear the unwind stops short of the
// innermost ExecutingMethod statement; Return uses this. With popToWhile set
// it stops at the innermost While and moves the cursor to the end of the loop
// body: Continue leaves the While in place so its predicate is re-tested,
// Break destroys it as well.
func (ctx *execContext) popExecutingStatements(popToWhile, continueWhile bool) {
	top := ctx.stackTop
	if top == nil {
		return
	}

	for stmt := top.parent; stmt != nil; stmt = top.parent {
		if popToWhile && stmt.Type == stmtWhile {
			ctx.offset = int(stmt.AdditionalData)
			if !continueWhile {
				top.parent = stmt.parent
				stmt.parent = nil
				stmt.destroy()
			}
			return
		}
		if !popToWhile && stmt.Type == stmtExecutingMethod {
			return
		}

		top.parent = stmt.parent
		stmt.parent = nil
		stmt.destroy()
	}
}

// pushMethodContext stacks a new method activation and redirects execution to
// the given AML. Natively implemented methods run to completion immediately
// and leave no activation behind.
func (ctx *execContext) pushMethodContext(method *Object, methodMutex *HostMutex, integerWidthIs32 bool, code []byte, args []*Object) error {
	if method != nil && method.Type == ObjectMethod && method.Method.Function != nil {
		return method.Method.Function(ctx, method, args)
	}

	m := &methodContext{
		method:           method,
		methodMutex:      methodMutex,
		integerWidthIs32: integerWidthIs32,
		lastLocalIndex:   invalidLocalIndex,
		callingMethod:    ctx.currentMethod,
		savedAML:         ctx.aml,
		savedOffset:      ctx.offset,
		savedIndentation: ctx.indentation,
		savedScope:       ctx.currentScope,
	}

	for i, arg := range args {
		if i >= len(m.Argument) {
			break
		}
		if arg != nil {
			arg.addRef()
		}
		m.Argument[i] = arg
	}

	// Serialized methods hold their mutex for the whole activation.
	if methodMutex != nil {
		methodMutex.acquire(ctx, mutexWaitIndefinitely)
	}

	scope := ctx.interp.root
	if method != nil && method.Parent != nil {
		scope = method.Parent
	}

	ctx.currentMethod = m
	ctx.aml = code
	ctx.offset = 0
	ctx.currentScope = scope
	return nil
}

// popCurrentMethodContext tears down the innermost activation: locals,
// arguments and the objects the method created all drop their references, the
// method mutex is released and the caller's execution position is restored.
func (ctx *execContext) popCurrentMethodContext() {
	m := ctx.currentMethod
	if m == nil {
		return
	}

	if ctx.previousStatement != nil {
		ctx.previousStatement.destroy()
		ctx.previousStatement = nil
	}

	for i, local := range m.LocalVariable {
		if local != nil {
			local.release()
			m.LocalVariable[i] = nil
		}
	}
	for i, arg := range m.Argument {
		if arg != nil {
			arg.release()
			m.Argument[i] = nil
		}
	}

	// Each object leaves the list before it is released so that a release
	// cascading into other list members never follows stale links.
	for m.createdObjects.head != nil {
		obj := m.createdObjects.head
		m.createdObjects.remove(obj)
		obj.release()
	}

	if m.methodMutex != nil {
		m.methodMutex.release()
	}

	ctx.currentMethod = m.callingMethod
	ctx.aml = m.savedAML
	ctx.offset = m.savedOffset
	ctx.indentation = m.savedIndentation
	ctx.currentScope = m.savedScope
}

// destroy releases everything the context still holds: the statement stack,
// the pending previous statement, the activation chain and the return value.
func (ctx *execContext) destroy() {
	for ctx.stackTop != nil {
		stmt := ctx.stackTop
		ctx.stackTop = stmt.parent
		stmt.parent = nil
		stmt.destroy()
	}
	if ctx.previousStatement != nil {
		ctx.previousStatement.destroy()
		ctx.previousStatement = nil
	}
	for ctx.currentMethod != nil {
		ctx.popCurrentMethodContext()
	}
	if ctx.returnValue != nil {
		ctx.returnValue.release()
		ctx.returnValue = nil
	}
}
