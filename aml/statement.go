package aml

// statementType discriminates the statements the parser produces. One
// statement roughly corresponds to one AML opcode; the NameString and Data
// pseudo-statements cover in-stream names and literals.
type statementType uint8

const (
	stmtInvalid statementType = iota
	stmtAcquire
	stmtAdd
	stmtAlias
	stmtAnd
	stmtArgument
	stmtBankField
	stmtBreak
	stmtBreakPoint
	stmtBuffer
	stmtConcatenate
	stmtConcatenateResourceTemplates
	stmtConditionalReferenceOf
	stmtContinue
	stmtCopyObject
	stmtCreateBufferField
	stmtCreateBufferFieldFixed
	stmtData
	stmtDataTableRegion
	stmtDebug
	stmtDecrement
	stmtDereferenceOf
	stmtDevice
	stmtDivide
	stmtElse
	stmtEvent
	stmtExecutingMethod
	stmtFatal
	stmtField
	stmtFindSetLeftBit
	stmtFindSetRightBit
	stmtFromBcd
	stmtIf
	stmtIncrement
	stmtIndex
	stmtIndexField
	stmtLoad
	stmtLoadTable
	stmtLocal
	stmtLogicalAnd
	stmtLogicalEqual
	stmtLogicalGreater
	stmtLogicalLess
	stmtLogicalNot
	stmtLogicalOr
	stmtMatch
	stmtMethod
	stmtMid
	stmtMod
	stmtMultiply
	stmtMutex
	stmtName
	stmtNameString
	stmtNand
	stmtNoOp
	stmtNor
	stmtNot
	stmtNotify
	stmtObjectType
	stmtOne
	stmtOnes
	stmtOperationRegion
	stmtOr
	stmtPackage
	stmtPowerResource
	stmtProcessor
	stmtReferenceOf
	stmtRelease
	stmtReset
	stmtReturn
	stmtRevision
	stmtScope
	stmtShiftLeft
	stmtShiftRight
	stmtSignal
	stmtSizeOf
	stmtSleep
	stmtStall
	stmtStore
	stmtSubtract
	stmtThermalZone
	stmtTimer
	stmtToBcd
	stmtToBuffer
	stmtToDecimalString
	stmtToHexString
	stmtToInteger
	stmtToString
	stmtUnload
	stmtVariablePackage
	stmtWait
	stmtWhile
	stmtXor
	stmtZero
	statementTypeCount
)

var statementTypeNames = [statementTypeCount]string{
	stmtInvalid:                      "Invalid",
	stmtAcquire:                      "Acquire",
	stmtAdd:                          "Add",
	stmtAlias:                        "Alias",
	stmtAnd:                          "And",
	stmtArgument:                     "Arg",
	stmtBankField:                    "BankField",
	stmtBreak:                        "Break",
	stmtBreakPoint:                   "BreakPoint",
	stmtBuffer:                       "Buffer",
	stmtConcatenate:                  "Concatenate",
	stmtConcatenateResourceTemplates: "ConcatenateResTemplate",
	stmtConditionalReferenceOf:       "CondRefOf",
	stmtContinue:                     "Continue",
	stmtCopyObject:                   "CopyObject",
	stmtCreateBufferField:            "CreateField",
	stmtCreateBufferFieldFixed:       "CreateFixedField",
	stmtData:                         "Data",
	stmtDataTableRegion:              "DataTableRegion",
	stmtDebug:                        "Debug",
	stmtDecrement:                    "Decrement",
	stmtDereferenceOf:                "DerefOf",
	stmtDevice:                       "Device",
	stmtDivide:                       "Divide",
	stmtElse:                         "Else",
	stmtEvent:                        "Event",
	stmtExecutingMethod:              "ExecutingMethod",
	stmtFatal:                        "Fatal",
	stmtField:                        "Field",
	stmtFindSetLeftBit:               "FindSetLeftBit",
	stmtFindSetRightBit:              "FindSetRightBit",
	stmtFromBcd:                      "FromBCD",
	stmtIf:                           "If",
	stmtIncrement:                    "Increment",
	stmtIndex:                        "Index",
	stmtIndexField:                   "IndexField",
	stmtLoad:                         "Load",
	stmtLoadTable:                    "LoadTable",
	stmtLocal:                        "Local",
	stmtLogicalAnd:                   "LAnd",
	stmtLogicalEqual:                 "LEqual",
	stmtLogicalGreater:               "LGreater",
	stmtLogicalLess:                  "LLess",
	stmtLogicalNot:                   "LNot",
	stmtLogicalOr:                    "LOr",
	stmtMatch:                        "Match",
	stmtMethod:                       "Method",
	stmtMid:                          "Mid",
	stmtMod:                          "Mod",
	stmtMultiply:                     "Multiply",
	stmtMutex:                        "Mutex",
	stmtName:                         "Name",
	stmtNameString:                   "NameString",
	stmtNand:                         "NAnd",
	stmtNoOp:                         "Noop",
	stmtNor:                          "NOr",
	stmtNot:                          "Not",
	stmtNotify:                       "Notify",
	stmtObjectType:                   "ObjectType",
	stmtOne:                          "One",
	stmtOnes:                         "Ones",
	stmtOperationRegion:              "OperationRegion",
	stmtOr:                           "Or",
	stmtPackage:                      "Package",
	stmtPowerResource:                "PowerResource",
	stmtProcessor:                    "Processor",
	stmtReferenceOf:                  "RefOf",
	stmtRelease:                      "Release",
	stmtReset:                        "Reset",
	stmtReturn:                       "Return",
	stmtRevision:                     "Revision",
	stmtScope:                        "Scope",
	stmtShiftLeft:                    "ShiftLeft",
	stmtShiftRight:                   "ShiftRight",
	stmtSignal:                       "Signal",
	stmtSizeOf:                       "SizeOf",
	stmtSleep:                        "Sleep",
	stmtStall:                        "Stall",
	stmtStore:                        "Store",
	stmtSubtract:                     "Subtract",
	stmtThermalZone:                  "ThermalZone",
	stmtTimer:                        "Timer",
	stmtToBcd:                        "ToBCD",
	stmtToBuffer:                     "ToBuffer",
	stmtToDecimalString:              "ToDecimalString",
	stmtToHexString:                  "ToHexString",
	stmtToInteger:                    "ToInteger",
	stmtToString:                     "ToString",
	stmtUnload:                       "Unload",
	stmtVariablePackage:              "VarPackage",
	stmtWait:                         "Wait",
	stmtWhile:                        "While",
	stmtXor:                          "Xor",
	stmtZero:                         "Zero",
}

func (t statementType) String() string {
	if t < statementTypeCount {
		return statementTypeNames[t]
	}
	return "Unknown"
}

// maxStatementArguments is the widest argument list any statement gathers;
// method invocations take up to 7 arguments.
const maxStatementArguments = 7

// Statement is one entry on the execution driver's statement stack. Child
// statements deliver their reductions into the Argument slots; the two
// AdditionalData scalars carry opcode-specific values fixed at parse time
// (package end offsets, inline literal positions, local/argument indices,
// flag bytes).
type Statement struct {
	Type statementType

	ArgumentsNeeded   uint8
	ArgumentsAcquired uint8
	Argument          [maxStatementArguments]*Object

	AdditionalData  uint64
	AdditionalData2 uint64

	// Reduction is the object this statement yields to its parent.
	Reduction *Object

	// SavedScope is the scope to restore when a scope-opening statement
	// completes.
	SavedScope *Object

	// invokedMethod is the method object an ExecutingMethod statement is
	// calling; captured from the NameString reduction that triggered the
	// call.
	invokedMethod *Object

	// waitContext is the caller's activation record. Once the invoked
	// method body is running, the ExecutingMethod statement completes when
	// the context's current method drops back to this value.
	waitContext *methodContext

	// parent is the next statement down the stack.
	parent *Statement
}

// destroy releases the references held by the statement's acquired argument
// slots and by its reduction, if the parent has not captured it.
func (s *Statement) destroy() {
	for i := uint8(0); i < s.ArgumentsAcquired; i++ {
		if s.Argument[i] != nil {
			s.Argument[i].release()
			s.Argument[i] = nil
		}
	}
	if s.Reduction != nil {
		s.Reduction.release()
		s.Reduction = nil
	}
	if s.invokedMethod != nil {
		s.invokedMethod.release()
		s.invokedMethod = nil
	}
}
