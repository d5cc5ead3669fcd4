package aml

// AML opcode values. The single-byte space doubles as the encoding for name
// characters ('A'-'Z', '_', '\', '^', and the dual/multi name prefixes), which
// all dispatch to the NameString creator. Extended opcodes follow the 0x5B
// prefix byte.
const (
	opZero            = 0x00
	opOne             = 0x01
	opAlias           = 0x06
	opName            = 0x08
	opBytePrefix      = 0x0A
	opWordPrefix      = 0x0B
	opDWordPrefix     = 0x0C
	opStringPrefix    = 0x0D
	opQWordPrefix     = 0x0E
	opScope           = 0x10
	opBuffer          = 0x11
	opPackage         = 0x12
	opVarPackage      = 0x13
	opMethod          = 0x14
	opDualNamePrefix  = 0x2E
	opMultiNamePrefix = 0x2F
	opExtendedPrefix  = 0x5B
	opLocal0          = 0x60
	opArg0            = 0x68
	opStore           = 0x70
	opRefOf           = 0x71
	opAdd             = 0x72
	opConcat          = 0x73
	opSubtract        = 0x74
	opIncrement       = 0x75
	opDecrement       = 0x76
	opMultiply        = 0x77
	opDivide          = 0x78
	opShiftLeft       = 0x79
	opShiftRight      = 0x7A
	opAnd             = 0x7B
	opNand            = 0x7C
	opOr              = 0x7D
	opNor             = 0x7E
	opXor             = 0x7F
	opNot             = 0x80
	opFindSetLeftBit  = 0x81
	opFindSetRightBit = 0x82
	opDerefOf         = 0x83
	opConcatRes       = 0x84
	opMod             = 0x85
	opNotify          = 0x86
	opSizeOf          = 0x87
	opIndex           = 0x88
	opMatch           = 0x89
	opCreateDWordFld  = 0x8A
	opCreateWordFld   = 0x8B
	opCreateByteFld   = 0x8C
	opCreateBitFld    = 0x8D
	opObjectType      = 0x8E
	opCreateQWordFld  = 0x8F
	opLAnd            = 0x90
	opLOr             = 0x91
	opLNot            = 0x92
	opLEqual          = 0x93
	opLGreater        = 0x94
	opLLess           = 0x95
	opToBuffer        = 0x96
	opToDecimalString = 0x97
	opToHexString     = 0x98
	opToInteger       = 0x99
	opToString        = 0x9C
	opCopyObject      = 0x9D
	opMid             = 0x9E
	opContinue        = 0x9F
	opIf              = 0xA0
	opElse            = 0xA1
	opWhile           = 0xA2
	opNoop            = 0xA3
	opReturn          = 0xA4
	opBreak           = 0xA5
	opBreakPoint      = 0xCC
	opOnes            = 0xFF
)

// Extended opcodes (second byte after the 0x5B prefix).
const (
	extOpMutex           = 0x01
	extOpEvent           = 0x02
	extOpCondRefOf       = 0x12
	extOpCreateField     = 0x13
	extOpLoadTable       = 0x1F
	extOpLoad            = 0x20
	extOpStall           = 0x21
	extOpSleep           = 0x22
	extOpAcquire         = 0x23
	extOpSignal          = 0x24
	extOpWait            = 0x25
	extOpReset           = 0x26
	extOpRelease         = 0x27
	extOpFromBCD         = 0x28
	extOpToBCD           = 0x29
	extOpUnload          = 0x2A
	extOpRevision        = 0x30
	extOpDebug           = 0x31
	extOpFatal           = 0x32
	extOpTimer           = 0x33
	extOpOperationRegion = 0x80
	extOpField           = 0x81
	extOpDevice          = 0x82
	extOpProcessor       = 0x83
	extOpPowerResource   = 0x84
	extOpThermalZone     = 0x85
	extOpIndexField      = 0x86
	extOpBankField       = 0x87
	extOpDataTableRegion = 0x88
)

// createStatementFn parses one statement from the current stream position into
// stmt, advancing the cursor past the portion consumed at parse time.
type createStatementFn func(ctx *execContext, stmt *Statement) error

var (
	statementCreators [256]createStatementFn
	extendedCreators  [256]createStatementFn
)

func init() {
	statementCreators[opZero] = createConstantStatement(stmtZero)
	statementCreators[opOne] = createConstantStatement(stmtOne)
	statementCreators[opOnes] = createConstantStatement(stmtOnes)
	statementCreators[opAlias] = createAliasStatement
	statementCreators[opName] = createNameStatement
	statementCreators[opBytePrefix] = createDataStatement
	statementCreators[opWordPrefix] = createDataStatement
	statementCreators[opDWordPrefix] = createDataStatement
	statementCreators[opStringPrefix] = createDataStatement
	statementCreators[opQWordPrefix] = createDataStatement
	statementCreators[opScope] = createScopeStatement
	statementCreators[opBuffer] = createBufferStatement
	statementCreators[opPackage] = createPackageStatement
	statementCreators[opVarPackage] = createVariablePackageStatement
	statementCreators[opMethod] = createMethodStatement
	statementCreators[opExtendedPrefix] = createExtendedStatement

	// Bytes that begin a name string dispatch to the NameString creator.
	statementCreators[rootChar] = createNameStringStatement
	statementCreators[parentChar] = createNameStringStatement
	statementCreators['_'] = createNameStringStatement
	statementCreators[opDualNamePrefix] = createNameStringStatement
	statementCreators[opMultiNamePrefix] = createNameStringStatement
	for ch := byte('A'); ch <= 'Z'; ch++ {
		statementCreators[ch] = createNameStringStatement
	}

	for op := opLocal0; op <= opLocal0+7; op++ {
		statementCreators[op] = createLocalStatement
	}
	for op := opArg0; op <= opArg0+6; op++ {
		statementCreators[op] = createArgumentStatement
	}

	statementCreators[opStore] = createOperatorStatement(stmtStore, 2)
	statementCreators[opRefOf] = createOperatorStatement(stmtReferenceOf, 1)
	statementCreators[opAdd] = createOperatorStatement(stmtAdd, 3)
	statementCreators[opConcat] = createOperatorStatement(stmtConcatenate, 3)
	statementCreators[opSubtract] = createOperatorStatement(stmtSubtract, 3)
	statementCreators[opIncrement] = createOperatorStatement(stmtIncrement, 1)
	statementCreators[opDecrement] = createOperatorStatement(stmtDecrement, 1)
	statementCreators[opMultiply] = createOperatorStatement(stmtMultiply, 3)
	statementCreators[opDivide] = createOperatorStatement(stmtDivide, 4)
	statementCreators[opShiftLeft] = createOperatorStatement(stmtShiftLeft, 3)
	statementCreators[opShiftRight] = createOperatorStatement(stmtShiftRight, 3)
	statementCreators[opAnd] = createOperatorStatement(stmtAnd, 3)
	statementCreators[opNand] = createOperatorStatement(stmtNand, 3)
	statementCreators[opOr] = createOperatorStatement(stmtOr, 3)
	statementCreators[opNor] = createOperatorStatement(stmtNor, 3)
	statementCreators[opXor] = createOperatorStatement(stmtXor, 3)
	statementCreators[opNot] = createOperatorStatement(stmtNot, 2)
	statementCreators[opFindSetLeftBit] = createOperatorStatement(stmtFindSetLeftBit, 2)
	statementCreators[opFindSetRightBit] = createOperatorStatement(stmtFindSetRightBit, 2)
	statementCreators[opDerefOf] = createOperatorStatement(stmtDereferenceOf, 1)
	statementCreators[opConcatRes] = createOperatorStatement(stmtConcatenateResourceTemplates, 3)
	statementCreators[opMod] = createOperatorStatement(stmtMod, 3)
	statementCreators[opNotify] = createOperatorStatement(stmtNotify, 2)
	statementCreators[opSizeOf] = createOperatorStatement(stmtSizeOf, 1)
	statementCreators[opIndex] = createOperatorStatement(stmtIndex, 3)
	statementCreators[opMatch] = createMatchStatement
	statementCreators[opCreateDWordFld] = createFixedBufferFieldStatement(32)
	statementCreators[opCreateWordFld] = createFixedBufferFieldStatement(16)
	statementCreators[opCreateByteFld] = createFixedBufferFieldStatement(8)
	statementCreators[opCreateBitFld] = createFixedBufferFieldStatement(1)
	statementCreators[opObjectType] = createOperatorStatement(stmtObjectType, 1)
	statementCreators[opCreateQWordFld] = createFixedBufferFieldStatement(64)
	statementCreators[opLAnd] = createOperatorStatement(stmtLogicalAnd, 2)
	statementCreators[opLOr] = createOperatorStatement(stmtLogicalOr, 2)
	statementCreators[opLNot] = createOperatorStatement(stmtLogicalNot, 1)
	statementCreators[opLEqual] = createOperatorStatement(stmtLogicalEqual, 2)
	statementCreators[opLGreater] = createOperatorStatement(stmtLogicalGreater, 2)
	statementCreators[opLLess] = createOperatorStatement(stmtLogicalLess, 2)
	statementCreators[opToBuffer] = createOperatorStatement(stmtToBuffer, 2)
	statementCreators[opToDecimalString] = createOperatorStatement(stmtToDecimalString, 2)
	statementCreators[opToHexString] = createOperatorStatement(stmtToHexString, 2)
	statementCreators[opToInteger] = createOperatorStatement(stmtToInteger, 2)
	statementCreators[opToString] = createOperatorStatement(stmtToString, 2)
	statementCreators[opCopyObject] = createOperatorStatement(stmtCopyObject, 2)
	statementCreators[opMid] = createOperatorStatement(stmtMid, 4)
	statementCreators[opContinue] = createConstantStatement(stmtContinue)
	statementCreators[opIf] = createIfStatement
	statementCreators[opElse] = createElseStatement
	statementCreators[opWhile] = createWhileStatement
	statementCreators[opNoop] = createConstantStatement(stmtNoOp)
	statementCreators[opReturn] = createOperatorStatement(stmtReturn, 1)
	statementCreators[opBreak] = createConstantStatement(stmtBreak)
	statementCreators[opBreakPoint] = createConstantStatement(stmtBreakPoint)

	extendedCreators[extOpMutex] = createMutexStatement
	extendedCreators[extOpEvent] = createEventStatement
	extendedCreators[extOpCondRefOf] = createOperatorStatement(stmtConditionalReferenceOf, 2)
	extendedCreators[extOpCreateField] = createOperatorStatement(stmtCreateBufferField, 4)
	extendedCreators[extOpLoadTable] = createNotImplementedStatement(stmtLoadTable)
	extendedCreators[extOpLoad] = createOperatorStatement(stmtLoad, 2)
	extendedCreators[extOpStall] = createOperatorStatement(stmtStall, 1)
	extendedCreators[extOpSleep] = createOperatorStatement(stmtSleep, 1)
	extendedCreators[extOpAcquire] = createOperatorStatement(stmtAcquire, 1)
	extendedCreators[extOpSignal] = createOperatorStatement(stmtSignal, 1)
	extendedCreators[extOpWait] = createOperatorStatement(stmtWait, 2)
	extendedCreators[extOpReset] = createOperatorStatement(stmtReset, 1)
	extendedCreators[extOpRelease] = createOperatorStatement(stmtRelease, 1)
	extendedCreators[extOpFromBCD] = createOperatorStatement(stmtFromBcd, 2)
	extendedCreators[extOpToBCD] = createOperatorStatement(stmtToBcd, 2)
	extendedCreators[extOpUnload] = createOperatorStatement(stmtUnload, 1)
	extendedCreators[extOpRevision] = createConstantStatement(stmtRevision)
	extendedCreators[extOpDebug] = createConstantStatement(stmtDebug)
	extendedCreators[extOpFatal] = createFatalStatement
	extendedCreators[extOpTimer] = createConstantStatement(stmtTimer)
	extendedCreators[extOpOperationRegion] = createOperationRegionStatement
	extendedCreators[extOpField] = createFieldStatement
	extendedCreators[extOpDevice] = createDeviceStatement
	extendedCreators[extOpProcessor] = createProcessorStatement
	extendedCreators[extOpPowerResource] = createPowerResourceStatement
	extendedCreators[extOpThermalZone] = createThermalZoneStatement
	extendedCreators[extOpIndexField] = createIndexFieldStatement
	extendedCreators[extOpBankField] = createBankFieldStatement
	extendedCreators[extOpDataTableRegion] = createNotImplementedStatement(stmtDataTableRegion)
}

//
// Stream readers. Every reader validates the remaining stream length and
// leaves the cursor untouched on failure.
//

func (ctx *execContext) readStreamByte() (byte, error) {
	if ctx.offset >= len(ctx.aml) {
		return 0, errMalformedStream
	}
	value := ctx.aml[ctx.offset]
	ctx.offset++
	return value, nil
}

func (ctx *execContext) readStreamWord() (uint16, error) {
	if ctx.offset+2 > len(ctx.aml) {
		return 0, errMalformedStream
	}
	value := uint16(ctx.aml[ctx.offset]) | uint16(ctx.aml[ctx.offset+1])<<8
	ctx.offset += 2
	return value, nil
}

func (ctx *execContext) readStreamDword() (uint32, error) {
	if ctx.offset+4 > len(ctx.aml) {
		return 0, errMalformedStream
	}
	var value uint32
	for i := 0; i < 4; i++ {
		value |= uint32(ctx.aml[ctx.offset+i]) << (8 * uint(i))
	}
	ctx.offset += 4
	return value, nil
}

func (ctx *execContext) readStreamQword() (uint64, error) {
	if ctx.offset+8 > len(ctx.aml) {
		return 0, errMalformedStream
	}
	var value uint64
	for i := 0; i < 8; i++ {
		value |= uint64(ctx.aml[ctx.offset+i]) << (8 * uint(i))
	}
	ctx.offset += 8
	return value, nil
}

// parsePackageLength decodes a package length and returns the absolute end
// offset of the package, which starts counting at the length's own first byte.
// The top two bits of the first byte give the number of follow bytes; with
// follow bytes only the low nibble of the first byte contributes, as the
// least significant bits.
func (ctx *execContext) parsePackageLength() (int, error) {
	start := ctx.offset
	firstByte, err := ctx.readStreamByte()
	if err != nil {
		return 0, err
	}

	followCount := int(firstByte >> 6)
	length := uint64(firstByte)
	if followCount != 0 {
		if ctx.offset+followCount > len(ctx.aml) {
			ctx.offset = start
			return 0, errMalformedStream
		}

		length = 0
		for i := followCount - 1; i >= 0; i-- {
			length = (length << 8) | uint64(ctx.aml[ctx.offset+i])
		}
		length = (length << 4) | uint64(firstByte&0x0F)
		ctx.offset += followCount
	}

	end := start + int(length)
	if end > len(ctx.aml) || end < ctx.offset {
		ctx.offset = start
		return 0, errMalformedStream
	}
	return end, nil
}

func isValidFirstNameCharacter(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isValidNameCharacter(ch byte) bool {
	return isValidFirstNameCharacter(ch) || (ch >= '0' && ch <= '9')
}

// parseNameString decodes a name string from the stream into an anonymous
// String object: the root and parent prefixes are kept verbatim, and the
// dual/multi name markers are stripped, leaving the 4-character segments
// concatenated. The cursor is advanced past the name, or left untouched on
// failure.
func (ctx *execContext) parseNameString() (*Object, error) {
	aml := ctx.aml
	i := ctx.offset

	var name []byte
	if i < len(aml) && aml[i] == rootChar {
		name = append(name, rootChar)
		i++
	} else {
		for i < len(aml) && aml[i] == parentChar {
			name = append(name, parentChar)
			i++
		}
	}

	if i >= len(aml) {
		return nil, errMalformedStream
	}

	segmentCount := 1
	switch aml[i] {
	case 0x00:
		segmentCount = 0
		i++
	case opDualNamePrefix:
		segmentCount = 2
		i++
	case opMultiNamePrefix:
		i++
		if i >= len(aml) {
			return nil, errMalformedStream
		}
		segmentCount = int(aml[i])
		i++
	}

	for segment := 0; segment < segmentCount; segment++ {
		if i+nameLen > len(aml) {
			return nil, errMalformedStream
		}
		if !isValidFirstNameCharacter(aml[i]) {
			return nil, errMalformedStream
		}
		for j := 1; j < nameLen; j++ {
			if !isValidNameCharacter(aml[i+j]) {
				return nil, errMalformedStream
			}
		}
		name = append(name, aml[i:i+nameLen]...)
		i += nameLen
	}

	obj, err := ctx.createObject(ObjectString, "")
	if err != nil {
		return nil, err
	}
	obj.String = name
	ctx.offset = i
	return obj, nil
}

//
// Statement creators.
//

// createConstantStatement covers the opcodes that carry no arguments or
// additional encoding: the integer constants, flow modifiers and no-ops.
func createConstantStatement(typ statementType) createStatementFn {
	return func(ctx *execContext, stmt *Statement) error {
		stmt.Type = typ
		ctx.offset++
		return nil
	}
}

// createOperatorStatement covers the opcodes whose encoding is just the opcode
// followed by a fixed number of term arguments.
func createOperatorStatement(typ statementType, needed uint8) createStatementFn {
	return func(ctx *execContext, stmt *Statement) error {
		stmt.Type = typ
		ctx.offset++
		stmt.ArgumentsNeeded = needed
		return nil
	}
}

// createNotImplementedStatement rejects opcodes the interpreter does not
// support, as parsing cannot proceed past them reliably.
func createNotImplementedStatement(typ statementType) createStatementFn {
	return func(ctx *execContext, stmt *Statement) error {
		stmt.Type = typ
		return ctx.tracedError(errNotSupported, typ.String())
	}
}

func createExtendedStatement(ctx *execContext, stmt *Statement) error {
	if ctx.offset+1 >= len(ctx.aml) {
		return ctx.tracedError(errMalformedStream, "ExtendedOp")
	}

	extended := ctx.aml[ctx.offset+1]
	create := extendedCreators[extended]
	if create == nil {
		return ctx.tracedError(errMalformedStream, "ExtendedOp")
	}

	ctx.offset++
	return create(ctx, stmt)
}

func createNameStringStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtNameString

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "NameString")
	}

	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1
	return nil
}

func createLocalStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtLocal
	stmt.AdditionalData = uint64(ctx.aml[ctx.offset] - opLocal0)
	ctx.offset++
	return nil
}

func createArgumentStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtArgument
	stmt.AdditionalData = uint64(ctx.aml[ctx.offset] - opArg0)
	ctx.offset++
	return nil
}

// createDataStatement records the position and width of an inline literal.
// A width of zero in AdditionalData2 marks a NUL terminated string literal.
func createDataStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtData
	opcode := ctx.aml[ctx.offset]
	ctx.offset++
	stmt.AdditionalData = uint64(ctx.offset)

	switch opcode {
	case opBytePrefix:
		stmt.AdditionalData2 = 1
	case opWordPrefix:
		stmt.AdditionalData2 = 2
	case opDWordPrefix:
		stmt.AdditionalData2 = 4
	case opQWordPrefix:
		stmt.AdditionalData2 = 8
	case opStringPrefix:
		stmt.AdditionalData2 = 0
		for {
			ch, err := ctx.readStreamByte()
			if err != nil {
				return ctx.tracedError(err, "Data")
			}
			if ch == 0 {
				return nil
			}
		}
	}

	if ctx.offset+int(stmt.AdditionalData2) > len(ctx.aml) {
		return ctx.tracedError(errMalformedStream, "Data")
	}
	ctx.offset += int(stmt.AdditionalData2)
	return nil
}

func createAliasStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtAlias
	ctx.offset++

	source, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Alias")
	}
	stmt.Argument[0] = source
	stmt.ArgumentsAcquired++

	alias, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Alias")
	}
	stmt.Argument[1] = alias
	stmt.ArgumentsAcquired++
	stmt.ArgumentsNeeded = 2
	return nil
}

func createNameStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtName
	ctx.offset++

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Name")
	}

	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 2
	stmt.ArgumentsAcquired = 1
	return nil
}

func createScopeStatement(ctx *execContext, stmt *Statement) error {
	return createScopeLikeStatement(ctx, stmt, stmtScope)
}

func createDeviceStatement(ctx *execContext, stmt *Statement) error {
	return createScopeLikeStatement(ctx, stmt, stmtDevice)
}

func createThermalZoneStatement(ctx *execContext, stmt *Statement) error {
	return createScopeLikeStatement(ctx, stmt, stmtThermalZone)
}

// createScopeLikeStatement parses the shared encoding of Scope, Device and
// ThermalZone: a package length followed by the name of the scope to open.
func createScopeLikeStatement(ctx *execContext, stmt *Statement, typ statementType) error {
	stmt.Type = typ
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, typ.String())
	}
	stmt.AdditionalData = uint64(end)

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, typ.String())
	}

	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1
	return nil
}

func createBufferStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtBuffer
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "Buffer")
	}

	stmt.AdditionalData = uint64(end)
	stmt.ArgumentsNeeded = 1
	return nil
}

func createPackageStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtPackage
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "Package")
	}
	stmt.AdditionalData = uint64(end)

	count, err := ctx.readStreamByte()
	if err != nil {
		return ctx.tracedError(err, "Package")
	}
	stmt.AdditionalData2 = uint64(count)
	return nil
}

func createVariablePackageStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtVariablePackage
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "VarPackage")
	}

	stmt.AdditionalData = uint64(end)
	stmt.ArgumentsNeeded = 1
	return nil
}

func createMethodStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtMethod
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "Method")
	}
	stmt.AdditionalData = uint64(end)

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Method")
	}
	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1

	flags, err := ctx.readStreamByte()
	if err != nil {
		return ctx.tracedError(err, "Method")
	}
	stmt.AdditionalData2 = uint64(flags)
	return nil
}

func createIfStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtIf
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "If")
	}

	stmt.AdditionalData = uint64(end)
	stmt.ArgumentsNeeded = 1
	return nil
}

func createElseStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtElse
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "Else")
	}

	stmt.AdditionalData = uint64(end)
	return nil
}

// createWhileStatement remembers both the loop's end offset and the offset of
// its predicate, so the evaluator can rewind for each iteration.
func createWhileStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtWhile
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "While")
	}

	stmt.AdditionalData = uint64(end)
	stmt.AdditionalData2 = uint64(ctx.offset)
	stmt.ArgumentsNeeded = 1
	return nil
}

func createMatchStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtMatch
	ctx.offset++
	stmt.ArgumentsNeeded = 4
	stmt.AdditionalData = 0
	return nil
}

// createFixedBufferFieldStatement covers CreateBitField through
// CreateQWordField, recording the field width in AdditionalData.
func createFixedBufferFieldStatement(bitWidth uint64) createStatementFn {
	return func(ctx *execContext, stmt *Statement) error {
		stmt.Type = stmtCreateBufferFieldFixed
		ctx.offset++
		stmt.ArgumentsNeeded = 3
		stmt.AdditionalData = bitWidth
		return nil
	}
}

// createFatalStatement records the offset of the inline type byte and error
// code dword; the evaluator consumes them before gathering its argument.
func createFatalStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtFatal
	ctx.offset++
	stmt.AdditionalData = uint64(ctx.offset)
	stmt.ArgumentsNeeded = 1
	return nil
}

func createMutexStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtMutex
	ctx.offset++

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Mutex")
	}
	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1

	syncFlags, err := ctx.readStreamByte()
	if err != nil {
		return ctx.tracedError(err, "Mutex")
	}
	stmt.AdditionalData = uint64(syncFlags)
	return nil
}

func createEventStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtEvent
	ctx.offset++

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Event")
	}

	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1
	return nil
}

func createOperationRegionStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtOperationRegion
	ctx.offset++

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "OperationRegion")
	}
	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 3
	stmt.ArgumentsAcquired = 1

	space, err := ctx.readStreamByte()
	if err != nil {
		return ctx.tracedError(err, "OperationRegion")
	}
	stmt.AdditionalData = uint64(space)
	return nil
}

func createFieldStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtField
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "Field")
	}
	stmt.AdditionalData = uint64(end)

	region, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Field")
	}
	stmt.Argument[0] = region
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1

	flags, err := ctx.readStreamByte()
	if err != nil {
		return ctx.tracedError(err, "Field")
	}
	stmt.AdditionalData2 = uint64(flags)
	return nil
}

func createIndexFieldStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtIndexField
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "IndexField")
	}
	stmt.AdditionalData = uint64(end)

	index, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "IndexField")
	}
	stmt.Argument[0] = index
	stmt.ArgumentsAcquired++

	data, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "IndexField")
	}
	stmt.Argument[1] = data
	stmt.ArgumentsAcquired++
	stmt.ArgumentsNeeded = 2

	flags, err := ctx.readStreamByte()
	if err != nil {
		return ctx.tracedError(err, "IndexField")
	}
	stmt.AdditionalData2 = uint64(flags)
	return nil
}

// createBankFieldStatement pre-parses the region and bank register names; the
// bank value is a term argument, and the flags byte that follows it is
// consumed by the evaluator.
func createBankFieldStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtBankField
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "BankField")
	}
	stmt.AdditionalData = uint64(end)

	region, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "BankField")
	}
	stmt.Argument[0] = region
	stmt.ArgumentsAcquired++

	bank, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "BankField")
	}
	stmt.Argument[1] = bank
	stmt.ArgumentsAcquired++
	stmt.ArgumentsNeeded = 3
	return nil
}

func createProcessorStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtProcessor
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "Processor")
	}
	stmt.AdditionalData = uint64(end)

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "Processor")
	}
	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1

	// Processor ID byte, P_BLK address dword, P_BLK length byte.
	stmt.AdditionalData2 = uint64(ctx.offset)
	if ctx.offset+6 > len(ctx.aml) {
		return ctx.tracedError(errMalformedStream, "Processor")
	}
	ctx.offset += 6
	return nil
}

func createPowerResourceStatement(ctx *execContext, stmt *Statement) error {
	stmt.Type = stmtPowerResource
	ctx.offset++

	end, err := ctx.parsePackageLength()
	if err != nil {
		return ctx.tracedError(err, "PowerResource")
	}
	stmt.AdditionalData = uint64(end)

	name, err := ctx.parseNameString()
	if err != nil {
		return ctx.tracedError(err, "PowerResource")
	}
	stmt.Argument[0] = name
	stmt.ArgumentsNeeded = 1
	stmt.ArgumentsAcquired = 1

	// System level byte and resource order word.
	stmt.AdditionalData2 = uint64(ctx.offset)
	if ctx.offset+3 > len(ctx.aml) {
		return ctx.tracedError(errMalformedStream, "PowerResource")
	}
	ctx.offset += 3
	return nil
}
