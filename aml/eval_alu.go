package aml

import "strconv"

// evalIntegerArithmetic handles the two-operand integer operators with an
// optional target: Add, And, Mod, Multiply, Nand, Nor, Or, ShiftLeft,
// ShiftRight, Subtract and Xor.
func evalIntegerArithmetic(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger, argInteger, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	left := ctx.maskToIntegerWidth(stmt.Argument[0].Integer)
	right := ctx.maskToIntegerWidth(stmt.Argument[1].Integer)

	var value uint64
	switch stmt.Type {
	case stmtAdd:
		value = left + right
	case stmtAnd:
		value = left & right
	case stmtMod:
		if right == 0 {
			return ctx.tracedError(errDivideByZero, "Mod")
		}
		value = left % right
	case stmtMultiply:
		value = left * right
	case stmtNand:
		value = ^(left & right)
	case stmtNor:
		value = ^(left | right)
	case stmtOr:
		value = left | right
	case stmtShiftLeft:
		if right >= 64 {
			value = 0
		} else {
			value = left << right
		}
	case stmtShiftRight:
		if right >= 64 {
			value = 0
		} else {
			value = left >> right
		}
	case stmtSubtract:
		value = left - right
	case stmtXor:
		value = left ^ right
	}

	result, err := ctx.newInteger(ctx.maskToIntegerWidth(value))
	if err != nil {
		return ctx.tracedError(err, stmt.Type.String())
	}
	stmt.Reduction = result

	if stmt.Argument[2] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[2]); err != nil {
			return ctx.tracedError(err, stmt.Type.String())
		}
	}
	return nil
}

// evalDivide computes quotient and remainder. The remainder target is the
// third operand and is stored as soon as both operands are in; the quotient
// is both the reduction and the value stored to the fourth operand.
func evalDivide(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		kinds := [4]argKind{argInteger, argInteger, argTarget, argTarget}
		if err := ctx.acquireArgument(stmt, kinds[stmt.ArgumentsAcquired]); err != nil {
			return err
		}
		if ctx.executeStatements && stmt.ArgumentsAcquired == 3 {
			dividend := ctx.maskToIntegerWidth(stmt.Argument[0].Integer)
			divisor := ctx.maskToIntegerWidth(stmt.Argument[1].Integer)
			if divisor == 0 {
				return ctx.tracedError(errDivideByZero, "Divide")
			}

			quotient, err := ctx.newInteger(dividend / divisor)
			if err != nil {
				return ctx.tracedError(err, "Divide")
			}
			stmt.Reduction = quotient

			if stmt.Argument[2] != nil {
				remainder, err := ctx.newInteger(dividend % divisor)
				if err != nil {
					return ctx.tracedError(err, "Divide")
				}
				err = ctx.performStoreOperation(remainder, stmt.Argument[2])
				remainder.release()
				if err != nil {
					return ctx.tracedError(err, "Divide")
				}
			}
		}
		if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
			return errMoreProcessing
		}
	}
	if !ctx.executeStatements {
		return nil
	}

	if stmt.Argument[3] != nil {
		if err := ctx.performStoreOperation(stmt.Reduction, stmt.Argument[3]); err != nil {
			return ctx.tracedError(err, "Divide")
		}
	}
	return nil
}

// evalLogicalExpression covers LAnd, LEqual, LGreater, LLess and LOr,
// producing zero or all ones.
func evalLogicalExpression(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	left := ctx.maskToIntegerWidth(stmt.Argument[0].Integer)
	right := ctx.maskToIntegerWidth(stmt.Argument[1].Integer)

	var truth bool
	switch stmt.Type {
	case stmtLogicalAnd:
		truth = left != 0 && right != 0
	case stmtLogicalEqual:
		truth = left == right
	case stmtLogicalGreater:
		truth = left > right
	case stmtLogicalLess:
		truth = left < right
	case stmtLogicalOr:
		truth = left != 0 || right != 0
	}

	if truth {
		stmt.Reduction = ctx.ones()
	} else {
		stmt.Reduction = constZero
	}
	return nil
}

// evalLogicalNot inverts the truth of its operand, producing zero or all
// ones.
func evalLogicalNot(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	if ctx.maskToIntegerWidth(stmt.Argument[0].Integer) == 0 {
		stmt.Reduction = ctx.ones()
	} else {
		stmt.Reduction = constZero
	}
	return nil
}

// evalNot complements all bits of its operand within the integer width.
func evalNot(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	result, err := ctx.newInteger(ctx.maskToIntegerWidth(^stmt.Argument[0].Integer))
	if err != nil {
		return ctx.tracedError(err, "Not")
	}
	stmt.Reduction = result

	if stmt.Argument[1] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[1]); err != nil {
			return ctx.tracedError(err, "Not")
		}
	}
	return nil
}

// evalIncrementDecrement adds or subtracts one in place. A non-integer or
// shared constant operand is first converted to a fresh integer, adjusted,
// and stored back.
func evalIncrementDecrement(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argRaw); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	operand := resolveAlias(stmt.Argument[0])

	var delta uint64 = 1
	if stmt.Type == stmtDecrement {
		delta = ^uint64(0)
	}

	if operand.Type != ObjectInteger || isConstant(operand) {
		converted, err := ctx.convertObjectType(operand, ObjectInteger)
		if err != nil {
			return ctx.tracedError(err, stmt.Type.String())
		}
		converted.Integer = ctx.maskToIntegerWidth(converted.Integer + delta)
		if err := ctx.performStoreOperation(converted, stmt.Argument[0]); err != nil {
			converted.release()
			return ctx.tracedError(err, stmt.Type.String())
		}
		stmt.Reduction = converted
		return nil
	}

	operand.Integer = ctx.maskToIntegerWidth(operand.Integer + delta)
	operand.addRef()
	stmt.Reduction = operand
	return nil
}

// evalFindSetBit locates the highest or lowest set bit of its operand, one
// based; a zero operand reduces to zero.
func evalFindSetBit(ctx *execContext, stmt *Statement) error {
	if err := ctx.gatherArguments(stmt, argInteger, argTarget); err != nil {
		return err
	}
	if !ctx.executeStatements {
		return nil
	}

	value := ctx.maskToIntegerWidth(stmt.Argument[0].Integer)

	var position uint64
	if value != 0 {
		if stmt.Type == stmtFindSetLeftBit {
			width := 64
			if ctx.integerWidthIs32() {
				width = 32
			}
			for bit := width - 1; bit >= 0; bit-- {
				if value&(1<<uint(bit)) != 0 {
					position = uint64(bit) + 1
					break
				}
			}
		} else {
			for bit := 0; bit < 64; bit++ {
				if value&(1<<uint(bit)) != 0 {
					position = uint64(bit) + 1
					break
				}
			}
		}
	}

	result, err := ctx.newInteger(position)
	if err != nil {
		return ctx.tracedError(err, stmt.Type.String())
	}
	stmt.Reduction = result

	if stmt.Argument[1] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[1]); err != nil {
			return ctx.tracedError(err, stmt.Type.String())
		}
	}
	return nil
}

// Match comparison operators.
const (
	matchOperatorTrue = iota
	matchOperatorEqual
	matchOperatorLessOrEqual
	matchOperatorLess
	matchOperatorGreaterOrEqual
	matchOperatorGreater
)

func matchComparison(operator byte, value, operand uint64) (bool, error) {
	switch operator {
	case matchOperatorTrue:
		return true, nil
	case matchOperatorEqual:
		return value == operand, nil
	case matchOperatorLessOrEqual:
		return value <= operand, nil
	case matchOperatorLess:
		return value < operand, nil
	case matchOperatorGreaterOrEqual:
		return value >= operand, nil
	case matchOperatorGreater:
		return value > operand, nil
	}
	return false, errMalformedStream
}

// evalMatch searches a package for the first element, starting at the given
// index, that satisfies both comparisons. The two comparison opcode bytes sit
// in the stream between the operand terms and are packed into AdditionalData
// as they are passed. No match reduces to all ones.
func evalMatch(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		kinds := [4]argKind{argRaw, argInteger, argInteger, argInteger}
		if err := ctx.acquireArgument(stmt, kinds[stmt.ArgumentsAcquired]); err != nil {
			return err
		}
		if stmt.ArgumentsAcquired == 1 || stmt.ArgumentsAcquired == 2 {
			operator, err := ctx.readStreamByte()
			if err != nil {
				return ctx.tracedError(err, "Match")
			}
			stmt.AdditionalData = stmt.AdditionalData<<8 | uint64(operator)
		}
		if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
			return errMoreProcessing
		}
	}
	if !ctx.executeStatements {
		return nil
	}

	pkg := resolveAlias(stmt.Argument[0])
	if pkg.Type != ObjectPackage {
		return ctx.tracedError(errUnexpectedType, "Match")
	}

	operator1 := byte(stmt.AdditionalData >> 8)
	operator2 := byte(stmt.AdditionalData)
	operand1 := ctx.maskToIntegerWidth(stmt.Argument[1].Integer)
	operand2 := ctx.maskToIntegerWidth(stmt.Argument[2].Integer)

	for index := stmt.Argument[3].Integer; index < uint64(len(pkg.Package)); index++ {
		element, err := ctx.getPackageObject(pkg, index, false)
		if err != nil {
			return ctx.tracedError(err, "Match")
		}

		// Elements that will not convert to an integer are skipped.
		asInteger, err := ctx.convertObjectType(element, ObjectInteger)
		if err != nil {
			continue
		}
		value := ctx.maskToIntegerWidth(asInteger.Integer)
		asInteger.release()

		first, err := matchComparison(operator1, value, operand1)
		if err != nil {
			return ctx.tracedError(err, "Match")
		}
		second, err := matchComparison(operator2, value, operand2)
		if err != nil {
			return ctx.tracedError(err, "Match")
		}
		if first && second {
			result, err := ctx.newInteger(index)
			if err != nil {
				return ctx.tracedError(err, "Match")
			}
			stmt.Reduction = result
			return nil
		}
	}

	stmt.Reduction = ctx.ones()
	return nil
}

// evalToFormat covers the conversion operators: FromBCD, ToBCD, ToBuffer,
// ToDecimalString, ToHexString, ToInteger and ToString. The result is stored
// to the target operand when one is present.
func evalToFormat(ctx *execContext, stmt *Statement) error {
	if stmt.ArgumentsAcquired != stmt.ArgumentsNeeded {
		if ctx.previousStatement == nil {
			return errMoreProcessing
		}
		if stmt.ArgumentsAcquired == 0 {
			switch stmt.Type {
			case stmtFromBcd, stmtToBcd:
				if err := ctx.acquireArgument(stmt, argInteger); err != nil {
					return err
				}
			default:
				if ctx.executeStatements {
					arg := ctx.previousStatement.Reduction
					if arg == nil {
						return ctx.tracedError(errArgumentExpected, stmt.Type.String())
					}
					switch resolveAlias(arg).Type {
					case ObjectInteger, ObjectString, ObjectBuffer:
					default:
						return ctx.tracedError(errUnexpectedType, stmt.Type.String())
					}
					arg.addRef()
					stmt.Argument[0] = arg
				}
				stmt.ArgumentsAcquired++
			}
		} else {
			if err := ctx.acquireArgument(stmt, argTarget); err != nil {
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

	var result *Object
	var err error

	switch stmt.Type {
	case stmtFromBcd:
		value := ctx.maskToIntegerWidth(stmt.Argument[0].Integer)
		var decoded uint64
		for shift := 60; shift >= 0; shift -= 4 {
			nibble := (value >> uint(shift)) & 0xF
			if nibble > 9 {
				return ctx.tracedError(errConversionFailed, "FromBCD")
			}
			decoded = decoded*10 + nibble
		}
		result, err = ctx.newInteger(ctx.maskToIntegerWidth(decoded))

	case stmtToBcd:
		value := ctx.maskToIntegerWidth(stmt.Argument[0].Integer)
		var encoded uint64
		for shift := uint(0); value != 0; shift += 4 {
			if shift >= 64 {
				return ctx.tracedError(errConversionFailed, "ToBCD")
			}
			encoded |= (value % 10) << shift
			value /= 10
		}
		result, err = ctx.newInteger(ctx.maskToIntegerWidth(encoded))

	case stmtToBuffer:
		result, err = ctx.convertObjectType(resolveAlias(stmt.Argument[0]), ObjectBuffer)

	case stmtToDecimalString:
		result, err = ctx.toDecimalString(resolveAlias(stmt.Argument[0]))

	case stmtToHexString:
		source := resolveAlias(stmt.Argument[0])
		if source.Type == ObjectString {
			source.addRef()
			result = source
		} else {
			result, err = ctx.convertObjectType(source, ObjectString)
		}

	case stmtToInteger:
		result, err = ctx.toInteger(resolveAlias(stmt.Argument[0]))

	case stmtToString:
		source := resolveAlias(stmt.Argument[0])
		if source.Type != ObjectBuffer {
			return ctx.tracedError(errUnexpectedType, "ToString")
		}
		data := source.Buffer
		for i, b := range data {
			if b == 0 {
				data = data[:i]
				break
			}
		}
		result, err = ctx.newString(data)
	}

	if err != nil {
		return ctx.tracedError(err, stmt.Type.String())
	}
	stmt.Reduction = result

	if stmt.Argument[1] != nil {
		if err := ctx.performStoreOperation(result, stmt.Argument[1]); err != nil {
			return ctx.tracedError(err, stmt.Type.String())
		}
	}
	return nil
}

// toDecimalString renders an integer as decimal digits, or a buffer as comma
// separated decimal bytes; strings pass through.
func (ctx *execContext) toDecimalString(source *Object) (*Object, error) {
	switch source.Type {
	case ObjectInteger:
		return ctx.newString([]byte(strconv.FormatUint(ctx.maskToIntegerWidth(source.Integer), 10)))

	case ObjectString:
		source.addRef()
		return source, nil

	case ObjectBuffer:
		var out []byte
		for i, b := range source.Buffer {
			if i != 0 {
				out = append(out, ',')
			}
			out = strconv.AppendUint(out, uint64(b), 10)
		}
		return ctx.newString(out)
	}
	return nil, errUnexpectedType
}

// toInteger parses strings as hexadecimal when prefixed with 0x and decimal
// otherwise; buffers and integers follow the standard conversion.
func (ctx *execContext) toInteger(source *Object) (*Object, error) {
	if source.Type != ObjectString {
		return ctx.convertObjectType(source, ObjectInteger)
	}

	text := string(source.String)
	base := 10
	if len(text) >= 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		text = text[2:]
		base = 16
	}

	value, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return nil, errConversionFailed
	}
	return ctx.newInteger(ctx.maskToIntegerWidth(value))
}
