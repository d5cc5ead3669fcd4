package aml

import "fmt"

// integerWidthIs32 reports whether the currently executing method treats
// integers as 32-bit values. Definition blocks with a header revision below 2
// run in 32-bit mode.
func (ctx *execContext) integerWidthIs32() bool {
	if ctx.currentMethod != nil {
		return ctx.currentMethod.integerWidthIs32
	}
	return false
}

// maskToIntegerWidth truncates a value to the current integer width.
func (ctx *execContext) maskToIntegerWidth(value uint64) uint64 {
	if ctx.integerWidthIs32() {
		return value & 0xFFFFFFFF
	}
	return value
}

// integerByteWidth returns 4 or 8 depending on the current integer width.
func (ctx *execContext) integerByteWidth() int {
	if ctx.integerWidthIs32() {
		return 4
	}
	return 8
}

// convertObjectType converts an object to the requested type, following
// aliases first. FieldUnit and BufferField sources are read (yielding an
// Integer or Buffer) and the read result is converted. The returned object is
// anonymous and owned by the caller.
func (ctx *execContext) convertObjectType(obj *Object, newType ObjectType) (*Object, error) {
	obj = resolveAlias(obj)

	var readResult *Object
	switch obj.Type {
	case ObjectFieldUnit:
		result, err := ctx.readFromField(obj)
		if err != nil {
			return nil, err
		}
		if result.Type == newType {
			return result, nil
		}
		readResult = result
		obj = result
	case ObjectBufferField:
		result, err := ctx.readFromBufferField(obj)
		if err != nil {
			return nil, err
		}
		if result.Type == newType {
			return result, nil
		}
		readResult = result
		obj = result
	}

	var (
		converted *Object
		err       error
	)

	switch newType {
	case ObjectInteger:
		converted, err = ctx.convertToInteger(obj)
	case ObjectString:
		converted, err = ctx.convertToString(obj)
	case ObjectBuffer:
		converted, err = ctx.convertToBuffer(obj)
	default:
		err = errConversionFailed
	}

	if readResult != nil {
		readResult.release()
	}

	return converted, err
}

// convertToInteger converts an Integer, Buffer or String to a fresh Integer.
// Strings are read as hex digits; a leading 0x is tolerated and skipped.
func (ctx *execContext) convertToInteger(obj *Object) (*Object, error) {
	var value uint64

	switch obj.Type {
	case ObjectInteger:
		value = obj.Integer
	case ObjectBuffer:
		copySize := len(obj.Buffer)
		if copySize > 8 {
			copySize = 8
		}
		for i := 0; i < copySize; i++ {
			value |= uint64(obj.Buffer[i]) << (8 * uint(i))
		}
	case ObjectString:
		s := obj.String
		if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s = s[2:]
		}
	digitLoop:
		for _, ch := range s {
			var digit uint64
			switch {
			case ch >= '0' && ch <= '9':
				digit = uint64(ch - '0')
			case ch >= 'a' && ch <= 'f':
				digit = uint64(ch-'a') + 10
			case ch >= 'A' && ch <= 'F':
				digit = uint64(ch-'A') + 10
			default:
				break digitLoop
			}
			value = (value << 4) | digit
		}
	default:
		return nil, errConversionFailed
	}

	return ctx.newInteger(value)
}

// convertToString converts an Integer, String or Buffer to a fresh String.
// Integers become fixed-width lowercase hex; buffers become space-separated
// two-digit hex values.
func (ctx *execContext) convertToString(obj *Object) (*Object, error) {
	switch obj.Type {
	case ObjectInteger:
		var text string
		if ctx.integerWidthIs32() {
			text = fmt.Sprintf("%08x", uint32(obj.Integer))
		} else {
			text = fmt.Sprintf("%016x", obj.Integer)
		}
		return ctx.newString([]byte(text))
	case ObjectString:
		return ctx.newString(obj.String)
	case ObjectBuffer:
		text := make([]byte, 0, len(obj.Buffer)*3)
		for i, b := range obj.Buffer {
			if i > 0 {
				text = append(text, ' ')
			}
			text = append(text, hexDigits[b>>4], hexDigits[b&0xF])
		}
		return ctx.newString(text)
	}
	return nil, errConversionFailed
}

var hexDigits = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', 'a', 'b', 'c', 'd', 'e', 'f',
}

// convertToBuffer converts an Integer, String or Buffer to a fresh Buffer.
// Integers produce their little-endian bytes at the current integer width;
// strings include their terminating NUL.
func (ctx *execContext) convertToBuffer(obj *Object) (*Object, error) {
	switch obj.Type {
	case ObjectInteger:
		width := ctx.integerByteWidth()
		data := make([]byte, width)
		for i := 0; i < width; i++ {
			data[i] = byte(obj.Integer >> (8 * uint(i)))
		}
		return ctx.newBuffer(data)
	case ObjectString:
		data := make([]byte, 0, len(obj.String)+1)
		if len(obj.String) != 0 {
			data = append(data, obj.String...)
			data = append(data, 0)
		}
		return ctx.newBuffer(data)
	case ObjectBuffer:
		return ctx.newBuffer(obj.Buffer)
	}
	return nil, errConversionFailed
}

// convertToDataRefObject reduces an object to one of the DataRefObject kinds:
// field units and buffer fields are read, data kinds gain a reference, and
// everything else fails.
func (ctx *execContext) convertToDataRefObject(obj *Object) (*Object, error) {
	obj = resolveAlias(obj)

	switch obj.Type {
	case ObjectFieldUnit:
		return ctx.readFromField(obj)
	case ObjectBufferField:
		return ctx.readFromBufferField(obj)
	case ObjectInteger, ObjectString, ObjectBuffer, ObjectPackage, ObjectDdbHandle:
		obj.addRef()
		return obj, nil
	}
	return nil, errNotSupported
}

// argumentAsInteger gathers the previous statement's reduction as an Integer,
// converting when necessary. The returned object carries a reference owned by
// the statement argument slot.
func (ctx *execContext) argumentAsInteger() (*Object, error) {
	arg := ctx.takeArgument()
	if arg == nil {
		return nil, errArgumentExpected
	}

	resolved := resolveAlias(arg)
	if resolved.Type == ObjectInteger {
		if resolved != arg {
			resolved.addRef()
			arg.release()
		}
		return resolved, nil
	}

	converted, err := ctx.convertObjectType(arg, ObjectInteger)
	arg.release()
	if err != nil {
		return nil, err
	}
	return converted, nil
}
