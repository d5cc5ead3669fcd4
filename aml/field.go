package aml

// fieldAccessBits returns the width in bits of one aligned region access for
// the given declared access kind.
func fieldAccessBits(access FieldAccess) uint64 {
	switch access {
	case FieldAccessWord:
		return 16
	case FieldAccessDWord:
		return 32
	case FieldAccessQWord:
		return 64
	}
	// Any, Byte and Buffer access all go byte by byte.
	return 8
}

func alignDown(value, alignment uint64) uint64 {
	return value &^ (alignment - 1)
}

func alignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// parseFieldLength decodes a package-length encoding and returns its raw
// value. Field lists use the encoding as a plain bit count rather than as a
// span of the stream.
func (ctx *execContext) parseFieldLength() (uint64, error) {
	firstByte, err := ctx.readStreamByte()
	if err != nil {
		return 0, err
	}

	followCount := int(firstByte >> 6)
	length := uint64(firstByte)
	if followCount != 0 {
		if ctx.offset+followCount > len(ctx.aml) {
			return 0, errMalformedStream
		}
		length = 0
		for i := followCount - 1; i >= 0; i-- {
			length = (length << 8) | uint64(ctx.aml[ctx.offset+i])
		}
		length = (length << 4) | uint64(firstByte&0x0F)
		ctx.offset += followCount
	}
	return length, nil
}

// parseFieldList walks the entries of a Field, IndexField or BankField body,
// creating one named FieldUnit per named entry. Reserved gaps advance the
// running bit offset; an AccessAs entry replaces the access attributes for
// the entries that follow it.
func (ctx *execContext) parseFieldList(typ statementType, region, bankRegister, bankValue, indexRegister, dataRegister *Object, endOffset int, flags uint8) error {
	template := FieldUnitData{
		Region:            region,
		Access:            FieldAccess(flags & 0x0F),
		AcquireGlobalLock: flags&0x10 != 0,
		UpdateRule:        FieldUpdateRule((flags >> 5) & 0x3),
		BankRegister:      bankRegister,
		BankValue:         bankValue,
		IndexRegister:     indexRegister,
		DataRegister:      dataRegister,
	}

	for ctx.offset < endOffset {
		switch ctx.aml[ctx.offset] {
		case 0x00:
			// Reserved gap.
			ctx.offset++
			bits, err := ctx.parseFieldLength()
			if err != nil {
				return ctx.tracedError(err, typ.String())
			}
			template.BitOffset += bits

		case 0x01:
			// AccessAs: an access flags byte plus an attribute byte,
			// which is accepted and ignored.
			ctx.offset++
			accessFlags, err := ctx.readStreamByte()
			if err != nil {
				return ctx.tracedError(err, typ.String())
			}
			if _, err = ctx.readStreamByte(); err != nil {
				return ctx.tracedError(err, typ.String())
			}
			template.Access = FieldAccess(accessFlags & 0x0F)
			template.AcquireGlobalLock = accessFlags&0x10 != 0
			template.UpdateRule = FieldUpdateRule((accessFlags >> 5) & 0x3)

		default:
			if ctx.offset+nameLen > endOffset {
				return ctx.tracedError(errMalformedStream, typ.String())
			}
			name := string(ctx.aml[ctx.offset : ctx.offset+nameLen])
			ctx.offset += nameLen

			bits, err := ctx.parseFieldLength()
			if err != nil {
				return ctx.tracedError(err, typ.String())
			}
			if bits == 0 {
				return ctx.tracedError(errMalformedStream, typ.String())
			}

			if ctx.executeStatements {
				unit, err := ctx.createObject(ObjectFieldUnit, name)
				if err != nil {
					return ctx.tracedError(err, typ.String())
				}
				unit.FieldUnit = template
				unit.FieldUnit.BitLength = bits
				if template.Region != nil {
					template.Region.addRef()
				}
				if template.BankRegister != nil {
					template.BankRegister.addRef()
					template.BankValue.addRef()
				}
				if template.IndexRegister != nil {
					template.IndexRegister.addRef()
					template.DataRegister.addRef()
				}
				// The namespace link keeps it alive.
				unit.release()
			}
			template.BitOffset += bits
		}
	}
	return nil
}

// acquireFieldLocks takes, in order, the bank or index region's mutex with
// the bank selection write, the main region's mutex and the global lock. It
// returns a function undoing the acquisitions in reverse order.
func (ctx *execContext) acquireFieldLocks(data *FieldUnitData) (func(), error) {
	var acquired []func()
	unlock := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i]()
		}
	}

	if data.BankRegister != nil {
		if data.BankRegister.Type != ObjectFieldUnit {
			return nil, errUnexpectedType
		}
		if bankRegion := data.BankRegister.FieldUnit.Region; bankRegion != nil {
			bankRegion.OpRegion.OsMutex.acquire(ctx, mutexWaitIndefinitely)
			mutex := bankRegion.OpRegion.OsMutex
			acquired = append(acquired, mutex.release)
		}
		if err := ctx.performStoreOperation(data.BankValue, data.BankRegister); err != nil {
			unlock()
			return nil, err
		}
	}

	if data.IndexRegister != nil {
		if data.IndexRegister.Type != ObjectFieldUnit || data.DataRegister == nil ||
			data.DataRegister.Type != ObjectFieldUnit {
			unlock()
			return nil, errUnexpectedType
		}
		if indexRegion := data.IndexRegister.FieldUnit.Region; indexRegion != nil {
			indexRegion.OpRegion.OsMutex.acquire(ctx, mutexWaitIndefinitely)
			mutex := indexRegion.OpRegion.OsMutex
			acquired = append(acquired, mutex.release)
		}
	} else {
		data.Region.OpRegion.OsMutex.acquire(ctx, mutexWaitIndefinitely)
		mutex := data.Region.OpRegion.OsMutex
		acquired = append(acquired, mutex.release)
	}

	if data.AcquireGlobalLock {
		ctx.interp.host.AcquireGlobalLock()
		acquired = append(acquired, ctx.interp.host.ReleaseGlobalLock)
	}

	return unlock, nil
}

// checkFieldBounds validates the aligned window of a direct field against its
// region extents. Index/data fields have no direct region to check.
func checkFieldBounds(data *FieldUnitData, startBit, endBit uint64) error {
	if data.IndexRegister != nil {
		return nil
	}
	if data.Region == nil || data.Region.Type != ObjectOperationRegion {
		return errUnexpectedType
	}

	length := data.Region.OpRegion.Length
	if startBit/8 > length || endBit/8 > length || endBit <= startBit {
		return errOutOfBounds
	}
	return nil
}

// readFieldWindow fills window with the aligned accesses covering the field,
// one lane at a time. Index/data fields write the lane's byte offset to the
// index register and read the data register; direct fields go through the
// region handler. Locks must already be held.
func (ctx *execContext) readFieldWindow(data *FieldUnitData, startBit, endBit, accessBits uint64, window []byte) error {
	accessBytes := accessBits / 8
	startByte := startBit / 8

	for current := startByte; current < endBit/8; current += accessBytes {
		bufOffset := current - startByte

		if data.IndexRegister != nil {
			index, err := ctx.newInteger(current)
			if err != nil {
				return err
			}
			err = ctx.writeToField(data.IndexRegister, index)
			index.release()
			if err != nil {
				return err
			}

			value, err := ctx.readFromField(data.DataRegister)
			if err != nil {
				return err
			}
			switch value.Type {
			case ObjectInteger:
				for i := uint64(0); i < accessBytes && bufOffset+i < uint64(len(window)); i++ {
					window[bufOffset+i] = byte(value.Integer >> (8 * i))
				}
			case ObjectBuffer:
				for i := uint64(0); i < accessBytes && bufOffset+i < uint64(len(window)); i++ {
					if i < uint64(len(value.Buffer)) {
						window[bufOffset+i] = value.Buffer[i]
					}
				}
			default:
				value.release()
				return errUnexpectedType
			}
			value.release()
			continue
		}

		value, err := readRegionAccess(data.Region, current, uint32(accessBits))
		if err != nil {
			return err
		}
		for i := uint64(0); i < accessBytes && bufOffset+i < uint64(len(window)); i++ {
			window[bufOffset+i] = byte(value >> (8 * i))
		}
	}
	return nil
}

// writeFieldWindow pushes the window back out through aligned accesses,
// mirroring readFieldWindow.
func (ctx *execContext) writeFieldWindow(data *FieldUnitData, startBit, endBit, accessBits uint64, window []byte) error {
	accessBytes := accessBits / 8
	startByte := startBit / 8

	for current := startByte; current < endBit/8; current += accessBytes {
		bufOffset := current - startByte

		var lane uint64
		for i := uint64(0); i < accessBytes && bufOffset+i < uint64(len(window)); i++ {
			lane |= uint64(window[bufOffset+i]) << (8 * i)
		}

		if data.IndexRegister != nil {
			index, err := ctx.newInteger(current)
			if err != nil {
				return err
			}
			err = ctx.writeToField(data.IndexRegister, index)
			index.release()
			if err != nil {
				return err
			}

			value, err := ctx.newInteger(lane)
			if err != nil {
				return err
			}
			err = ctx.writeToField(data.DataRegister, value)
			value.release()
			if err != nil {
				return err
			}
			continue
		}

		if err := writeRegionAccess(data.Region, current, uint32(accessBits), lane); err != nil {
			return err
		}
	}
	return nil
}

// readFromField reads a field unit's bit range out of its operation region,
// returning a fresh Integer when the aligned window fits the current integer
// width and a Buffer otherwise.
func (ctx *execContext) readFromField(fieldUnit *Object) (*Object, error) {
	data := &fieldUnit.FieldUnit
	accessBits := fieldAccessBits(data.Access)

	startBit := alignDown(data.BitOffset, accessBits)
	endBit := alignUp(data.BitOffset+data.BitLength, accessBits)
	windowSize := (endBit - startBit) / 8

	if err := checkFieldBounds(data, startBit, endBit); err != nil {
		return nil, err
	}

	unlock, err := ctx.acquireFieldLocks(data)
	if err != nil {
		return nil, err
	}

	window := make([]byte, windowSize)
	err = ctx.readFieldWindow(data, startBit, endBit, accessBits, window)
	unlock()
	if err != nil {
		return nil, err
	}

	shiftBufferIntoFieldPosition(window, data.BitOffset, data.BitLength, accessBits)

	if windowSize <= 4 || (!ctx.integerWidthIs32() && windowSize <= 8) {
		var value uint64
		for i, b := range window {
			value |= uint64(b) << (8 * uint(i))
		}
		return ctx.newInteger(value)
	}
	return ctx.newBuffer(window)
}

// writeToField writes an Integer or Buffer value into a field unit's bit
// range, seeding the surrounding bits of the aligned window according to the
// field's update rule.
func (ctx *execContext) writeToField(fieldUnit *Object, value *Object) error {
	data := &fieldUnit.FieldUnit
	accessBits := fieldAccessBits(data.Access)

	var source []byte
	switch value.Type {
	case ObjectInteger:
		width := ctx.integerByteWidth()
		source = make([]byte, width)
		for i := 0; i < width; i++ {
			source[i] = byte(value.Integer >> (8 * uint(i)))
		}
	case ObjectBuffer:
		source = value.Buffer
	default:
		return errNotSupported
	}

	fieldBytes := int(alignUp(data.BitLength, 8) / 8)
	if len(source) < fieldBytes {
		return errBufferTooSmall
	}

	startBit := alignDown(data.BitOffset, accessBits)
	endBit := alignUp(data.BitOffset+data.BitLength, accessBits)
	windowSize := (endBit - startBit) / 8

	if err := checkFieldBounds(data, startBit, endBit); err != nil {
		return err
	}

	unlock, err := ctx.acquireFieldLocks(data)
	if err != nil {
		return err
	}
	defer unlock()

	window := make([]byte, windowSize)

	// A field exactly filling its aligned window needs no seeding; this
	// also spares regions whose reads have side effects.
	aligned := startBit == data.BitOffset && endBit == data.BitOffset+data.BitLength
	if !aligned {
		switch data.UpdateRule {
		case FieldUpdatePreserve:
			if err := ctx.readFieldWindow(data, startBit, endBit, accessBits, window); err != nil {
				return err
			}
		case FieldUpdateWriteAsOnes:
			for i := range window {
				window[i] = 0xFF
			}
		case FieldUpdateWriteAsZeros:
		}
	}

	writeFieldBitsIntoBuffer(source[:fieldBytes], data.BitOffset, data.BitLength, accessBits, window)

	return ctx.writeFieldWindow(data, startBit, endBit, accessBits, window)
}

// bufferFieldBytes exposes the raw bytes behind a buffer field source:
// integers contribute their 8 little-endian bytes, strings their contents
// plus the terminating NUL, buffers their contents directly (shared, so
// writes through the window mutate the buffer in place).
func bufferFieldBytes(source *Object) ([]byte, error) {
	switch source.Type {
	case ObjectInteger:
		data := make([]byte, 8)
		for i := 0; i < 8; i++ {
			data[i] = byte(source.Integer >> (8 * uint(i)))
		}
		return data, nil
	case ObjectString:
		data := make([]byte, len(source.String)+1)
		copy(data, source.String)
		return data, nil
	case ObjectBuffer:
		if len(source.Buffer) == 0 {
			return nil, errBufferTooSmall
		}
		return source.Buffer, nil
	}
	return nil, errUnexpectedType
}

// readFromBufferField reads a bit range out of an in-memory object at byte
// granularity.
func (ctx *execContext) readFromBufferField(bufferField *Object) (*Object, error) {
	data := &bufferField.BufferField
	source := resolveAlias(data.Source)

	base, err := bufferFieldBytes(source)
	if err != nil {
		return nil, err
	}

	startByte := data.BitOffset / 8
	endByte := alignUp(data.BitOffset+data.BitLength, 8) / 8
	if endByte > uint64(len(base)) || endByte <= startByte {
		return nil, errOutOfBounds
	}

	window := append([]byte(nil), base[startByte:endByte]...)
	shiftBufferIntoFieldPosition(window, data.BitOffset, data.BitLength, 8)

	size := endByte - startByte
	if size <= 4 || (!ctx.integerWidthIs32() && size <= 8) {
		var value uint64
		for i, b := range window {
			value |= uint64(b) << (8 * uint(i))
		}
		return ctx.newInteger(value)
	}
	return ctx.newBuffer(window)
}

// writeToBufferField merges a value's bits into the source object behind a
// buffer field. String and Buffer sources are edited in place; Integer
// sources are rebuilt from their merged bytes.
func (ctx *execContext) writeToBufferField(bufferField *Object, value *Object) error {
	data := &bufferField.BufferField
	source := resolveAlias(data.Source)

	dest, err := bufferFieldBytes(source)
	if err != nil {
		return err
	}

	var field []byte
	switch value.Type {
	case ObjectInteger:
		field = make([]byte, 8)
		for i := 0; i < 8; i++ {
			field[i] = byte(value.Integer >> (8 * uint(i)))
		}
	case ObjectString:
		field = make([]byte, len(value.String)+1)
		copy(field, value.String)
	case ObjectBuffer:
		field = value.Buffer
	default:
		return errNotSupported
	}

	startByte := data.BitOffset / 8
	endByte := alignUp(data.BitOffset+data.BitLength, 8) / 8
	if endByte > uint64(len(dest)) || endByte <= startByte {
		return errOutOfBounds
	}

	// A source shorter than the field zero-extends.
	if window := endByte - startByte; uint64(len(field)) < window {
		padded := make([]byte, window)
		copy(padded, field)
		field = padded
	}

	writeFieldBitsIntoBuffer(field, data.BitOffset, data.BitLength, 8, dest[startByte:])

	if source.Type == ObjectInteger {
		var rebuilt uint64
		for i, b := range dest {
			rebuilt |= uint64(b) << (8 * uint(i))
		}
		source.Integer = rebuilt
	}
	return nil
}

// shiftBufferIntoFieldPosition shifts a just-read aligned window right so the
// field's first bit lands at bit zero, then masks off the bits beyond the
// field's length. The byte-walking shifter moves at most 8 bits per pass so
// windows of any size work.
func shiftBufferIntoFieldPosition(buffer []byte, bitOffset, bitLength, accessBits uint64) {
	size := len(buffer)
	if size == 0 {
		return
	}

	remaining := bitOffset - alignDown(bitOffset, accessBits)
	for remaining > 0 {
		shift := uint(remaining)
		if shift > 8 {
			shift = 8
		}
		for i := 0; i < size-1; i++ {
			buffer[i] = buffer[i]>>shift | buffer[i+1]<<(8-shift)
		}
		buffer[size-1] >>= shift
		remaining -= uint64(shift)
	}

	// Clip to the field length: mask the partial byte, zero everything past
	// it. The shift above may have pulled neighboring bits into the window.
	clip := int(bitLength / 8)
	if saveBits := uint(bitLength & 7); saveBits != 0 && clip < size {
		buffer[clip] &= byte(1<<saveBits) - 1
		clip++
	}
	for i := clip; i < size; i++ {
		buffer[i] = 0
	}
}

// writeFieldBitsIntoBuffer merges the field bits of source into result, which
// holds the aligned window starting at alignDown(bitOffset, accessBits). Bits
// of result outside the field keep their seeded values. A field that straddles
// one more result byte than it occupies source bytes carries its leftover
// high bits into that extra byte.
func writeFieldBitsIntoBuffer(source []byte, bitOffset, bitLength, accessBits uint64, result []byte) {
	startBit := alignDown(bitOffset, accessBits)
	byteOffset := int((bitOffset - startBit) / 8)
	bitShift := uint((bitOffset - startBit) & 7)
	sourceSize := int(alignUp(bitLength, 8) / 8)
	extraByte := bitShift != 0 &&
		alignUp(bitLength, 8) < alignUp(bitLength+uint64(bitShift), 8)

	var leftovers byte
	for i := 0; i < sourceSize; i++ {
		data := source[i]
		mask := byte(0xFF)

		if bitShift != 0 {
			current := data
			data <<= bitShift
			if i == 0 {
				mask <<= bitShift
			} else {
				data |= leftovers
			}
			leftovers = current >> (8 - bitShift)
		}

		// The last source byte may only partially belong to the field.
		if !extraByte && uint64(i+1)*8 > bitLength {
			if saveBits := (bitOffset + bitLength) & 7; saveBits != 0 {
				mask &= byte(1<<saveBits) - 1
			}
		}

		index := i + byteOffset
		if index < len(result) {
			result[index] = result[index]&^mask | data&mask
		}
	}

	if extraByte {
		mask := byte(1<<((bitOffset+bitLength)&7)) - 1
		index := sourceSize + byteOffset
		if index < len(result) {
			result[index] = result[index]&^mask | leftovers&mask
		}
	}
}
