// Package table defines the ACPI system description table structures that
// the AML interpreter consumes, together with the resolver interface used to
// obtain them from the platform firmware.
package table

import "errors"

// Signatures for the tables that carry AML definition blocks.
const (
	SignatureDSDT = "DSDT"
	SignatureSSDT = "SSDT"
)

// DescriptionHeader is the common header that prefixes every ACPI system
// description table.
type DescriptionHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The length of the table in bytes, header included.
	Length uint32

	// If this header belongs to a DSDT/SSDT table, the revision also
	// indicates whether the AML interpreter should treat integers as
	// 32 bits (revision < 2) or 64 bits (revision >= 2).
	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information.
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table.
	CreatorID       uint32
	CreatorRevision uint32
}

// HeaderLen is the encoded size of a DescriptionHeader.
const HeaderLen = 36

// Table pairs a description header with the payload that follows it. For
// definition blocks (DSDT/SSDT) the payload is raw AML bytecode.
type Table struct {
	Header DescriptionHeader
	Data   []byte
}

// Resolver is an interface implemented by objects that can look up ACPI
// tables by signature.
//
// FindTable returns the first table carrying the requested signature that
// follows previous, or the first such table when previous is nil. It returns
// nil when no more tables match.
type Resolver interface {
	FindTable(signature string, previous *Table) *Table
}

// ChecksumData sums all bytes in the given region. In a correctly
// checksummed table the result is zero.
func ChecksumData(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}

// Checksum computes the byte sum of an encoded table: the header with its
// stored checksum included plus the payload. A valid table sums to zero.
func (t *Table) Checksum() uint8 {
	return ChecksumData(t.encodeHeader()) + ChecksumData(t.Data)
}

// Valid reports whether the table length matches its payload and the
// checksum over the whole table is zero.
func (t *Table) Valid() bool {
	if t.Header.Length != uint32(HeaderLen+len(t.Data)) {
		return false
	}
	return t.Checksum() == 0
}

// Encode serializes the whole table: the header followed by the payload.
func (t *Table) Encode() []byte {
	return append(t.encodeHeader(), t.Data...)
}

// encodeHeader serializes the header using the little-endian layout mandated
// by the ACPI specification.
func (t *Table) encodeHeader() []byte {
	var buf [HeaderLen]byte
	copy(buf[0:4], t.Header.Signature[:])
	putLE32(buf[4:8], t.Header.Length)
	buf[8] = t.Header.Revision
	buf[9] = t.Header.Checksum
	copy(buf[10:16], t.Header.OEMID[:])
	copy(buf[16:24], t.Header.OEMTableID[:])
	putLE32(buf[24:28], t.Header.OEMRevision)
	putLE32(buf[28:32], t.Header.CreatorID)
	putLE32(buf[32:36], t.Header.CreatorRevision)
	return buf[:]
}

// NewDefinitionBlock assembles a definition block table around the supplied
// AML payload, computing the length and checksum fields.
func NewDefinitionBlock(signature string, revision uint8, oemTableID string, aml []byte) *Table {
	t := &Table{Data: aml}
	copy(t.Header.Signature[:], signature)
	copy(t.Header.OEMTableID[:], oemTableID)
	t.Header.Revision = revision
	t.Header.Length = uint32(HeaderLen + len(aml))
	t.Header.Checksum = uint8(-(int8(t.Checksum())))
	return t
}

// Decode splits an encoded table image into its header and payload. The
// image must be at least a full header long and its length field must not
// exceed the supplied data; checksum validation is left to the caller via
// Valid.
func Decode(data []byte) (*Table, error) {
	if len(data) < HeaderLen {
		return nil, ErrTableTooShort
	}

	t := &Table{}
	copy(t.Header.Signature[:], data[0:4])
	t.Header.Length = getLE32(data[4:8])
	t.Header.Revision = data[8]
	t.Header.Checksum = data[9]
	copy(t.Header.OEMID[:], data[10:16])
	copy(t.Header.OEMTableID[:], data[16:24])
	t.Header.OEMRevision = getLE32(data[24:28])
	t.Header.CreatorID = getLE32(data[28:32])
	t.Header.CreatorRevision = getLE32(data[32:36])

	if t.Header.Length < HeaderLen || int(t.Header.Length) > len(data) {
		return nil, ErrTableTruncated
	}
	t.Data = data[HeaderLen:t.Header.Length]
	return t, nil
}

// Decoding errors.
var (
	ErrTableTooShort  = errors.New("table: image shorter than a description header")
	ErrTableTruncated = errors.New("table: length field exceeds the supplied image")
)

func putLE32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getLE32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

// AddressSpace defines the location where a set of registers resides.
type AddressSpace uint8

// The list of supported address space types.
const (
	AddressSpaceSysMemory AddressSpace = iota
	AddressSpaceSysIO
	AddressSpacePCI
	AddressSpaceEmbController
	AddressSpaceSMBus
	AddressSpaceFuncFixedHW = 0x7f
)

// GenericAddress specifies a register range located in a particular address
// space.
type GenericAddress struct {
	Space      AddressSpace
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

// PowerProfileType describes a power profile referenced by the FADT table.
type PowerProfileType uint8

// The list of supported power profile types.
const (
	PowerProfileUnspecified PowerProfileType = iota
	PowerProfileDesktop
	PowerProfileMobile
	PowerProfileWorkstation
	PowerProfileEnterpriseServer
	PowerProfileSOHOServer
	PowerProfileAppliancePC
	PowerProfilePerformanceServer
)

// FADT64 contains the 64-bit FADT extensions which are used by ACPI2+.
type FADT64 struct {
	FirmwareControl uint64

	Dsdt uint64

	PM1aEventBlock   GenericAddress
	PM1bEventBlock   GenericAddress
	PM1aControlBlock GenericAddress
	PM1bControlBlock GenericAddress
	PM2ControlBlock  GenericAddress
	PMTimerBlock     GenericAddress
	GPE0Block        GenericAddress
	GPE1Block        GenericAddress
}

// FADT (Fixed ACPI Description Table) is an ACPI table containing information
// about fixed register blocks used for power management.
type FADT struct {
	DescriptionHeader

	FirmwareCtrl uint32
	Dsdt         uint32

	reserved uint8

	PreferredPowerManagementProfile PowerProfileType
	SCIInterrupt                    uint16
	SMICommandPort                  uint32
	AcpiEnable                      uint8
	AcpiDisable                     uint8
	S4BIOSReq                       uint8
	PSTATEControl                   uint8
	PM1aEventBlock                  uint32
	PM1bEventBlock                  uint32
	PM1aControlBlock                uint32
	PM1bControlBlock                uint32
	PM2ControlBlock                 uint32
	PMTimerBlock                    uint32
	GPE0Block                       uint32
	GPE1Block                       uint32
	PM1EventLength                  uint8
	PM1ControlLength                uint8
	PM2ControlLength                uint8
	PMTimerLength                   uint8
	GPE0Length                      uint8
	GPE1Length                      uint8
	GPE1Base                        uint8
	CStateControl                   uint8
	WorstC2Latency                  uint16
	WorstC3Latency                  uint16
	FlushSize                       uint16
	FlushStride                     uint16
	DutyOffset                      uint8
	DutyWidth                       uint8
	DayAlarm                        uint8
	MonthAlarm                      uint8
	Century                         uint8

	// Reserved in ACPI 1.0; used since ACPI 2.0+.
	BootArchitectureFlags uint16

	reserved2 uint8
	Flags     uint32

	ResetReg GenericAddress

	ResetValue uint8
	reserved3  [3]uint8

	// 64-bit pointers to the above structures used by ACPI 2.0+.
	Ext FADT64
}

// MADT (Multiple APIC Description Table) is an ACPI table containing
// information about the interrupt controllers and the number of installed
// CPUs. Following the table header are a series of variable sized records
// (MADTEntry) which contain additional information.
type MADT struct {
	DescriptionHeader

	LocalControllerAddress uint32
	Flags                  uint32
}

// MADTEntryType describes the type of a MADT record.
type MADTEntryType uint8

// The list of supported MADT entry types.
const (
	MADTEntryTypeLocalAPIC MADTEntryType = iota
	MADTEntryTypeIOAPIC
	MADTEntryTypeIntSrcOverride
	MADTEntryTypeNMI
)

// MADTEntry describes a MADT table entry that follows the MADT definition.
type MADTEntry struct {
	Type   MADTEntryType
	Length uint8
}
