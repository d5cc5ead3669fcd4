package aml

// RegionSpace is the address space tag of an operation region.
type RegionSpace uint8

// The list of supported region spaces.
const (
	RegionSpaceSystemMemory RegionSpace = iota
	RegionSpaceSystemIO
	RegionSpacePCIConfig
	RegionSpaceEmbeddedController
	RegionSpaceSMBus
	RegionSpaceCMOS
	RegionSpacePCIBarTarget
	RegionSpaceIPMI
)

func (s RegionSpace) String() string {
	switch s {
	case RegionSpaceSystemMemory:
		return "SystemMemory"
	case RegionSpaceSystemIO:
		return "SystemIO"
	case RegionSpacePCIConfig:
		return "PCIConfig"
	case RegionSpaceEmbeddedController:
		return "EmbeddedController"
	case RegionSpaceSMBus:
		return "SMBus"
	case RegionSpaceCMOS:
		return "CMOS"
	case RegionSpacePCIBarTarget:
		return "PCIBarTarget"
	case RegionSpaceIPMI:
		return "IPMI"
	}
	return "Unknown"
}

// RegionHandler services all operation regions in one address space. Create
// maps a region and returns an opaque context handed back to the remaining
// operations; byte offsets are relative to the region start. A handler whose
// backing is not yet usable returns errTooEarly from Read, which the field
// engine treats as a successful zero read.
type RegionHandler interface {
	Create(space RegionSpace, offset, length uint64) (osContext interface{}, err error)
	Destroy(osContext interface{})
	Read(osContext interface{}, byteOffset uint64, accessBits uint32) (uint64, error)
	Write(osContext interface{}, byteOffset uint64, accessBits uint32, value uint64) error
}

// createOperationRegion creates a named operation region object, binding it
// to the handler registered for its space.
func (ctx *execContext) createOperationRegion(name string, space RegionSpace, offset, length uint64) (*Object, error) {
	region, err := ctx.createObject(ObjectOperationRegion, name)
	if err != nil {
		return nil, err
	}

	region.OpRegion = OperationRegionData{
		Space:   space,
		Offset:  offset,
		Length:  length,
		Handler: ctx.interp.host.RegionHandler(space),
		OsMutex: newHostMutex(0),
	}

	if region.OpRegion.Handler != nil {
		region.OpRegion.OsCtx, err = region.OpRegion.Handler.Create(space, offset, length)
		if err != nil {
			region.release()
			return nil, err
		}
	}

	return region, nil
}

// destroyOperationRegion tears down the handler context of a region object.
// Invoked from the object destructor.
func destroyOperationRegion(region *Object) {
	if region.OpRegion.Handler != nil && region.OpRegion.OsCtx != nil {
		region.OpRegion.Handler.Destroy(region.OpRegion.OsCtx)
	}
	region.OpRegion.Handler = nil
	region.OpRegion.OsCtx = nil
}

// readRegionAccess performs one aligned access against a region. Regions in
// unsupported spaces fail; regions whose backing is not ready read as zero.
func readRegionAccess(region *Object, byteOffset uint64, accessBits uint32) (uint64, error) {
	data := &region.OpRegion
	if data.Handler == nil {
		return 0, errNotSupported
	}

	value, err := data.Handler.Read(data.OsCtx, byteOffset, accessBits)
	if err == errTooEarly {
		return 0, nil
	}
	return value, err
}

// writeRegionAccess performs one aligned write against a region. Writes to a
// backing that is not ready are dropped.
func writeRegionAccess(region *Object, byteOffset uint64, accessBits uint32, value uint64) error {
	data := &region.OpRegion
	if data.Handler == nil {
		return errNotSupported
	}

	err := data.Handler.Write(data.OsCtx, byteOffset, accessBits, value)
	if err == errTooEarly {
		return nil
	}
	return err
}
