package pcie

import "fmt"

// DeviceInfo is the configuration-space identity a device presents when it
// is attached to a host.
type DeviceInfo struct {
	VendorID  uint16
	DeviceID  uint16
	ClassCode uint8
	Subclass  uint8
	Revision  uint8

	BAR0Size   uint64
	BAR0Is64   bool
	MSIVectors int
}

// InBAR0 reports whether an access of n bytes at addr lies inside BAR0.
func (d DeviceInfo) InBAR0(addr uint64, n uint64) bool {
	return n > 0 && addr < d.BAR0Size && n <= d.BAR0Size-addr
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%04x:%04x class %02x.%02x rev %d, BAR0 %d MiB, %d MSI",
		d.VendorID, d.DeviceID, d.ClassCode, d.Subclass, d.Revision,
		d.BAR0Size>>20, d.MSIVectors)
}
