package advdata

import (
	"encoding/binary"
	"fmt"
)

// Company identifiers with registered MSD decoders.
const (
	CompanyMicrosoft = 0x0006
	CompanyApple     = 0x004C
)

// ManufacturerSpecific is MSD from a company without a registered decoder,
// and the base of every vendor-specific record.
type ManufacturerSpecific struct {
	Header
	CompanyID  uint16   `json:"company_id"`
	VendorData HexBytes `json:"vendor_data"`
}

func (ManufacturerSpecific) Kind() string { return "ManufacturerSpecific" }
func (r ManufacturerSpecific) String() string {
	return fmt.Sprintf("Manufacturer 0x%04X: %s", r.CompanyID, r.VendorData)
}

// MSDDecodeFunc decodes the vendor part of a manufacturer specific record.
// base already carries the company id and vendor payload.
type MSDDecodeFunc func(base ManufacturerSpecific) (Record, error)

func (d *Decoder) decodeMSD(h Header) (Record, error) {
	if len(h.Data) < 2 {
		return nil, shortPayload(h, 2)
	}
	base := ManufacturerSpecific{
		Header:     h,
		CompanyID:  binary.LittleEndian.Uint16(h.Data),
		VendorData: HexBytes(h.Data[2:]),
	}
	if fn, ok := d.companies[base.CompanyID]; ok {
		return fn(base)
	}
	return base, nil
}
