package ids

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Resolver provides name lookups for identifiers seen in advertisements.
//
//   - Vendor names are resolved by MAC prefix (oui.csv, MA-L/MA-M/MA-S).
//   - Company names are resolved by MSD company identifier (company_identifiers.yaml).
//   - Service names are resolved by UUID (service_uuids.yaml).
//
// A nil Resolver resolves nothing.
type Resolver struct {
	vendors   map[string]string
	companies map[uint16]string
	services  map[uuid.UUID]string
}

// VendorForMAC resolves the longest registered prefix (MA-S, MA-M, then
// MA-L) of mac.
func (r *Resolver) VendorForMAC(mac string) string {
	if r == nil || len(r.vendors) == 0 {
		return ""
	}
	h := macHex(mac)
	if h == "" {
		return ""
	}
	for _, n := range prefixLengths {
		if v, ok := r.vendors[h[:n]]; ok {
			return v
		}
	}
	return ""
}

func (r *Resolver) CompanyName(id uint16) string {
	if r == nil {
		return ""
	}
	return r.companies[id]
}

func (r *Resolver) ServiceName(u uuid.UUID) string {
	if r == nil {
		return ""
	}
	return r.services[u]
}

// ServiceName16 resolves a 16 or 32-bit assigned service UUID.
func (r *Resolver) ServiceName16(v uint32) string {
	return r.ServiceName(uuid16(v))
}

// AnnotateCompany renders "0x004C (Apple, Inc.)", or the bare id when unknown.
func (r *Resolver) AnnotateCompany(id uint16) string {
	s := fmt.Sprintf("0x%04X", id)
	if name := r.CompanyName(id); name != "" {
		return s + " (" + name + ")"
	}
	return s
}

// macHex returns the 12 uppercase hex digits of mac, or "" when mac is not
// a six-octet address.
func macHex(mac string) string {
	// AA:BB:CC:DD:EE:FF or AA-BB-CC-DD-EE-FF
	parts := strings.FieldsFunc(strings.TrimSpace(mac), func(r rune) bool {
		return r == ':' || r == '-'
	})
	if len(parts) != 6 {
		return ""
	}
	h := strings.ToUpper(strings.Join(parts, ""))
	if len(h) != 12 {
		return ""
	}
	for _, c := range h {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return ""
		}
	}
	return h
}
