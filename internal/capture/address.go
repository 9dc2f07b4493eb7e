package capture

import (
	"encoding/hex"
	"strings"
)

// ClassifyAddress names the address kind. For random addresses the two most
// significant bits select the subtype:
//
//	00 non_resolvable_private
//	01 resolvable_private
//	10 reserved
//	11 static_random
func ClassifyAddress(mac string, random bool) string {
	if !random {
		return "public"
	}
	b, err := hex.DecodeString(strings.ReplaceAll(strings.ReplaceAll(mac, ":", ""), "-", ""))
	if err != nil || len(b) != 6 {
		return "random"
	}
	switch b[0] >> 6 {
	case 0:
		return "non_resolvable_private"
	case 1:
		return "resolvable_private"
	case 2:
		return "reserved"
	default:
		return "static_random"
	}
}
