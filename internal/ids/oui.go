package ids

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrBadOUI = errors.New("bad oui assignment")

// Hex digits of the address prefix assigned per IEEE registry.
var registryDigits = map[string]int{
	"MA-L": 6,
	"MA-M": 7,
	"MA-S": 9,
	"IAB":  9,
}

// Lookup order for VendorForMAC: the most specific block wins.
var prefixLengths = []int{9, 7, 6}

// LoadOUI loads vendor names from an IEEE registry CSV (oui.csv, mam.csv,
// oui36.csv or a concatenation). Keys are uppercase hex address prefixes of
// 6, 7 or 9 digits. Rows with a malformed assignment are skipped and
// reported as ErrBadOUI alongside the rows that did load.
func LoadOUI(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readOUI(f)
}

func readOUI(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("oui header: %w", err)
	}
	regCol, asgCol, orgCol := ouiColumns(header)

	out := make(map[string]string, 1024)
	var (
		bad      int
		firstBad string
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		if asgCol >= len(rec) || orgCol >= len(rec) {
			continue
		}
		org := strings.TrimSpace(rec[orgCol])
		if org == "" {
			continue
		}
		want := 0
		if regCol >= 0 && regCol < len(rec) {
			want = registryDigits[strings.ToUpper(strings.TrimSpace(rec[regCol]))]
		}
		prefix, ok := ouiPrefix(rec[asgCol], want)
		if !ok {
			if bad == 0 {
				line, _ := cr.FieldPos(asgCol)
				firstBad = fmt.Sprintf("line %d %q", line, rec[asgCol])
			}
			bad++
			continue
		}
		out[prefix] = org
	}
	if bad > 0 {
		return out, fmt.Errorf("%w: %d rows skipped, first at %s", ErrBadOUI, bad, firstBad)
	}
	return out, nil
}

// ouiColumns finds the registry, assignment and organization columns by
// header name, falling back to the IEEE column order. reg is -1 when the
// file has no registry column.
func ouiColumns(header []string) (reg, asg, org int) {
	reg, asg, org = -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "registry":
			reg = i
		case "assignment":
			asg = i
		case "organization name":
			org = i
		}
	}
	if asg < 0 || org < 0 {
		return 0, 1, 2
	}
	return reg, asg, org
}

// ouiPrefix normalizes "F0-18-98" style assignments. want is the digit
// count implied by the registry column, or 0 when unknown.
func ouiPrefix(s string, want int) (string, bool) {
	p := strings.ToUpper(strings.TrimSpace(s))
	p = strings.NewReplacer("-", "", ":", "", ".", "").Replace(p)
	switch len(p) {
	case 6, 7, 9:
	default:
		return "", false
	}
	if want != 0 && len(p) != want {
		return "", false
	}
	for _, c := range p {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return "", false
		}
	}
	return p, true
}
