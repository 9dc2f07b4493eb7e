package ids

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type uuidFile struct {
	UUIDs []uuidEntry `yaml:"uuids"`
}

type uuidEntry struct {
	UUID any    `yaml:"uuid"`
	Name string `yaml:"name"`
}

type companyFile struct {
	Companies []companyEntry `yaml:"company_identifiers"`
}

type companyEntry struct {
	Value any    `yaml:"value"`
	Name  string `yaml:"name"`
}

// LoadUUIDYaml loads a Bluetooth SIG service_uuids.yaml. 16 and 32-bit
// values are expanded onto the Bluetooth base UUID.
func LoadUUIDYaml(path string) (map[uuid.UUID]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f uuidFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]string, len(f.UUIDs))
	for _, e := range f.UUIDs {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		u, err := parseUUID(yamlNumber(e.UUID))
		if err != nil {
			continue
		}
		out[u] = name
	}
	return out, nil
}

// LoadCompanyYaml loads a Bluetooth SIG company_identifiers.yaml.
func LoadCompanyYaml(path string) (map[uint16]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f companyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	out := make(map[uint16]string, len(f.Companies))
	for _, e := range f.Companies {
		name := strings.TrimSpace(e.Name)
		v, err := parseHex(yamlNumber(e.Value), 16)
		if err != nil || name == "" {
			continue
		}
		out[uint16(v)] = name
	}
	return out, nil
}

// yamlNumber turns a scalar that yaml decoded as either an int (0x004C) or a
// string ("004C") into a hex string.
func yamlNumber(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return fmt.Sprintf("0x%X", t)
	case int64:
		return fmt.Sprintf("0x%X", t)
	case uint64:
		return fmt.Sprintf("0x%X", t)
	default:
		return ""
	}
}

func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, ErrBadUUID
	}
	return strconv.ParseUint(s, 16, bits)
}

// uuid16 expands a 16 or 32-bit assigned number onto the Bluetooth base UUID.
func uuid16(v uint32) uuid.UUID {
	u := uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")
	u[0], u[1], u[2], u[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	return u
}

func parseUUID(s string) (uuid.UUID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Count(s, "-") == 4 {
		return uuid.Parse(s)
	}
	hexStr := strings.TrimPrefix(s, "0x")
	if len(hexStr) == 0 || len(hexStr) > 8 {
		return uuid.Nil, ErrBadUUID
	}
	v, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid16(uint32(v)), nil
}
