package ids

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrBadUUID = errors.New("bad uuid")

type LoadConfig struct {
	// DataDir is the root directory that contains default/ and custom/ subfolders.
	// Example:
	//   data/default/company_identifiers.yaml
	//   data/custom/company_identifiers.yaml
	DataDir string

	// CustomDir optionally overrides the custom directory path. When empty, it is
	// assumed to be <DataDir>/custom.
	CustomDir string
}

// Names present even without data files.
var builtinCompanies = map[uint16]string{
	0x0006: "Microsoft",
	0x004C: "Apple, Inc.",
	0x0075: "Samsung Electronics Co. Ltd.",
	0x00E0: "Google",
}

var builtinServices = map[uint16]string{
	0x180F: "Battery",
	0x181A: "Environmental Sensing",
	0xFD6F: "Exposure Notification",
	0xFFFA: "ASTM Remote ID",
}

// Load reads oui.csv, company_identifiers.yaml and service_uuids.yaml from
// <DataDir>/default and overlays <DataDir>/custom. Missing files are skipped.
func Load(cfg LoadConfig) (*Resolver, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	defaultDir := filepath.Join(cfg.DataDir, "default")
	customDir := cfg.CustomDir
	if customDir == "" {
		customDir = filepath.Join(cfg.DataDir, "custom")
	}

	res := &Resolver{
		vendors:   map[string]string{},
		companies: maps.Clone(builtinCompanies),
		services:  map[uuid.UUID]string{},
	}
	for id, name := range builtinServices {
		res.services[uuid16(uint32(id))] = name
	}

	var errs []error
	for _, dir := range []string{defaultDir, customDir} {
		errs = append(errs,
			loadInto(res.vendors, filepath.Join(dir, "oui.csv"), LoadOUI),
			loadInto(res.companies, filepath.Join(dir, "company_identifiers.yaml"), LoadCompanyYaml),
			loadInto(res.services, filepath.Join(dir, "service_uuids.yaml"), LoadUUIDYaml),
		)
	}

	// Validate the custom directory only when it was given explicitly.
	if cfg.CustomDir != "" {
		if _, err := os.Stat(cfg.CustomDir); err != nil {
			errs = append(errs, fmt.Errorf("custom-data-dir not accessible: %w", err))
		}
	}
	return res, errors.Join(errs...)
}

// loadInto merges the file at path into dst. A missing file is not an error.
func loadInto[K comparable](dst map[K]string, path string, load func(string) (map[K]string, error)) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// Loaders may return the entries they could read along with an error.
	items, err := load(path)
	for k, v := range items {
		if v == "" {
			continue
		}
		dst[k] = v
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
