package util

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var batteryPctRe = regexp.MustCompile(`(\d{1,3})%`)

// BatteryPercent returns the battery level as "NN%", or "" on mains-only
// hosts. sysfs is read first; `acpi -b` is the fallback.
func BatteryPercent() string {
	matches, _ := filepath.Glob("/sys/class/power_supply/BAT*/capacity")
	for _, m := range matches {
		if b, err := os.ReadFile(m); err == nil {
			if v := strings.TrimSpace(string(b)); v != "" {
				return v + "%"
			}
		}
	}

	out, err := exec.Command("acpi", "-b").CombinedOutput()
	if err != nil {
		return ""
	}
	m := batteryPctRe.FindStringSubmatch(string(out))
	if m == nil {
		return ""
	}
	return m[1] + "%"
}
