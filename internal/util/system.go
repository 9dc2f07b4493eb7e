package util

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

func IsRoot() bool {
	return os.Geteuid() == 0
}

func HasSystemctl() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

func ServiceIsActive(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || !HasSystemctl() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "systemctl", "is-active", name)
	cmd.Stdout = &out
	_ = cmd.Run()
	return strings.TrimSpace(out.String()) == "active"
}

// EnsureService restarts name when it is inactive. It needs root and
// systemd; otherwise it does nothing. restarted reports whether a restart
// was attempted.
func EnsureService(ctx context.Context, name string) (restarted bool, err error) {
	if !IsRoot() || !HasSystemctl() || ServiceIsActive(ctx, name) {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return true, exec.CommandContext(ctx, "systemctl", "restart", name).Run()
}
