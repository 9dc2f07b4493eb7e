package util

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestBytesToHex(t *testing.T) {
	if got := BytesToHex([]byte{0x02, 0x01, 0xAF}); got != "02 01 af" {
		t.Fatalf("got %q", got)
	}
	if BytesToHex(nil) != "" {
		t.Fatal("nil input")
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"":                  "Unknown",
		"  Tag ":            "Tag",
		"AA:BB:CC:DD:EE:FF": "Unknown",
		"AA-BB-CC-DD-EE-FF": "Unknown",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEllipsis(t *testing.T) {
	if got := Ellipsis("abcdefgh", 6); got != "abc..." {
		t.Fatalf("got %q", got)
	}
	if got := Ellipsis("abc", 6); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestPrompt(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("  hci1 \nlast"))
	if s, err := promptFrom(r, ""); err != nil || s != "hci1" {
		t.Fatalf("got %q, %v", s, err)
	}
	if s, err := promptFrom(r, ""); err != nil || s != "last" {
		t.Fatalf("unterminated line: %q, %v", s, err)
	}
	if _, err := promptFrom(r, ""); err == nil {
		t.Fatal("expected EOF")
	}
	if parseIntDefault("x", 4) != 4 || parseIntDefault(" 7 ", 4) != 7 {
		t.Fatal("parseIntDefault")
	}
}

func TestLine(t *testing.T) {
	var buf bytes.Buffer
	SetConsole(&buf, false)
	defer SetConsole(os.Stdout, true)

	Linef("[RID]", ColorMagenta, "drone %s", "X1")
	got := buf.String()
	if !strings.HasSuffix(got, " [RID] drone X1\n") || strings.Contains(got, "\033") {
		t.Fatalf("line = %q", got)
	}
}
