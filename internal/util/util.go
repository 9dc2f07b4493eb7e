package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	macRe = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

	stdin = bufio.NewReader(os.Stdin)
)

func IsMACAddress(s string) bool {
	return macRe.MatchString(strings.TrimSpace(s))
}

func PromptString(prompt string) (string, error) {
	return promptFrom(stdin, prompt)
}

func promptFrom(r *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptInt returns defaultVal on empty or non-numeric input.
func PromptInt(prompt string, defaultVal int) (int, error) {
	s, err := PromptString(prompt)
	if err != nil {
		return 0, err
	}
	return parseIntDefault(s, defaultVal), nil
}

func parseIntDefault(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

// PromptChoice prints numbered options and returns the chosen one.
// Empty input picks the first option.
func PromptChoice(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: nothing to choose from", title)
	}
	fmt.Println(title)
	for i, o := range options {
		fmt.Printf("  %d) %s\n", i+1, o)
	}
	n, err := PromptInt(fmt.Sprintf("Select [1-%d] (default 1): ", len(options)), 1)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(options) {
		return "", fmt.Errorf("invalid selection %d", n)
	}
	return options[n-1], nil
}

func NowTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// BytesToHex renders b as space separated lower-case hex pairs.
func BytesToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*3-1)
	for i, v := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, hexdigits[v>>4], hexdigits[v&0x0f])
	}
	return string(out)
}

// Ellipsis shortens s to at most n runes.
func Ellipsis(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func SafeName(localName string) string {
	name := strings.TrimSpace(localName)
	if name == "" || IsMACAddress(name) {
		return "Unknown"
	}
	return name
}
