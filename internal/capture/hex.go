package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// HexSource reads one frame per line from R (a file or stdin).
type HexSource struct {
	Label string
	R     io.Reader
}

func (s *HexSource) Name() string {
	if s.Label == "" {
		return "hex"
	}
	return "hex:" + s.Label
}

// Run returns nil at end of input.
func (s *HexSource) Run(ctx context.Context, out chan<- Frame) error {
	return scanLines(ctx, s.R, s.Name(), out)
}

func scanLines(ctx context.Context, r io.Reader, source string, out chan<- Frame) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	lineNo, frames, skipped := 0, 0, 0
	defer func() {
		log.Printf("%s: read %d lines, %d frames, %d skipped", source, lineNo, frames, skipped)
	}()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lineNo++
		f, err := ParseLine(scanner.Text())
		if err != nil {
			if !errors.Is(err, ErrNoPayload) {
				skipped++
				log.Printf("%s: line %d: %v", source, lineNo, err)
			}
			continue
		}
		f.Time = time.Now()
		f.Source = source
		if !send(ctx, out, f) {
			return ctx.Err()
		}
		frames++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: line %d: %w", source, lineNo+1, err)
	}
	return nil
}
