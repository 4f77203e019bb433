package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TShark runs the Wireshark command line dissector.
type TShark struct {
	Path string
}

// NewTShark creates an extractor for the tshark binary at path.
func NewTShark(path string) *TShark {
	if path == "" {
		path = "tshark"
	}
	return &TShark{Path: path}
}

// Args returns the command line used for capturePath.
func (t *TShark) Args(capturePath string, fields []string) []string {
	args := []string{"-r", capturePath, "-T", "fields"}
	for _, f := range fields {
		args = append(args, "-e", f)
	}
	return args
}

// Extract implements model.FieldExtractor. The call blocks until tshark exits;
// a non-zero exit status is returned as an error.
func (t *TShark) Extract(ctx context.Context, capturePath string, fields []string) ([]string, error) {
	cmd := exec.CommandContext(ctx, t.Path, t.Args(capturePath, fields)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tshark failed on '%s': %w: %s", capturePath, err, strings.TrimSpace(stderr.String()))
	}
	return splitLines(&stdout)
}

func splitLines(buf *bytes.Buffer) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(buf)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tshark output: %w", err)
	}
	return lines, nil
}
