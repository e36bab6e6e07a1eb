package params

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ParseError reports a malformed line in a GetPot-style input.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseGetPot reads GetPot-style input:
//
//	# comment
//	Z = 20
//	NuclearInverseMass = '-0.001, 0.0, 0.001'
//	[HF]
//	Configuration = '1s2 2s2 2p6'   # stored as HF/Configuration
//	[./Sub]                         # HF/Sub/...
//	[../]                           # back to HF/
//	[]                              # back to the root
//
// Values are split into fields on commas.
func ParseGetPot(r io.Reader) (*Values, error) {
	values := NewValues()
	scanner := bufio.NewScanner(r)
	section := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line, err := stripComment(scanner.Text())
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Line: lineNo, Message: fmt.Sprintf("unterminated section %q", line)}
			}
			section = resolveSection(section, strings.TrimSpace(line[1:len(line)-1]))
			continue
		}

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &ParseError{Line: lineNo, Message: fmt.Sprintf("expected key = value, got %q", line)}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &ParseError{Line: lineNo, Message: "empty key"}
		}
		fields, err := splitFields(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		}
		values.Set(section+key, fields...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return values, nil
}

// ParseArgs reads command-line style key=value assignments.
func ParseArgs(args []string) (*Values, error) {
	values := NewValues()
	for i, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %d: expected key=value, got %q", i, arg)
		}
		fields, err := splitFields(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values.Set(key, fields...)
	}
	return values, nil
}

// LoadFile reads an input file, choosing the CUE loader for .cue files and
// the GetPot parser otherwise.
func LoadFile(filename string) (*Values, error) {
	if filepath.Ext(filename) == ".cue" {
		return LoadCUE(filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	values, err := ParseGetPot(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = filename
			return nil, pe
		}
		return nil, err
	}
	return values, nil
}

// stripComment removes a trailing '#' comment outside quotes.
func stripComment(line string) (string, error) {
	inQuote := false
	for i, c := range line {
		switch c {
		case '\'':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i], nil
			}
		}
	}
	if inQuote {
		return "", fmt.Errorf("unterminated quote")
	}
	return line, nil
}

func resolveSection(current, name string) string {
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../"):
		joined := path.Clean(path.Join("/", current, name))
		if joined == "/" {
			return ""
		}
		return strings.TrimPrefix(joined, "/") + "/"
	default:
		return strings.Trim(name, "/") + "/"
	}
}

func splitFields(raw string) ([]string, error) {
	if strings.HasPrefix(raw, "'") {
		if len(raw) < 2 || !strings.HasSuffix(raw, "'") {
			return nil, fmt.Errorf("unterminated quote in %q", raw)
		}
		raw = raw[1 : len(raw)-1]
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields, nil
}
