// Package input reads address lists, one address per line.
package input

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyList is returned when a list holds no addresses.
var ErrEmptyList = errors.New("address list is empty")

// maxLine bounds a single input line.
const maxLine = 1 << 20

// Read returns the non-blank lines of r. Line endings are removed and
// nothing else is changed, so surrounding spaces reach the syntax check.
// A line holding only whitespace counts as blank.
func Read(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read addresses")
	}
	if len(out) == 0 {
		return nil, ErrEmptyList
	}
	return out, nil
}

// ReadFile reads the address list stored in path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	emails, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return emails, nil
}
