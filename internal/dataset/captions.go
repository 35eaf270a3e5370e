package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Caption is one line of a caption file: a file name and its free-text description.
type Caption struct {
	FileName    string
	Description string
}

// LoadCaptions reads a caption file with one `<filename> <description>` record per line.
func LoadCaptions(path string) ([]Caption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open captions: %w", err)
	}
	defer f.Close()
	return ReadCaptions(f)
}

// ReadCaptions parses caption records from r. Blank lines are skipped; a line
// without a description is ErrMalformed.
func ReadCaptions(r io.Reader) ([]Caption, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var out []Caption
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, desc, ok := strings.Cut(line, " ")
		desc = strings.TrimSpace(desc)
		if !ok || desc == "" {
			return nil, fmt.Errorf("%w: line %d: expected \"<filename> <description>\"", ErrMalformed, n)
		}
		out = append(out, Caption{FileName: name, Description: desc})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	return out, nil
}
