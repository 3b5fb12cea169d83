package scan

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// dumpSep separates a dump file's prefix from its index: xrb12#1500
const dumpSep = "#"

// ErrMalformedDump is wrapped by every ParseError
var ErrMalformedDump = errors.New("malformed dump file name")

// ParseError reports a dump file whose trailing #<n> is not a base-10 integer
type ParseError struct {
	Path   string
	Suffix string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", e.Path, e.Suffix, e.Err)
	}
	return fmt.Sprintf("%s: %q", e.Path, e.Suffix)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedDump}
	}
	return []error{ErrMalformedDump, e.Err}
}

// Dump is one parsed dump file
type Dump struct {
	Path   string
	Prefix string // File name before the last '#'
	Index  int
}

// ParseDump parses the index after the last '#' in path
func ParseDump(path string) (Dump, error) {
	name := filepath.Base(path)
	i := strings.LastIndex(name, dumpSep)
	if i < 0 {
		return Dump{}, &ParseError{Path: path, Suffix: ""}
	}

	suffix := name[i+len(dumpSep):]
	n, err := strconv.Atoi(suffix)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return Dump{}, &ParseError{Path: path, Suffix: suffix, Err: err}
	}

	return Dump{Path: path, Prefix: name[:i], Index: n}, nil
}

// SortDumps parses every path and sorts the dumps by index.
// Equal indices keep their input order.
func SortDumps(paths []string) ([]Dump, error) {
	dumps := make([]Dump, 0, len(paths))
	for _, p := range paths {
		d, err := ParseDump(p)
		if err != nil {
			return nil, err
		}
		dumps = append(dumps, d)
	}

	sort.SliceStable(dumps, func(i, j int) bool {
		return dumps[i].Index < dumps[j].Index
	})
	return dumps, nil
}

// SortedDumpIndices returns the dump indices of paths in ascending order
func SortedDumpIndices(paths []string) ([]int, error) {
	dumps, err := SortDumps(paths)
	if err != nil {
		return nil, err
	}
	return Indices(dumps), nil
}

// Indices returns the index of every dump, in list order
func Indices(dumps []Dump) []int {
	indices := make([]int, len(dumps))
	for i, d := range dumps {
		indices[i] = d.Index
	}
	return indices
}

// Intermediate returns every dump except the first and last of a sorted list
func Intermediate(sorted []Dump) []Dump {
	if len(sorted) <= 2 {
		return []Dump{}
	}
	return sorted[1 : len(sorted)-1]
}

// IntermediateIndices returns every index except the first and last of a sorted list
func IntermediateIndices(sorted []int) []int {
	if len(sorted) <= 2 {
		return []int{}
	}
	return sorted[1 : len(sorted)-1]
}

// ModelName returns the model's own directory name
func ModelName(modelPath string) string {
	return filepath.Base(filepath.Clean(modelPath))
}

// DumpPath builds <model_path>/<model_name>#<index>
func DumpPath(modelPath string, index int) string {
	return filepath.Join(modelPath, ModelName(modelPath)+dumpSep+strconv.Itoa(index))
}
