package tflitedetect

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LabelTable is the bidirectional mapping between numeric class id and the
// human readable class name the Model was trained on.  It is built once at
// startup and read-only afterwards.
//
// The same labels file is interpreted differently depending on the model
// family.  SSD models emit the numeric id printed in the first column of
// each line, whilst YOLO models emit the position of the class in the
// probability vector, which corresponds to the line number of the file.  The
// Positional flag passed to the loader selects which interpretation is used.
type LabelTable struct {
	idToName map[int]string
	nameToID map[string]int
}

// LoadLabels reads the labels file used to train the Model from the given
// text file.  Each line must be of the format "<index> <name>".  Set
// positional to true for models whose class ids are the sequential line
// offsets of the file rather than the printed index.
func LoadLabels(file string, positional bool) (*LabelTable, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening labels file: %w: %w", err, ErrConfig)
	}

	defer f.Close()

	return ReadLabels(f, positional)
}

// ReadLabels reads labels from the given reader, one "<index> <name>" entry
// per line.  Spaces inside a name are normalised to underscores.
func ReadLabels(r io.Reader, positional bool) (*LabelTable, error) {

	t := &LabelTable{
		idToName: make(map[int]string),
		nameToID: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	offset := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		parts := strings.SplitN(line, " ", 2)

		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed label line %q: %w", line, ErrConfig)
		}

		idx, err := strconv.Atoi(parts[0])

		if err != nil {
			return nil, fmt.Errorf("malformed label index %q: %w", parts[0], ErrConfig)
		}

		name := strings.ReplaceAll(strings.TrimSpace(parts[1]), " ", "_")

		id := idx

		if positional {
			id = offset
		}

		t.idToName[id] = name
		t.nameToID[name] = id
		offset++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading labels: %w", err)
	}

	return t, nil
}

// Name returns the class name for the given class id.  Unknown ids return
// false rather than failing, SSD models can emit ids outside the known label
// range and those detections are dropped by the caller.
func (t *LabelTable) Name(classID int) (string, bool) {
	name, ok := t.idToName[classID]
	return name, ok
}

// ID returns the class id for the given class name
func (t *LabelTable) ID(name string) (int, bool) {
	id, ok := t.nameToID[name]
	return id, ok
}

// Len returns the number of classes in the table
func (t *LabelTable) Len() int {
	return len(t.idToName)
}

// TargetAny is the TargetFilter class id value that accepts all classes
const TargetAny = -1

// TargetFilter restricts detection results to a single class id, or accepts
// any class.  Resolved once at startup from a user supplied class name.
type TargetFilter struct {
	classID int
}

// AllTargets returns a TargetFilter that accepts every class
func AllTargets() TargetFilter {
	return TargetFilter{classID: TargetAny}
}

// Target resolves the given class name against the table and returns a
// filter accepting only that class.  The name "all" returns a filter that
// accepts every class.  An unknown name is a configuration error.
func (t *LabelTable) Target(name string) (TargetFilter, error) {

	if name == "all" {
		return AllTargets(), nil
	}

	id, ok := t.nameToID[name]

	if !ok {
		return TargetFilter{}, fmt.Errorf("target class %q not in labels file: %w",
			name, ErrConfig)
	}

	return TargetFilter{classID: id}, nil
}

// Accept reports if the given class id passes the filter
func (f TargetFilter) Accept(classID int) bool {
	return f.classID == TargetAny || f.classID == classID
}
