package symtable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxgio92/looptrace/pkg/trace"
)

var (
	ErrMethodNotFound = errors.New("method not found")
	ErrMappingInvalid = errors.New("method mapping line is invalid")
)

// Method is a function instrumented at build time.
type Method struct {
	ID     uint32
	Access int
	Name   string
}

// MethodTable maps the function ids found in trace events to the
// instrumented functions. It is loaded from a mapping file with one
// "id,access,name" line per function.
type MethodTable struct {
	methods map[uint32]Method
}

func NewMethodTable() *MethodTable {
	tab := new(MethodTable)
	tab.methods = make(map[uint32]Method)

	return tab
}

// Load reads the mapping file at pathname.
func (t *MethodTable) Load(pathname string) error {
	file, err := os.Open(pathname)
	if err != nil {
		return errors.Wrap(err, "error opening method mapping file")
	}
	defer file.Close()

	return t.Parse(file)
}

// Parse reads mapping lines from r. Empty lines and lines starting
// with # are skipped.
func (t *MethodTable) Parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		// The name can contain commas, the id and the access flags cannot.
		fields := strings.SplitN(text, ",", 3)
		if len(fields) != 3 {
			return errors.Wrapf(ErrMappingInvalid, "line %d", line)
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil || uint32(id) >= trace.FuncIDMax {
			return errors.Wrapf(ErrMappingInvalid, "line %d: bad id %q", line, fields[0])
		}
		access, err := strconv.Atoi(fields[1])
		if err != nil {
			return errors.Wrapf(ErrMappingInvalid, "line %d: bad access flags %q", line, fields[1])
		}
		t.methods[uint32(id)] = Method{ID: uint32(id), Access: access, Name: fields[2]}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "error reading method mapping")
	}

	return nil
}

// Write writes the table to w in the mapping file format, ordered by id.
func (t *MethodTable) Write(w io.Writer) error {
	ids := make([]uint32, 0, len(t.methods))
	for id := range t.methods {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bw := bufio.NewWriter(w)
	for _, id := range ids {
		m := t.methods[id]
		if _, err := fmt.Fprintf(bw, "%d,%d,%s\n", m.ID, m.Access, m.Name); err != nil {
			return errors.Wrap(err, "error writing method mapping")
		}
	}

	return errors.Wrap(bw.Flush(), "error writing method mapping")
}

// Add registers a method, replacing any with the same id.
func (t *MethodTable) Add(m Method) {
	t.methods[m.ID] = m
}

// Lookup returns the method with the given id.
func (t *MethodTable) Lookup(id uint32) (Method, error) {
	m, ok := t.methods[id]
	if !ok {
		return Method{}, ErrMethodNotFound
	}

	return m, nil
}

// Name returns the method name, or the id itself when unknown.
func (t *MethodTable) Name(id uint32) string {
	if id == trace.FuncIDDispatch {
		return "[dispatch]"
	}
	if m, ok := t.methods[id]; ok {
		return m.Name
	}

	return strconv.FormatUint(uint64(id), 10)
}

func (t *MethodTable) Len() int {
	return len(t.methods)
}
