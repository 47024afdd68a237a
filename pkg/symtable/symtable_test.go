package symtable_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/looptrace/pkg/symtable"
	"github.com/maxgio92/looptrace/pkg/trace"
)

const mapping = `# id,access,name
1,1,main.(*App).Run
2,9,main.render(ctx, frame)

3,0,main.layout
`

func TestParse(t *testing.T) {
	tab := symtable.NewMethodTable()
	require.NoError(t, tab.Parse(strings.NewReader(mapping)))
	require.Equal(t, 3, tab.Len())

	m, err := tab.Lookup(2)
	require.NoError(t, err)
	require.Equal(t, symtable.Method{ID: 2, Access: 9, Name: "main.render(ctx, frame)"}, m)

	_, err = tab.Lookup(4)
	require.ErrorIs(t, err, symtable.ErrMethodNotFound)

	require.Equal(t, "main.layout", tab.Name(3))
	require.Equal(t, "4", tab.Name(4))
	require.Equal(t, "[dispatch]", tab.Name(trace.FuncIDDispatch))
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing name", input: "1,1\n"},
		{name: "bad id", input: "x,1,main.f\n"},
		{name: "id out of range", input: "1048575,1,main.f\n"},
		{name: "bad access", input: "1,public,main.f\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := symtable.NewMethodTable().Parse(strings.NewReader(tt.input))
			require.ErrorIs(t, err, symtable.ErrMappingInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "methodMapping.txt")
	require.NoError(t, os.WriteFile(path, []byte(mapping), 0o600))

	tab := symtable.NewMethodTable()
	require.NoError(t, tab.Load(path))
	require.Equal(t, "main.(*App).Run", tab.Name(1))

	tab.Add(symtable.Method{ID: 1, Name: "main.main"})
	require.Equal(t, "main.main", tab.Name(1))

	require.Error(t, tab.Load(filepath.Join(t.TempDir(), "missing")))
}

func TestWriteParse(t *testing.T) {
	tab := symtable.NewMethodTable()
	tab.Add(symtable.Method{ID: 7, Access: 1, Name: "main.draw"})
	tab.Add(symtable.Method{ID: 2, Access: 0, Name: "main.measure(a, b)"})

	var buf bytes.Buffer
	require.NoError(t, tab.Write(&buf))
	require.Equal(t, "2,0,main.measure(a, b)\n7,1,main.draw\n", buf.String())

	parsed := symtable.NewMethodTable()
	require.NoError(t, parsed.Parse(&buf))
	require.Equal(t, 2, parsed.Len())
	require.Equal(t, "main.draw", parsed.Name(7))
}
