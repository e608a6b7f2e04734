package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json", input: "JSON", want: FormatJSON},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	data := NewTableData("NAME", "SIZE")
	data.AddRow("file1.txt", "100")

	require.NoError(t, NewPrinter(&buf, FormatTable).Print(data))
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "file1.txt")
	assert.Contains(t, buf.String(), "100")
}

func TestPrinter_TableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable).Print(map[string]any{"deleted": true}))
	assert.JSONEq(t, `{"deleted": true}`, buf.String())
}

func TestPrinter_JSONAndYAML(t *testing.T) {
	data := map[string]any{"remotePath": "/a.txt", "uploaded": true}

	var js bytes.Buffer
	require.NoError(t, NewPrinter(&js, FormatJSON).Print(data))
	assert.JSONEq(t, `{"remotePath": "/a.txt", "uploaded": true}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, NewPrinter(&ym, FormatYAML).Print(data))
	assert.YAMLEq(t, "remotePath: /a.txt\nuploaded: true\n", ym.String())
}

func TestPrinter_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewPrinter(&buf, Format("xml")).Print(1))
}
