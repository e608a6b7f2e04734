package native

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/parser"
	"digital.vasic.smbshare/pkg/runner"
)

// Verify Runner implements runner.Runner.
var _ runner.Runner = (*Runner)(nil)

type fakeInfo struct {
	name  string
	size  int64
	mode  fs.FileMode
	mtime time.Time
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return f.mtime }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() interface{}   { return nil }

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		command  string
		wantVerb string
		wantArgs []string
	}{
		{`allinfo "/foo.txt"`, "allinfo", []string{"/foo.txt"}},
		{`get "/My Docs/a b.txt" "/tmp/x"`, "get", []string{"/My Docs/a b.txt", "/tmp/x"}},
		{`ls "/*"`, "ls", []string{"/*"}},
		{`mkdir   plain`, "mkdir", []string{"plain"}},
		{`del ""`, "del", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			verb, args, err := SplitCommand(tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerb, verb)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSplitCommand_Errors(t *testing.T) {
	_, _, err := SplitCommand("   ")
	assert.Error(t, err)

	_, _, err = SplitCommand(`get "/unterminated`)
	assert.Error(t, err)
}

func TestSharePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "."},
		{"/", "."},
		{"/docs/a.txt", `docs\a.txt`},
		{`\docs\sub\`, `docs\sub`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sharePath(tt.in), tt.in)
	}
}

func TestTrimMask(t *testing.T) {
	assert.Equal(t, "", trimMask("/*"))
	assert.Equal(t, "/docs", trimMask("/docs/*"))
	assert.Equal(t, `\docs`, trimMask(`\docs\*`))
	assert.Equal(t, "/docs", trimMask("/docs"))
}

func TestRenderListing_ParsesBack(t *testing.T) {
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out := renderListing([]os.FileInfo{
		fakeInfo{name: "report final.pdf", size: 2048, mode: 0644, mtime: mtime},
		fakeInfo{name: "Projects", mode: fs.ModeDir | 0755, mtime: mtime},
		fakeInfo{name: "locked.txt", size: 1, mode: 0444, mtime: mtime},
	})

	entries := parser.ParseListing(out)
	require.Len(t, entries, 3)

	assert.Equal(t, "report final.pdf", entries[0].Name)
	assert.Equal(t, int64(2048), entries[0].Size)
	assert.Equal(t, "2024-01-02", entries[0].Date)
	assert.Equal(t, "03:04:05", entries[0].Time)
	assert.Equal(t, []string{client.AttrArchive}, entries[0].Attributes)

	assert.Equal(t, "Projects", entries[1].Name)
	assert.True(t, entries[1].IsDirectory)

	assert.Equal(t, []string{client.AttrArchive, client.AttrReadOnly}, entries[2].Attributes)
}

func TestRenderStat_ParsesBack(t *testing.T) {
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := parser.ParseMetadata(renderStat(fakeInfo{name: "dir", mode: fs.ModeDir | 0755, mtime: mtime}))

	require.NotNil(t, meta.Size)
	assert.Equal(t, int64(0), *meta.Size)
	assert.Equal(t, "Tue Jan  2 03:04:05 2024", meta.WriteTime)
	assert.True(t, meta.IsDirectory)
}

func TestFail_Classification(t *testing.T) {
	r := NewRunner(client.Credentials{Host: "nas", Share: "data", Username: "bob", Password: "hunter2"})

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not exist", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, runner.ErrNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, runner.ErrPermission},
		{"dial", errors.Join(runner.ErrConnection, errors.New("refused")), runner.ErrConnection},
		{"session", errors.Join(runner.ErrAuthentication, errors.New("bad")), runner.ErrAuthentication},
		{"other", errors.New("boom"), runner.ErrProcess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.fail(`del "x"`, tt.err)
			assert.ErrorIs(t, err, tt.kind)
			assert.NotContains(t, err.Error(), "hunter2")
		})
	}
}

func TestCheckRemovable(t *testing.T) {
	file := fakeInfo{name: "report.pdf", mode: 0644}
	readOnly := fakeInfo{name: "locked.txt", mode: 0444}
	dir := fakeInfo{name: "emptydir", mode: fs.ModeDir | 0755}

	tests := []struct {
		name string
		verb string
		info fakeInfo
		kind error
	}{
		{"rmdir directory", "rmdir", dir, nil},
		{"rmdir file", "rmdir", file, runner.ErrNotDirectory},
		{"del file", "del", file, nil},
		{"del directory", "del", dir, runner.ErrIsDirectory},
		{"del read-only file", "del", readOnly, runner.ErrPermission},
	}

	r := NewRunner(client.Credentials{Host: "nas", Share: "data"})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRemovable(tt.verb, tt.info)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, r.fail(tt.verb+` "x"`, err), tt.kind)
		})
	}
}

type closeErr struct{ err error }

func (c closeErr) Close() error { return c.err }

func TestCloseInto(t *testing.T) {
	flush := errors.New("flush failed")

	var err error
	closeInto(closeErr{flush}, "out.bin", &err)
	assert.ErrorIs(t, err, flush)
	assert.Contains(t, err.Error(), "out.bin")

	earlier := errors.New("copy failed")
	err = earlier
	closeInto(closeErr{flush}, "out.bin", &err)
	assert.Equal(t, earlier, err)

	err = nil
	closeInto(closeErr{}, "out.bin", &err)
	assert.NoError(t, err)
}

func TestRun_InvalidCommandNeverDials(t *testing.T) {
	r := NewRunner(client.Credentials{Host: "203.0.113.1", Share: "data"})
	_, err := r.Run(context.Background(), `get "/unterminated`)
	require.Error(t, err)

	var pe *runner.ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, -1, pe.ExitCode)
}

func TestRun_DialFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(client.Credentials{Host: "127.0.0.1", Port: 1, Share: "data"})
	_, err := r.Run(ctx, `ls "/*"`)
	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrConnection)
}
