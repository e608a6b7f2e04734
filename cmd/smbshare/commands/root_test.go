package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/runner"
)

type fakeShare struct {
	calls    []string
	files    map[string][]byte
	uploaded map[string][]byte
	err      error
}

func (f *fakeShare) do(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeShare) Stat(ctx context.Context, p string) (*client.FileMetadata, error) {
	if err := f.do("stat " + p); err != nil {
		return nil, err
	}
	size := int64(42)
	return &client.FileMetadata{Size: &size, Attributes: []string{"A"}}, nil
}

func (f *fakeShare) List(ctx context.Context, dir string) ([]*client.DirectoryEntry, error) {
	if err := f.do("list " + dir); err != nil {
		return nil, err
	}
	return []*client.DirectoryEntry{
		client.NewDirectoryEntry("My Documents", 0, "2024-01-01", "10:00", "D"),
		client.NewDirectoryEntry("file1.txt", 100, "2024-01-01", "09:00", "A"),
	}, nil
}

func (f *fakeShare) Get(ctx context.Context, remote, local string) error {
	if err := f.do("get " + remote); err != nil {
		return err
	}
	return os.WriteFile(local, f.files[remote], 0600)
}

func (f *fakeShare) Put(ctx context.Context, local, remote string) error {
	if err := f.do("put " + remote); err != nil {
		return err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	f.uploaded[remote] = data
	return nil
}

func (f *fakeShare) Mkdir(ctx context.Context, dir string) error { return f.do("mkdir " + dir) }
func (f *fakeShare) Rmdir(ctx context.Context, dir string) error { return f.do("rmdir " + dir) }
func (f *fakeShare) Delete(ctx context.Context, p string) error  { return f.do("del " + p) }
func (f *fakeShare) TestConnection(ctx context.Context) error    { return f.do("check") }
func (f *fakeShare) Close(ctx context.Context) error             { return nil }

// execute runs the command tree with a fake share and an isolated config dir.
func execute(t *testing.T, share *fakeShare, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	a := &app{
		out:          &out,
		readPassword: func(string) (string, error) { return "prompted", nil },
		openShare:    func(ctx context.Context) (client.Share, error) { return share, nil },
	}
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--host", "nas", "--share", "data"}, args...))
	err := root.Execute()
	return out.String(), err
}

func newFake() *fakeShare {
	return &fakeShare{files: map[string][]byte{}, uploaded: map[string][]byte{}}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&app{out: &out})
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "dev\n", out.String())
}

func TestList_Table(t *testing.T) {
	share := newFake()
	out, err := execute(t, share, "ls")
	require.NoError(t, err)

	assert.Equal(t, []string{"list /"}, share.calls)
	assert.Contains(t, out, "My Documents")
	assert.Contains(t, out, "file1.txt")
}

func TestList_JSON(t *testing.T) {
	share := newFake()
	out, err := execute(t, share, "-o", "json", "ls", "/a", "/b")
	require.NoError(t, err)
	assert.Equal(t, []string{"list /a", "list /b"}, share.calls)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "/a", decoded[0]["directory"])
	entries := decoded[0]["entries"].([]any)
	assert.Len(t, entries, 2)
}

func TestStat_JSON(t *testing.T) {
	out, err := execute(t, newFake(), "-o", "json", "stat", "/foo.txt")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"remotePath":"/foo.txt","size":42,"attributes":["A"],"isDirectory":false}]`, out)
}

func TestGet_WritesFiles(t *testing.T) {
	share := newFake()
	share.files["/docs/report.pdf"] = []byte("%PDF")
	dest := t.TempDir()

	_, err := execute(t, share, "get", "--dest", dest, "/docs/report.pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestGet_Stdout(t *testing.T) {
	share := newFake()
	share.files["/a.txt"] = []byte("hello")

	out, err := execute(t, share, "get", "--stdout", "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestPut_Files(t *testing.T) {
	share := newFake()
	local := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(local, []byte("content"), 0600))

	_, err := execute(t, share, "put", "--remote-dir", "/inbox", local)
	require.NoError(t, err)
	assert.Equal(t, "content", string(share.uploaded["/inbox/notes.txt"]))
}

func TestPut_Text(t *testing.T) {
	share := newFake()
	_, err := execute(t, share, "put", "--text", "hi", "--remote-path", "/hi.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(share.uploaded["/hi.txt"]))

	_, err = execute(t, newFake(), "put", "--text", "hi")
	assert.Error(t, err)
}

func TestStructuralCommands(t *testing.T) {
	share := newFake()
	_, err := execute(t, share, "mkdir", "/a", "/b")
	require.NoError(t, err)
	_, err = execute(t, share, "rmdir", "/a")
	require.NoError(t, err)
	_, err = execute(t, share, "rm", "/x.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{"mkdir /a", "mkdir /b", "rmdir /a", "del /x.txt"}, share.calls)
}

func TestCommandFailure_Propagates(t *testing.T) {
	share := newFake()
	share.err = runner.NewProcessError("smbclient", "NT_STATUS_LOGON_FAILURE", 1, nil)

	_, err := execute(t, share, "rm", "/a", "/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrAuthentication)
	assert.Contains(t, err.Error(), "Logon Failure")
	assert.Equal(t, []string{"del /a"}, share.calls)
}

func TestCheck(t *testing.T) {
	share := newFake()
	out, err := execute(t, share, "--user", "alice", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "OK //nas/data as alice")
}

func TestAskPassword(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	a := &app{
		out:          &out,
		readPassword: func(string) (string, error) { return "prompted", nil },
		openShare:    func(ctx context.Context) (client.Share, error) { return newFake(), nil },
	}
	root := newRootCmd(a)
	root.SetArgs([]string{"--host", "nas", "--share", "data", "--ask-password", "check"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "prompted", a.cfg.Connection.Password)
}

func TestURLFlag(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a := &app{
		out:       &bytes.Buffer{},
		openShare: func(ctx context.Context) (client.Share, error) { return newFake(), nil },
	}
	root := newRootCmd(a)
	root.SetArgs([]string{"--url", "smb://CORP;bob:pw@fileserver/projects", "check"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "fileserver", a.cfg.Connection.Host)
	assert.Equal(t, "projects", a.cfg.Connection.Share)
	assert.Equal(t, "CORP", a.cfg.Connection.Domain)
	assert.Equal(t, "bob", a.cfg.Connection.Username)
	assert.Equal(t, "pw", a.cfg.Connection.Password)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := execute(t, newFake(), "-o", "xml", "ls")
	assert.Error(t, err)
}

func TestMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smbshare.prom")
	_, err := execute(t, newFake(), "--metrics-textfile", path, "mkdir", "/a")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
