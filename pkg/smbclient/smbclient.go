// Package smbclient implements client.Share on top of a runner.Runner,
// one smbclient command per operation.
package smbclient

import (
	"context"
	"fmt"
	"strings"

	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/parser"
	"digital.vasic.smbshare/pkg/runner"
)

// Client implements client.Share. It holds no session state; every call
// is an independent runner invocation, so it is safe to reuse.
type Client struct {
	runner runner.Runner
}

// New creates a share client backed by r.
func New(r runner.Runner) *Client {
	return &Client{runner: r}
}

// command builds `verb "p1" "p2"`, rejecting paths that cannot be quoted.
func command(verb string, paths ...string) (string, error) {
	parts := make([]string, 0, len(paths)+1)
	parts = append(parts, verb)
	for _, p := range paths {
		if err := client.ValidatePath(p); err != nil {
			return "", err
		}
		parts = append(parts, `"`+p+`"`)
	}
	return strings.Join(parts, " "), nil
}

func (c *Client) run(ctx context.Context, op, path, verb string, paths ...string) (string, error) {
	cmd, err := command(verb, paths...)
	if err != nil {
		return "", client.WrapPathError(op, path, err)
	}
	out, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return "", client.WrapPathError(op, path, err)
	}
	return out, nil
}

// ListMask returns the ls mask for dir: its contents, or dir itself when
// it already carries a wildcard.
func ListMask(dir string) string {
	if strings.ContainsAny(dir, "*?") {
		return dir
	}
	trimmed := strings.TrimRight(dir, `/\`)
	return trimmed + "/*"
}

// Stat returns metadata for path.
func (c *Client) Stat(ctx context.Context, path string) (*client.FileMetadata, error) {
	out, err := c.run(ctx, "stat", path, "allinfo", path)
	if err != nil {
		return nil, err
	}
	return parser.ParseMetadata(out), nil
}

// List returns the entries of dir with self/parent references and
// summary lines removed.
func (c *Client) List(ctx context.Context, dir string) ([]*client.DirectoryEntry, error) {
	out, err := c.run(ctx, "list", dir, "ls", ListMask(dir))
	if err != nil {
		return nil, err
	}
	return parser.ParseListing(out), nil
}

// Get downloads remotePath into localPath. The caller owns localPath.
func (c *Client) Get(ctx context.Context, remotePath, localPath string) error {
	_, err := c.run(ctx, "get", remotePath, "get", remotePath, localPath)
	return err
}

// Put uploads localPath to remotePath.
func (c *Client) Put(ctx context.Context, localPath, remotePath string) error {
	_, err := c.run(ctx, "put", remotePath, "put", localPath, remotePath)
	return err
}

// Mkdir creates dir.
func (c *Client) Mkdir(ctx context.Context, dir string) error {
	_, err := c.run(ctx, "mkdir", dir, "mkdir", dir)
	return err
}

// Rmdir removes the empty directory dir.
func (c *Client) Rmdir(ctx context.Context, dir string) error {
	_, err := c.run(ctx, "rmdir", dir, "rmdir", dir)
	return err
}

// Delete removes the file at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.run(ctx, "del", path, "del", path)
	return err
}

// TestConnection lists the share root to validate host, share and credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.List(ctx, ""); err != nil {
		return fmt.Errorf("failed to connect to SMB server: %w", err)
	}
	return nil
}

// Close is a no-op; there is no session beneath the client.
func (c *Client) Close(ctx context.Context) error {
	return nil
}
