// Package client defines the share data model and the Share interface
// implemented by every backend (smbclient CLI, native SMB2).
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Attribute flags reported by smbclient.
const (
	AttrDirectory = "D"
	AttrArchive   = "A"
	AttrReadOnly  = "R"
	AttrHidden    = "H"
	AttrSystem    = "S"
	AttrNormal    = "N"
	AttrVolume    = "V"
)

// ErrInvalidPath indicates a remote path that cannot be embedded in a command.
var ErrInvalidPath = errors.New("invalid path")

// Credentials identify a share and the account used to reach it.
type Credentials struct {
	Host        string `json:"host"`
	Share       string `json:"share"`
	Domain      string `json:"domain,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"-"`
	Port        int    `json:"port,omitempty"`
	MaxProtocol string `json:"max_protocol,omitempty"`
}

// Anonymous reports whether no username was supplied.
func (c Credentials) Anonymous() bool {
	return c.Username == ""
}

// Secrets returns the literal values that must never appear in diagnostics.
func (c Credentials) Secrets() []string {
	var s []string
	if c.Username != "" {
		s = append(s, c.Username)
	}
	if c.Password != "" {
		s = append(s, c.Password)
	}
	return s
}

// String renders the credentials without the password.
func (c Credentials) String() string {
	user := c.Username
	if c.Domain != "" {
		user = c.Domain + `\` + user
	}
	if c.Anonymous() {
		user = "anonymous"
	}
	return fmt.Sprintf("//%s/%s as %s", c.Host, c.Share, user)
}

// DirectoryEntry is one row of a directory listing.
type DirectoryEntry struct {
	Name        string   `json:"name" yaml:"name"`
	Size        int64    `json:"size" yaml:"size"`
	Date        string   `json:"date,omitempty" yaml:"date,omitempty"`
	Time        string   `json:"time,omitempty" yaml:"time,omitempty"`
	Attributes  []string `json:"attributes" yaml:"attributes"`
	IsDirectory bool     `json:"isDirectory" yaml:"isDirectory"`
}

// NewDirectoryEntry builds an entry and derives IsDirectory from the flags.
func NewDirectoryEntry(name string, size int64, date, time, attrs string) *DirectoryEntry {
	flags := ParseAttributes(attrs)
	if size < 0 {
		size = 0
	}
	return &DirectoryEntry{
		Name:        name,
		Size:        size,
		Date:        date,
		Time:        time,
		Attributes:  flags,
		IsDirectory: HasAttribute(flags, AttrDirectory),
	}
}

// FileMetadata is the result of a stat call. Every field is optional
// because smbclient may omit any of them.
type FileMetadata struct {
	Size        *int64   `json:"size,omitempty" yaml:"size,omitempty"`
	CreateTime  string   `json:"createTime,omitempty" yaml:"createTime,omitempty"`
	AccessTime  string   `json:"accessTime,omitempty" yaml:"accessTime,omitempty"`
	WriteTime   string   `json:"writeTime,omitempty" yaml:"writeTime,omitempty"`
	ChangeTime  string   `json:"changeTime,omitempty" yaml:"changeTime,omitempty"`
	Attributes  []string `json:"attributes" yaml:"attributes"`
	IsDirectory bool     `json:"isDirectory" yaml:"isDirectory"`
}

// ParseAttributes splits an attribute string into single-character flags.
// Whitespace is dropped and repeated flags are kept once, in first-seen order.
func ParseAttributes(s string) []string {
	flags := make([]string, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			continue
		}
		f := string(r)
		if !HasAttribute(flags, f) {
			flags = append(flags, f)
		}
	}
	return flags
}

// HasAttribute reports whether flag is present in attrs.
func HasAttribute(attrs []string, flag string) bool {
	for _, a := range attrs {
		if a == flag {
			return true
		}
	}
	return false
}

// Share defines the operations exposed against a remote share.
type Share interface {
	Stat(ctx context.Context, path string) (*FileMetadata, error)
	List(ctx context.Context, dir string) ([]*DirectoryEntry, error)
	Get(ctx context.Context, remotePath, localPath string) error
	Put(ctx context.Context, localPath, remotePath string) error
	Mkdir(ctx context.Context, dir string) error
	Rmdir(ctx context.Context, dir string) error
	Delete(ctx context.Context, path string) error

	// TestConnection performs a cheap round trip to validate credentials.
	TestConnection(ctx context.Context) error

	// Close releases backend resources. Backends without a persistent
	// session implement it as a no-op.
	Close(ctx context.Context) error
}

// StorageConfig selects and configures a share backend.
type StorageConfig struct {
	Backend  string                 `json:"backend"`
	Settings map[string]interface{} `json:"settings"`
}

// Factory creates shares from storage configuration.
type Factory interface {
	CreateShare(config *StorageConfig) (Share, error)
	SupportedBackends() []string
}

// PathError records a failed share operation and the path it targeted.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// WrapPathError wraps err with the operation and path, unless it is
// already a PathError for the same path.
func WrapPathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) && pe.Path == path {
		return err
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// ValidatePath rejects paths that cannot be quoted inside a command string.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, "\"\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}
