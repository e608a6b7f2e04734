// Package native implements runner.Runner with go-smb2, for hosts without
// an smbclient binary. It interprets the command strings produced by the
// smbclient package and renders results in the layouts the parsers read.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"

	"digital.vasic.smbshare/internal/logger"
	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/runner"
)

// DefaultPort is the SMB port used when the credentials carry none.
const DefaultPort = 445

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
	statLayout = "Mon Jan _2 15:04:05 2006"
)

// Runner dials a fresh SMB2 session per Run call.
type Runner struct {
	creds       client.Credentials
	dialTimeout time.Duration
}

// NewRunner creates a native runner for creds.
func NewRunner(creds client.Credentials) *Runner {
	return &Runner{creds: creds, dialTimeout: 30 * time.Second}
}

type session struct {
	conn    net.Conn
	session *smb2.Session
	share   *smb2.Share
}

func (r *Runner) connect(ctx context.Context) (*session, error) {
	port := r.creds.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(r.creds.Host, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: r.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to SMB server: %v", runner.ErrConnection, err)
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     r.creds.Username,
			Password: r.creds.Password,
			Domain:   r.creds.Domain,
		},
	}

	s, err := d.Dial(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to create SMB session: %v", runner.ErrAuthentication, err)
	}

	share, err := s.Mount(r.creds.Share)
	if err != nil {
		s.Logoff()
		conn.Close()
		return nil, fmt.Errorf("%w: failed to mount SMB share: %v", runner.ErrNotFound, err)
	}

	return &session{conn: conn, session: s, share: share}, nil
}

func (s *session) close() error {
	var errs []error
	if err := s.share.Umount(); err != nil {
		errs = append(errs, fmt.Errorf("failed to unmount share: %w", err))
	}
	if err := s.session.Logoff(); err != nil {
		errs = append(errs, fmt.Errorf("failed to logoff session: %w", err))
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
	}
	return errors.Join(errs...)
}

// Run interprets command against a freshly mounted share.
func (r *Runner) Run(ctx context.Context, command string) (string, error) {
	verb, args, err := SplitCommand(command)
	if err != nil {
		return "", r.fail(command, err)
	}

	s, err := r.connect(ctx)
	if err != nil {
		return "", r.fail(command, err)
	}
	defer func() {
		if cerr := s.close(); cerr != nil {
			logger.Debug("native session close failed", logger.KeyError, cerr.Error())
		}
	}()

	out, err := r.exec(s.share.WithContext(ctx), verb, args)
	if err != nil {
		return "", r.fail(command, err)
	}
	return out, nil
}

func (r *Runner) exec(share *smb2.Share, verb string, args []string) (string, error) {
	need := map[string]int{"allinfo": 1, "ls": 1, "get": 2, "put": 2, "mkdir": 1, "rmdir": 1, "del": 1}
	n, ok := need[verb]
	if !ok {
		return "", fmt.Errorf("unsupported command %q", verb)
	}
	if len(args) != n {
		return "", fmt.Errorf("%s expects %d argument(s), got %d", verb, n, len(args))
	}

	switch verb {
	case "allinfo":
		info, err := share.Stat(sharePath(args[0]))
		if err != nil {
			return "", err
		}
		return renderStat(info), nil
	case "ls":
		infos, err := share.ReadDir(sharePath(trimMask(args[0])))
		if err != nil {
			return "", err
		}
		return renderListing(infos), nil
	case "get":
		return "", download(share, sharePath(args[0]), args[1])
	case "put":
		return "", upload(share, args[0], sharePath(args[1]))
	case "mkdir":
		return "", share.Mkdir(sharePath(args[0]), 0755)
	default: // rmdir, del
		target := sharePath(args[0])
		info, err := share.Stat(target)
		if err != nil {
			return "", err
		}
		if err := checkRemovable(verb, info); err != nil {
			return "", err
		}
		return "", share.Remove(target)
	}
}

// checkRemovable rejects what smbclient rejects: rmdir on a file, del on
// a directory and del on a read-only file. go-smb2's Remove accepts all
// three.
func checkRemovable(verb string, info os.FileInfo) error {
	switch {
	case verb == "rmdir" && !info.IsDir():
		return fmt.Errorf("NT_STATUS_NOT_A_DIRECTORY removing %s", info.Name())
	case verb == "del" && info.IsDir():
		return fmt.Errorf("NT_STATUS_FILE_IS_A_DIRECTORY deleting %s", info.Name())
	case verb == "del" && info.Mode().Perm()&0200 == 0:
		return fmt.Errorf("NT_STATUS_CANNOT_DELETE deleting read-only %s", info.Name())
	}
	return nil
}

func download(share *smb2.Share, remote, local string) (err error) {
	src, err := share.Open(remote)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", local, err)
	}
	defer closeInto(dst, local, &err)

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to download %s: %w", remote, err)
	}
	return nil
}

func upload(share *smb2.Share, local, remote string) (err error) {
	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", local, err)
	}
	defer src.Close()

	dst, err := share.Create(remote)
	if err != nil {
		return err
	}
	defer closeInto(dst, remote, &err)

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remote, err)
	}
	return nil
}

// closeInto closes a written file and reports the close error through
// errp unless an earlier error is already set.
func closeInto(c io.Closer, name string, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("failed to close %s: %w", name, cerr)
	}
}

// fail converts err into a redacted ProcessError so callers see the same
// error shape as the exec backend.
func (r *Runner) fail(command string, err error) error {
	diag := err.Error()
	switch {
	case errors.Is(err, os.ErrNotExist):
		diag = "NT_STATUS_OBJECT_NAME_NOT_FOUND " + diag
	case errors.Is(err, os.ErrPermission):
		diag = "NT_STATUS_ACCESS_DENIED " + diag
	}
	pe := runner.NewProcessError("native "+command, diag, -1, err, r.creds.Secrets()...)
	if pe.Kind == runner.ErrProcess {
		for _, kind := range []error{runner.ErrConnection, runner.ErrAuthentication, runner.ErrNotFound} {
			if errors.Is(err, kind) {
				pe.Kind = kind
				break
			}
		}
	}
	return pe
}

// sharePath converts a smbclient-style path into the relative,
// backslash-separated form go-smb2 expects.
func sharePath(p string) string {
	p = strings.ReplaceAll(p, "/", `\`)
	p = strings.Trim(p, `\`)
	if p == "" {
		return "."
	}
	return p
}

// trimMask strips the trailing "/*" that the smbclient package appends.
func trimMask(p string) string {
	for _, suffix := range []string{"/*", `\*`} {
		if strings.HasSuffix(p, suffix) {
			return strings.TrimSuffix(p, suffix)
		}
	}
	return p
}

func attributes(info os.FileInfo) string {
	var b strings.Builder
	if info.IsDir() {
		b.WriteString(client.AttrDirectory)
	} else {
		b.WriteString(client.AttrArchive)
	}
	if info.Mode().Perm()&0200 == 0 {
		b.WriteString(client.AttrReadOnly)
	}
	return b.String()
}

func renderStat(info os.FileInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SIZE|%d\n", info.Size())
	fmt.Fprintf(&b, "WRITE_TIME|%s\n", info.ModTime().Format(statLayout))
	fmt.Fprintf(&b, "ATTRIBUTES|%s\n", attributes(info))
	return b.String()
}

func renderListing(infos []os.FileInfo) string {
	var b strings.Builder
	for _, info := range infos {
		mt := info.ModTime()
		fmt.Fprintf(&b, "%s|%d|%s|%s|%s\n",
			info.Name(), info.Size(), mt.Format(dateLayout), mt.Format(timeLayout), attributes(info))
	}
	return b.String()
}

// SplitCommand splits `verb "arg one" "arg two"` into its verb and
// unquoted arguments. Unquoted arguments end at whitespace.
func SplitCommand(command string) (string, []string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil, fmt.Errorf("empty command")
	}

	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range command {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case (r == ' ' || r == '\t') && !inQuote:
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return "", nil, fmt.Errorf("unterminated quote in command %q", command)
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens[0], tokens[1:], nil
}
