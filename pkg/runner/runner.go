// Package runner invokes smbclient and turns its exit status and
// diagnostic stream into typed, redacted errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"digital.vasic.smbshare/internal/logger"
	"digital.vasic.smbshare/pkg/client"
)

const (
	// DefaultBinary is resolved from PATH.
	DefaultBinary = "smbclient"

	// DefaultMaxOutput bounds each captured stream.
	DefaultMaxOutput int64 = 10 * 1024 * 1024

	// maxDiagnostic bounds the stdout tail used as a diagnostic when
	// smbclient exits non-zero without writing to stderr.
	maxDiagnostic = 4096
)

// Runner executes a single smbclient command string against the share it
// was built for and returns standard output.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// BuildConnectionArgs returns the share-session argument prefix:
// UNC path, user specifier, grep-able output, then optional port and
// protocol hints.
func BuildConnectionArgs(creds client.Credentials) []string {
	user := "%"
	if !creds.Anonymous() {
		user = creds.Username + "%" + creds.Password
		if creds.Domain != "" {
			user = creds.Domain + "/" + user
		}
	}
	args := []string{`\\` + creds.Host + `\` + creds.Share, "-U", user, "-g"}
	if creds.Port > 0 {
		args = append(args, "-p", strconv.Itoa(creds.Port))
	}
	if creds.MaxProtocol != "" {
		args = append(args, "-m", creds.MaxProtocol)
	}
	return args
}

// Verb returns the first word of a command string.
func Verb(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ExecRunner runs smbclient as a subprocess, once per call.
type ExecRunner struct {
	path      string
	args      []string
	secrets   []string
	maxOutput int64
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithMaxOutput sets the per-stream capture bound. Non-positive values
// keep the default.
func WithMaxOutput(n int64) Option {
	return func(r *ExecRunner) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// NewExecRunner creates a runner for the share described by creds.
// An empty path uses smbclient from PATH.
func NewExecRunner(path string, creds client.Credentials, opts ...Option) *ExecRunner {
	if path == "" {
		path = DefaultBinary
	}
	r := &ExecRunner{
		path:      path,
		args:      BuildConnectionArgs(creds),
		maxOutput: DefaultMaxOutput,
	}
	r.secrets = creds.Secrets()
	if !creds.Anonymous() {
		// args[2] is the full -U specifier.
		r.secrets = append(r.secrets, r.args[2])
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the smbclient binary in use.
func (r *ExecRunner) Path() string {
	return r.path
}

// Run executes command and returns stdout.
func (r *ExecRunner) Run(ctx context.Context, command string) (string, error) {
	argv := make([]string, 0, len(r.args)+2)
	argv = append(argv, r.args...)
	argv = append(argv, "-c", command)
	cmdline := r.path + " " + strings.Join(RedactArgs(argv), " ")

	stdout := &cappedBuffer{limit: r.maxOutput}
	stderr := &cappedBuffer{limit: r.maxOutput}

	cmd := exec.CommandContext(ctx, r.path, argv...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("running smbclient", logger.KeyCommand, Redact(cmdline, r.secrets...))
	err := cmd.Run()

	if stdout.overflow || stderr.overflow {
		cause := fmt.Errorf("%w: limit is %d bytes", ErrOutputTooLarge, r.maxOutput)
		return "", NewProcessError(cmdline, cause.Error(), -1, cause, r.secrets...)
	}

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return "", NewProcessError(cmdline, diagnostic(stderr, stdout, err), exitCode, err, r.secrets...)
	}

	if errText := strings.TrimSpace(stderr.String()); errText != "" {
		if HasErrorSignature(errText) {
			return "", NewProcessError(cmdline, errText, 0, nil, r.secrets...)
		}
		logger.Debug("smbclient warning", logger.KeyError, Redact(errText, r.secrets...))
	}

	return stdout.String(), nil
}

// diagnostic picks the most useful failure text: stderr, else the tail of
// stdout (smbclient prints NT_STATUS codes there for some commands), else
// the process error.
func diagnostic(stderr, stdout *cappedBuffer, err error) string {
	if s := strings.TrimSpace(stderr.String()); s != "" {
		return s
	}
	if s := strings.TrimSpace(stdout.String()); s != "" {
		if len(s) > maxDiagnostic {
			s = s[len(s)-maxDiagnostic:]
		}
		return s
	}
	return err.Error()
}

// cappedBuffer keeps at most limit bytes and records overflow. It keeps
// accepting writes so the child never blocks on a full pipe.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 {
		remain := b.limit - int64(b.buf.Len())
		if int64(len(p)) > remain {
			if remain > 0 {
				b.buf.Write(p[:remain])
			}
			b.overflow = true
			return len(p), nil
		}
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
