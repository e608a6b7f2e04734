package runner

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrProcess is the classification for failures no hint recognizes.
	ErrProcess = errors.New("smbclient command failed")

	// ErrAuthentication indicates the server rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrConnection indicates the server could not be reached.
	ErrConnection = errors.New("connection failed")

	// ErrNotFound indicates the remote path or share does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermission indicates the account may not access the path.
	ErrPermission = errors.New("permission denied")

	// ErrNotDirectory indicates a directory operation on a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory indicates a file operation on a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrOutputTooLarge indicates captured output exceeded the configured bound.
	ErrOutputTooLarge = errors.New("output exceeds size limit")
)

type hint struct {
	re   *regexp.Regexp
	text string
	kind error
}

// hints are matched in order against diagnostic text; the first match wins.
var hints = []hint{
	{regexp.MustCompile(`(?i)LOGON[_ ]FAILURE`), "Logon Failure - Check your username, password, and domain", ErrAuthentication},
	{regexp.MustCompile(`(?i)BAD[_ ]NETWORK[_ ]NAME`), "Bad Network Name - The specified share does not exist on the server", ErrNotFound},
	{regexp.MustCompile(`(?i)ACCESS_DENIED|EACCES`), "Access Denied - Check your permissions for this file/folder", ErrPermission},
	{regexp.MustCompile(`(?i)OBJECT_(NAME|PATH)_NOT_FOUND|NO_SUCH_FILE|ENOENT`), "File/Path Not Found", ErrNotFound},
	{regexp.MustCompile(`(?i)NOT_A_DIRECTORY|ENOTDIR`), "Not a directory", ErrNotDirectory},
	{regexp.MustCompile(`(?i)FILE_IS_A_DIRECTORY|EISDIR`), "Is a directory - Use rmdir for directories", ErrIsDirectory},
	{regexp.MustCompile(`(?i)CANNOT_DELETE`), "Cannot delete - The file is read-only or in use", ErrPermission},
	{regexp.MustCompile(`(?i)IO_TIMEOUT|I/O TIMEOUT|ETIMEOUT|ETIMEDOUT`), "Connection timed out", ErrConnection},
	{regexp.MustCompile(`(?i)CONNECTION[_ ]REFUSED|ECONNREFUSED`), "Could not connect to SMB server - Connection refused", ErrConnection},
}

// errorSignature marks stderr text that denotes a real failure even when
// smbclient exits successfully.
var errorSignature = regexp.MustCompile(`(?i)NT_STATUS|Error|failed`)

// HasErrorSignature reports whether stderr contains a known error indicator.
func HasErrorSignature(stderr string) bool {
	return errorSignature.MatchString(stderr)
}

// Readable prefixes msg with a human-readable hint when one matches.
// The raw diagnostic is always kept.
func Readable(msg string) string {
	for _, h := range hints {
		if h.re.MatchString(msg) {
			return fmt.Sprintf("%s (%s)", h.text, msg)
		}
	}
	return msg
}

// Classify returns the sentinel error describing diag.
func Classify(diag string) error {
	for _, h := range hints {
		if h.re.MatchString(diag) {
			return h.kind
		}
	}
	return ErrProcess
}

// ProcessError is returned for every failed smbclient invocation.
// Command and Stderr are redacted before the error is built.
type ProcessError struct {
	Command  string
	Stderr   string
	ExitCode int
	Kind     error
	Err      error
}

func (e *ProcessError) Error() string {
	return Readable(fmt.Sprintf(`smbclient failed. cmd="%s" stderr="%s"`, e.Command, e.Stderr))
}

func (e *ProcessError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewProcessError redacts command and diag with secrets and classifies the result.
func NewProcessError(command, diag string, exitCode int, cause error, secrets ...string) *ProcessError {
	safeDiag := Redact(diag, secrets...)
	kind := Classify(safeDiag)
	if errors.Is(cause, ErrOutputTooLarge) {
		kind = ErrOutputTooLarge
	}
	return &ProcessError{
		Command:  Redact(command, secrets...),
		Stderr:   safeDiag,
		ExitCode: exitCode,
		Kind:     kind,
		Err:      cause,
	}
}
