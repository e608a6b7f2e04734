// Package dispatch maps operation names to handlers and runs them over a
// batch of input items against one share.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"digital.vasic.smbshare/internal/logger"
	"digital.vasic.smbshare/internal/staging"
	"digital.vasic.smbshare/pkg/client"
)

// Operation identifies a share operation.
type Operation string

// Supported operations.
const (
	OpStat  Operation = "stat"
	OpList  Operation = "list"
	OpGet   Operation = "get"
	OpPut   Operation = "put"
	OpMkdir Operation = "mkdir"
	OpRmdir Operation = "rmdir"
	OpDel   Operation = "del"
)

// Operations lists every supported operation in display order.
var Operations = []Operation{OpStat, OpList, OpGet, OpPut, OpMkdir, OpRmdir, OpDel}

var (
	// ErrConfiguration marks failures detected before any share access.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedOperation is returned for an operation with no handler.
	ErrUnsupportedOperation = fmt.Errorf("%w: unsupported operation", ErrConfiguration)

	// ErrMissingBinary is returned when put reads a binary property the item lacks.
	ErrMissingBinary = fmt.Errorf("%w: binary property not found", ErrConfiguration)
)

// ParseOperation validates name against the supported operations.
func ParseOperation(name string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := Handlers[op]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedOperation, name)
	}
	return op, nil
}

// Parameters resolves named string parameters for an item.
type Parameters interface {
	GetString(item int, name, def string) string
}

// MapParameters resolves per-item values first, then global ones.
type MapParameters struct {
	Global  map[string]string
	PerItem []map[string]string
}

// GetString returns the parameter for item, or def when it is unset or empty.
func (p MapParameters) GetString(item int, name, def string) string {
	if item >= 0 && item < len(p.PerItem) {
		if v, ok := p.PerItem[item][name]; ok && v != "" {
			return v
		}
	}
	if v, ok := p.Global[name]; ok && v != "" {
		return v
	}
	return def
}

// BinaryData is a binary attachment on an item.
type BinaryData struct {
	Data     []byte `json:"-"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

// Item is one input or output record.
type Item struct {
	JSON   map[string]any         `json:"json"`
	Binary map[string]*BinaryData `json:"binary,omitempty"`
}

// Opener opens the share a batch runs against.
type Opener func(ctx context.Context) (client.Share, error)

// Dispatcher runs batches. The zero value stages files in os.TempDir().
type Dispatcher struct {
	Staging *staging.Area
}

// New creates a dispatcher staging files in area; nil uses os.TempDir().
func New(area *staging.Area) *Dispatcher {
	return &Dispatcher{Staging: area}
}

// Execute runs op over items with a dispatcher staging in os.TempDir().
func Execute(ctx context.Context, op Operation, open Opener, params Parameters, items []*Item) ([]*Item, error) {
	return New(nil).Execute(ctx, op, open, params, items)
}

// Execute resolves the handler, opens the share once and processes items
// strictly in order. The first failing item aborts the batch and no
// partial output is returned. The share is always closed.
func (d *Dispatcher) Execute(ctx context.Context, op Operation, open Opener, params Parameters, items []*Item) ([]*Item, error) {
	handler, ok := Handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, op)
	}

	share, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open share: %w", err)
	}
	defer func() {
		if cerr := share.Close(ctx); cerr != nil {
			logger.Debug("share close failed", logger.KeyError, cerr.Error())
		}
	}()

	area := d.Staging
	if area == nil {
		area = staging.New("")
	}
	env := &Env{Share: share, Params: params, Items: items, Staging: area}

	out := make([]*Item, 0, len(items))
	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("dispatching item", logger.KeyOp, string(op), logger.KeyItem, i)
		res, err := handler(ctx, env, i)
		if err != nil {
			return nil, fmt.Errorf("%s failed on item %d: %w", op, i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Env is what a handler sees for the current batch.
type Env struct {
	Share   client.Share
	Params  Parameters
	Items   []*Item
	Staging *staging.Area
}

func (e *Env) str(i int, name, def string) string {
	if e.Params == nil {
		return def
	}
	return e.Params.GetString(i, name, def)
}

// Handler processes input item i and returns its output item.
type Handler func(ctx context.Context, env *Env, i int) (*Item, error)

// Handlers holds the handler for every supported operation.
var Handlers = map[Operation]Handler{
	OpStat:  handleStat,
	OpList:  handleList,
	OpGet:   handleGet,
	OpPut:   handlePut,
	OpMkdir: handleMkdir,
	OpRmdir: handleRmdir,
	OpDel:   handleDel,
}

func jsonItem(fields map[string]any) *Item {
	return &Item{JSON: fields}
}

func handleStat(ctx context.Context, env *Env, i int) (*Item, error) {
	remotePath := env.str(i, "remotePath", "")
	meta, err := env.Share.Stat(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"remotePath":  remotePath,
		"attributes":  meta.Attributes,
		"isDirectory": meta.IsDirectory,
	}
	if meta.Size != nil {
		fields["size"] = *meta.Size
	}
	for key, val := range map[string]string{
		"createTime": meta.CreateTime,
		"accessTime": meta.AccessTime,
		"writeTime":  meta.WriteTime,
		"changeTime": meta.ChangeTime,
	} {
		if val != "" {
			fields[key] = val
		}
	}
	return jsonItem(fields), nil
}

func handleList(ctx context.Context, env *Env, i int) (*Item, error) {
	directory := env.str(i, "directory", "/")
	entries, err := env.Share.List(ctx, directory)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*client.DirectoryEntry{}
	}
	return jsonItem(map[string]any{"directory": directory, "entries": entries}), nil
}

func handleGet(ctx context.Context, env *Env, i int) (*Item, error) {
	remotePath := env.str(i, "remotePath", "")
	outProp := env.str(i, "outBinaryPropertyName", "data")
	outFile := env.str(i, "outFileName", "")
	if outFile == "" {
		outFile = baseName(remotePath)
	}
	outMime := env.str(i, "outMimeType", "application/octet-stream")

	tmp := env.Staging.Path("get")
	defer env.Staging.Remove(tmp)

	if err := env.Share.Get(ctx, remotePath, tmp); err != nil {
		return nil, err
	}
	data, err := env.Staging.Read(tmp)
	if err != nil {
		return nil, err
	}

	return &Item{
		JSON: map[string]any{"fileName": outFile, "remotePath": remotePath},
		Binary: map[string]*BinaryData{
			outProp: {Data: data, FileName: outFile, MimeType: outMime},
		},
	}, nil
}

func handlePut(ctx context.Context, env *Env, i int) (*Item, error) {
	remotePath := env.str(i, "remotePath", "")
	source := env.str(i, "putSource", "binary")

	var payload []byte
	switch source {
	case "binary":
		prop := env.str(i, "binaryPropertyName", "data")
		var bin *BinaryData
		if i < len(env.Items) && env.Items[i] != nil {
			bin = env.Items[i].Binary[prop]
		}
		if bin == nil {
			return nil, fmt.Errorf("%w: %q not found on item %d", ErrMissingBinary, prop, i)
		}
		payload = bin.Data
	case "text":
		payload = []byte(env.str(i, "textContent", ""))
	default:
		return nil, fmt.Errorf("%w: unknown put source %q", ErrConfiguration, source)
	}

	tmp, err := env.Staging.Write("put", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer env.Staging.Remove(tmp)

	if err := env.Share.Put(ctx, tmp, remotePath); err != nil {
		return nil, err
	}
	return jsonItem(map[string]any{"remotePath": remotePath, "uploaded": true}), nil
}

func handleMkdir(ctx context.Context, env *Env, i int) (*Item, error) {
	directory := env.str(i, "directory", "")
	if err := env.Share.Mkdir(ctx, directory); err != nil {
		return nil, err
	}
	return jsonItem(map[string]any{"directory": directory, "created": true}), nil
}

func handleRmdir(ctx context.Context, env *Env, i int) (*Item, error) {
	directory := env.str(i, "directory", "")
	if err := env.Share.Rmdir(ctx, directory); err != nil {
		return nil, err
	}
	return jsonItem(map[string]any{"directory": directory, "removed": true}), nil
}

func handleDel(ctx context.Context, env *Env, i int) (*Item, error) {
	remotePath := env.str(i, "remotePath", "")
	if err := env.Share.Delete(ctx, remotePath); err != nil {
		return nil, err
	}
	return jsonItem(map[string]any{"remotePath": remotePath, "deleted": true}), nil
}

// baseName returns the last element of a share path, accepting either separator.
func baseName(p string) string {
	return path.Base(strings.ReplaceAll(p, `\`, "/"))
}
