// Package parser turns smbclient output into typed records. Parsing is
// permissive: unrecognized input degrades to fallback records, never errors.
package parser

import (
	"strconv"
	"strings"

	"digital.vasic.smbshare/pkg/client"
)

// Metadata keys emitted by allinfo.
const (
	KeySize       = "SIZE"
	KeyCreateTime = "CREATE_TIME"
	KeyAccessTime = "ACCESS_TIME"
	KeyWriteTime  = "WRITE_TIME"
	KeyChangeTime = "CHANGE_TIME"
	KeyAttributes = "ATTRIBUTES"
)

// ParseKeyValues reads "KEY | VALUE" lines into a map with uppercased keys.
// Lines that do not split into exactly a key and a value are skipped.
func ParseKeyValues(text string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 2 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(parts[0]))
		if key == "" {
			continue
		}
		info[key] = strings.TrimSpace(parts[1])
	}
	return info
}

// ParseMetadata parses allinfo output.
func ParseMetadata(text string) *client.FileMetadata {
	info := ParseKeyValues(text)

	meta := &client.FileMetadata{
		CreateTime: info[KeyCreateTime],
		AccessTime: info[KeyAccessTime],
		WriteTime:  info[KeyWriteTime],
		ChangeTime: info[KeyChangeTime],
		Attributes: client.ParseAttributes(info[KeyAttributes]),
	}
	if raw, ok := info[KeySize]; ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			meta.Size = &n
		}
	}
	meta.IsDirectory = client.HasAttribute(meta.Attributes, client.AttrDirectory)
	return meta
}
