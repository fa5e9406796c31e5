// Package attachment normalizes user-supplied files into the encoded form
// messages carry. It is a pure data transform with no state of its own.
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"kanad/internal/domain"
)

// DefaultMaxFileSize is the ceiling for a single uploaded file when the
// caller does not supply its own limit.
const DefaultMaxFileSize = 100 << 20 // 100MB

// ErrTooLarge is returned before any state mutation when a file exceeds
// the size limit. Callers surface it as a user-visible warning.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// Encode reads the file and returns its transportable encoded form. The
// read honors ctx cancellation and rejects input larger than maxSize
// mid-read rather than buffering it all first. A maxSize <= 0 falls back
// to DefaultMaxFileSize.
func Encode(ctx context.Context, r io.Reader, mimeType, name string, maxSize int64) (domain.Attachment, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var data []byte
	buf := make([]byte, 64<<10)
	for {
		if err := ctx.Err(); err != nil {
			return domain.Attachment{}, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if int64(len(data))+int64(n) > maxSize {
				return domain.Attachment{}, ErrTooLarge
			}
			data = append(data, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Attachment{}, fmt.Errorf("read %s: %w", name, err)
		}
	}

	return domain.Attachment{
		Name:     name,
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
		Size:     int64(len(data)),
	}, nil
}

// Bytes decodes an attachment's content back to raw bytes. A data URI
// prefix is tolerated.
func Bytes(a domain.Attachment) ([]byte, error) {
	raw := a.Data
	if i := strings.Index(raw, ";base64,"); i >= 0 {
		raw = raw[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Name, err)
	}
	return data, nil
}

// DecodeDataURI splits a data:<mime>;base64,<data> URI into its MIME type
// and raw bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	mimeType, encoded, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, errors.New("data URI is not base64-encoded")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mimeType, data, nil
}

// Remove returns a new list without the entry at index i. Every other
// entry keeps its identity and order; an out-of-range index returns the
// input unchanged. Duplicates are allowed, so identity is positional.
func Remove(list []domain.Attachment, i int) []domain.Attachment {
	if i < 0 || i >= len(list) {
		return list
	}
	out := make([]domain.Attachment, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	return out
}
