package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"kanad/internal/domain"
)

func TestEncode(t *testing.T) {
	att, err := Encode(context.Background(), strings.NewReader("paper body"), "application/pdf", "paper.pdf", 0)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if att.Name != "paper.pdf" || att.MIMEType != "application/pdf" {
		t.Fatalf("metadata wrong: %+v", att)
	}
	if att.Size != int64(len("paper body")) {
		t.Fatalf("size = %d", att.Size)
	}
	decoded, err := base64.StdEncoding.DecodeString(att.Data)
	if err != nil || string(decoded) != "paper body" {
		t.Fatalf("data roundtrip failed: %q, %v", decoded, err)
	}
}

func TestEncodeDefaultsMIMEType(t *testing.T) {
	att, err := Encode(context.Background(), strings.NewReader("x"), "", "blob", 0)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if att.MIMEType != "application/octet-stream" {
		t.Fatalf("mime = %q", att.MIMEType)
	}
}

func TestEncodeRejectsOversized(t *testing.T) {
	// An endless reader; the size check must trip without buffering 100MB+.
	r := &repeatReader{}
	_, err := Encode(context.Background(), r, "application/octet-stream", "huge.bin", 0)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestEncodeHonorsConfiguredLimit(t *testing.T) {
	content := strings.Repeat("x", 16)

	_, err := Encode(context.Background(), strings.NewReader(content), "", "f", 8)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge under an 8-byte limit, got %v", err)
	}

	att, err := Encode(context.Background(), strings.NewReader(content), "", "f", 16)
	if err != nil {
		t.Fatalf("encode at the limit failed: %v", err)
	}
	if att.Size != 16 {
		t.Fatalf("size = %d", att.Size)
	}
}

type repeatReader struct{}

func (r *repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestEncodeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Encode(ctx, &repeatReader{}, "", "f", 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRemovePreservesOrder(t *testing.T) {
	list := []domain.Attachment{
		{Name: "a", Size: 1},
		{Name: "b", Size: 2},
		{Name: "c", Size: 3},
	}
	got := Remove(list, 1)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].Size != 1 || got[1].Size != 3 {
		t.Fatal("surviving entries were modified")
	}
	// Input unchanged
	if len(list) != 3 || list[1].Name != "b" {
		t.Fatal("input list was mutated")
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	list := []domain.Attachment{{Name: "a"}}
	if got := Remove(list, 5); len(got) != 1 {
		t.Fatalf("out-of-range remove changed the list: %+v", got)
	}
	if got := Remove(list, -1); len(got) != 1 {
		t.Fatalf("negative index remove changed the list: %+v", got)
	}
}

func TestDecodeDataURI(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("pngbytes"))
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mimeType != "image/png" || string(data) != "pngbytes" {
		t.Fatalf("got %q, %q", mimeType, data)
	}

	if _, _, err := DecodeDataURI("http://example.com/x.png"); err == nil {
		t.Fatal("expected error for non-data URI")
	}
}

func TestBytesToleratesDataURIPrefix(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("content"))
	for _, data := range []string{raw, "data:text/plain;base64," + raw} {
		got, err := Bytes(domain.Attachment{Name: "f", Data: data})
		if err != nil || string(got) != "content" {
			t.Fatalf("Bytes(%q) = %q, %v", data, got, err)
		}
	}
}
