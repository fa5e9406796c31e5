package export

import (
	"strings"
	"testing"
)

func TestDoc(t *testing.T) {
	got := string(Doc("Fusion Notes", "line one\nline two"))

	if !strings.HasPrefix(got, "<html xmlns:o=") {
		t.Fatalf("missing word-html header: %q", got[:40])
	}
	if !strings.HasSuffix(got, "</body></html>") {
		t.Fatal("missing footer")
	}
	if !strings.Contains(got, "<title>Fusion Notes</title>") {
		t.Fatal("title not embedded")
	}
	if !strings.Contains(got, "line one<br/>line two") {
		t.Fatalf("newlines not converted: %q", got)
	}
}

func TestDocEscapesTitle(t *testing.T) {
	got := string(Doc("<script> & co", "body"))
	if !strings.Contains(got, "<title>&lt;script&gt; &amp; co</title>") {
		t.Fatalf("title not escaped: %q", got)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(1700000000000); got != "kanad-export-1700000000000.doc" {
		t.Fatalf("filename = %q", got)
	}
}
