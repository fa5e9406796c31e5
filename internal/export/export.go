// Package export renders transcript content into downloadable documents.
package export

import (
	"fmt"
	"strings"
)

const (
	docHeader = "<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'><head><meta charset='utf-8'><title>%s</title></head><body>"
	docFooter = "</body></html>"
)

// Doc wraps message content in Word-compatible HTML. Newlines become line
// breaks; the content is otherwise passed through as-is.
func Doc(title, content string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, docHeader, htmlEscape(title))
	b.WriteString(strings.ReplaceAll(content, "\n", "<br/>"))
	b.WriteString(docFooter)
	return []byte(b.String())
}

// Filename returns a download name for an export, unique per timestamp.
func Filename(ts int64) string {
	return fmt.Sprintf("kanad-export-%d.doc", ts)
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
