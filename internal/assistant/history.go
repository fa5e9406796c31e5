package assistant

import (
	"fmt"
	"strings"

	"kanad/internal/domain"
)

// flattenHistory re-expresses the workspace transcript as role/text turns
// for the wire. Binary content is replaced with short textual placeholders;
// the wire carries text plus the current request's inline parts only.
func flattenHistory(msgs []domain.Message) []domain.Turn {
	turns := make([]domain.Turn, 0, len(msgs))
	for _, m := range msgs {
		var b strings.Builder
		if m.Role == domain.RoleUser {
			if m.ImagePreview != "" {
				b.WriteString("[User uploaded an image]\n")
			}
			if len(m.Attachments) > 0 {
				names := make([]string, len(m.Attachments))
				for i, a := range m.Attachments {
					names[i] = a.Name
				}
				fmt.Fprintf(&b, "[User uploaded %d document(s): %s]\n", len(m.Attachments), strings.Join(names, ", "))
			}
		}
		b.WriteString(m.Content)
		turns = append(turns, domain.Turn{Role: m.Role, Text: b.String()})
	}
	return turns
}
