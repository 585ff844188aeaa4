package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/binarjoin/agent-engine/internal/actions"
)

const basePrompt = `You are the operations assistant of BinarJoin, a construction business
management system covering projects, workers, suppliers and equipment.

Rules:
- Never guess figures. State only what appears in action results; if a
  result is empty, say that no data is recorded.
- Use [ACTION:TYPE:param...] to read data. Reads run immediately and their
  results are appended to your reply.
- Use [PROPOSE:TYPE:param...] for any change. Changes are never executed
  directly; the user must confirm the returned operation id.
- Explain briefly what you are looking up and why, then give a short
  recommendation based on the results.`

// SystemPrompt builds the system instruction for a turn at now.
func SystemPrompt(now time.Time) string {
	now = now.UTC()
	var b strings.Builder
	b.WriteString(basePrompt)

	b.WriteString("\n\nParameters marked ? are optional.\n\nRead actions:\n")
	for _, c := range actions.ReadCatalog {
		writeEntry(&b, "ACTION", c)
	}
	b.WriteString("\nProposed changes:\n")
	for _, c := range actions.WriteCatalog {
		writeEntry(&b, "PROPOSE", c)
	}

	fmt.Fprintf(&b, "\nToday is %s. \"Yesterday\" always means %s.\n",
		now.Format("2006-01-02"), now.AddDate(0, 0, -1).Format("2006-01-02"))
	return b.String()
}

func writeEntry(b *strings.Builder, kind string, c actions.CatalogEntry) {
	b.WriteString("- [" + kind + ":" + c.Type)
	if c.Params != "" {
		b.WriteString(":" + c.Params)
	}
	b.WriteString("]")
	if c.Help != "" {
		b.WriteString(" " + c.Help)
	}
	b.WriteString("\n")
}
