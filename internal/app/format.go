package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/tally"
)

// Format renders out. docs supplies the per-document headings in PER scope and
// must be the batch that produced out.
func Format(out engine.Output, docs []engine.Document, cfg engine.Config, format OutputFormat) (string, error) {
	switch format {
	case Markdown:
		return formatSections(out, docs, cfg, markdownHeading, markdownTable), nil
	case Text:
		return formatSections(out, docs, cfg, textHeading, textList), nil
	case JSON:
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unknown output format %d", int(format))
	}
}

type (
	headingFunc func(b *strings.Builder, name string)
	listFunc    func(b *strings.Builder, list []tally.UserTally, cfg engine.Config)
)

func formatSections(out engine.Output, docs []engine.Document, cfg engine.Config, heading headingFunc, list listFunc) string {
	var b strings.Builder
	if out.Scope == engine.All {
		list(&b, out.Flat(), cfg)
		return b.String()
	}

	for i, l := range out.Lists {
		if i > 0 {
			b.WriteString("\n")
		}
		name := fmt.Sprintf("document %d", i+1)
		if i < len(docs) {
			name = docs[i].Name
		}
		heading(&b, name)
		list(&b, l, cfg)
	}
	return b.String()
}

func markdownHeading(b *strings.Builder, name string) {
	fmt.Fprintf(b, "## %s\n\n", name)
}

func markdownTable(b *strings.Builder, list []tally.UserTally, cfg engine.Config) {
	if len(list) == 0 {
		b.WriteString("_No attributable lines._\n")
		return
	}

	unit := capitalize(cfg.Unit.Plural())
	if cfg.Keywords > 0 {
		fmt.Fprintf(b, "| Rank | User | %s | Keywords |\n|---:|---|---:|---|\n", unit)
	} else {
		fmt.Fprintf(b, "| Rank | User | %s |\n|---:|---|---:|\n", unit)
	}
	for i, t := range list {
		fmt.Fprintf(b, "| %d | %s | %d |", i+1, escapeCell(t.Name), t.Count)
		if cfg.Keywords > 0 {
			fmt.Fprintf(b, " %s |", escapeCell(strings.Join(t.Keywords, ", ")))
		}
		b.WriteString("\n")
	}
}

func textHeading(b *strings.Builder, name string) {
	fmt.Fprintf(b, "%s:\n", name)
}

func textList(b *strings.Builder, list []tally.UserTally, cfg engine.Config) {
	if len(list) == 0 {
		b.WriteString("(no attributable lines)\n")
		return
	}
	for i, t := range list {
		fmt.Fprintf(b, "%d. %s %d %s", i+1, t.Name, t.Count, cfg.Unit.Plural())
		if len(t.Keywords) > 0 {
			fmt.Fprintf(b, " [%s]", strings.Join(t.Keywords, ", "))
		}
		b.WriteString("\n")
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
