package check

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/adcheck/analyzer"
)

// archive writes the text-model input of a check to ArchiveDir. Failures
// are logged.
func (c *Checker) archive(res *Result, content string, log *slog.Logger) {
	if c.cfg.ArchiveDir == "" {
		return
	}
	path, err := writeArchive(c.cfg.ArchiveDir, res, content)
	if err != nil {
		log.Warn("check: archive model input", "error", err)
		return
	}
	log.Debug("check: archived model input", "path", path)
}

func writeArchive(dir string, res *Result, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := res.CheckedAt.Format("20060102_150405")
	name := fmt.Sprintf("%s_%s_%s.md", ts, analyzer.URLSlug(res.URL, 50), strings.TrimPrefix(res.CheckID, "chk_"))
	path := filepath.Join(dir, name)

	var b strings.Builder
	b.WriteString("# Model Input\n\n")
	fmt.Fprintf(&b, "URL: %s\n", res.URL)
	fmt.Fprintf(&b, "State: %s\n", res.State)
	fmt.Fprintf(&b, "URL Type: %s\n", res.URLType)
	fmt.Fprintf(&b, "Template: %s\n", res.TemplateID)
	fmt.Fprintf(&b, "Extraction Template: %s\n", res.ExtractionTemplateID)
	fmt.Fprintf(&b, "Timestamp: %s\n", res.CheckedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "Character Count: %d\n", utf8.RuneCountInString(content))
	b.WriteString("\n---\n\n")
	b.WriteString(content)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
