// Package epub packages an ordered chapter list into a single EPUB file.
package epub

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	goepub "github.com/bmaupin/go-epub"
	"github.com/google/uuid"

	"github.com/brogergvhs/noveld/internal/providers"
)

type Builder struct {
	outputDir string
	log       interface{ Debugf(string, ...any) }
}

func NewBuilder(outputDir string, log interface{ Debugf(string, ...any) }) *Builder {
	return &Builder{outputDir: outputDir, log: log}
}

// Assemble writes the chapters, in the order given, into an EPUB under the
// builder's output directory and returns its path. File names carry a
// short random suffix so concurrent flows never collide.
func (b *Builder) Assemble(title, category string, chapters []providers.Chapter) (string, error) {
	if len(chapters) == 0 {
		return "", fmt.Errorf("epub: no chapters to assemble")
	}

	e := goepub.NewEpub(title)
	e.SetLang("en")
	e.SetDescription(category)

	for i, ch := range chapters {
		heading := ch.Title
		if heading == "" {
			heading = fmt.Sprintf("Chapter %d", i+1)
		}

		body := fmt.Sprintf("<h1>%s</h1>\n%s", html.EscapeString(heading), ch.Content)
		internal := fmt.Sprintf("chapter_%04d.xhtml", i+1)

		if _, err := e.AddSection(body, heading, internal, ""); err != nil {
			return "", fmt.Errorf("epub: section %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return "", fmt.Errorf("epub: output folder: %w", err)
	}

	name := fmt.Sprintf("%s_%s.epub", sanitize(title), uuid.NewString()[:8])
	path := filepath.Join(b.outputDir, name)

	if err := e.Write(path); err != nil {
		return "", fmt.Errorf("epub: write %s: %w", path, err)
	}

	if b.log != nil {
		b.log.Debugf("wrote %s (%d chapters)\n", path, len(chapters))
	}

	return path, nil
}

var reUnderscore = regexp.MustCompile(`_+`)

func sanitize(s string) string {
	s = strings.ToLower(s)

	repl := []string{
		"•", "_",
		"-", "_",
		"—", "_",
		"–", "_",
		"/", "_",
		"\\", "_",
		".", "_",
		" ", "_",
		"(", "",
		")", "",
	}
	for i := 0; i < len(repl); i += 2 {
		s = strings.ReplaceAll(s, repl[i], repl[i+1])
	}

	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			clean = append(clean, r)
		}
	}
	s = reUnderscore.ReplaceAllString(string(clean), "_")
	s = strings.Trim(s, "_")

	if s == "" {
		return "novel"
	}

	return s
}
