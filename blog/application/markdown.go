package application

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	maxSnippetLength = 200
	wordsPerMinute   = 200
)

// RenderedPost is a post body ready for display.
type RenderedPost struct {
	HTML           string
	Snippet        string
	ReadingMinutes int
}

// relativeLinkTransformer points relative links at the site: links to other post
// files become /blog/<slug>, images go under /images/.
type relativeLinkTransformer struct {
	siteURL string
}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Image:
			dest := string(v.Destination)
			if isRelativeLink(dest) {
				v.Destination = []byte(t.siteURL + "/images/" + path.Base(dest))
			}
		case *ast.Link:
			dest := string(v.Destination)
			if isRelativeLink(dest) {
				v.Destination = []byte(t.linkTarget(dest))
			}
		}

		return ast.WalkContinue, nil
	})
}

func (t *relativeLinkTransformer) linkTarget(dest string) string {
	destFile := path.Base(dest)
	if slug, err := domain.SlugFromPath(domain.PostsDir + "/" + destFile); err == nil {
		return t.siteURL + "/blog/" + slug
	}
	destFile = strings.TrimSuffix(destFile, ".md")
	destFile = strings.TrimSuffix(destFile, ".html")
	return t.siteURL + "/" + destFile
}

func isRelativeLink(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") {
		return false
	}

	// Absolute path check
	if strings.HasPrefix(dest, "/") {
		return !strings.HasPrefix(dest, "//")
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	return !strings.Contains(dest, ":")
}

// MarkdownRenderer defines the interface for converting post bodies to HTML.
type MarkdownRenderer interface {
	Render(content string) (*RenderedPost, error)
}

type MarkdownRendererImpl struct {
	renderer goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewMarkdownRenderer creates a renderer whose relative links resolve against siteURL.
func NewMarkdownRenderer(siteURL string) MarkdownRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&relativeLinkTransformer{siteURL: strings.TrimSuffix(siteURL, "/")}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")

	return &MarkdownRendererImpl{
		renderer: renderer,
		policy:   policy,
	}
}

func (r *MarkdownRendererImpl) Render(content string) (*RenderedPost, error) {
	var buf bytes.Buffer
	if err := r.renderer.Convert([]byte(content), &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &RenderedPost{
		HTML:           r.policy.Sanitize(buf.String()),
		Snippet:        extractSnippet(content),
		ReadingMinutes: readingMinutes(content),
	}, nil
}

// readingMinutes estimates reading time, never less than one minute.
func readingMinutes(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func extractSnippet(content string) string {
	lines := strings.Split(content, "\n")
	var paragraphLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Skip headings before we find content
		if strings.HasPrefix(trimmed, "#") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraphLines) > 0 {
				break // End of first paragraph
			}
			continue
		}

		// Stop at code blocks, horizontal rules, lists, tables
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		paragraphLines = append(paragraphLines, trimmed)
	}

	if len(paragraphLines) == 0 {
		return ""
	}

	snippet := strings.Join(paragraphLines, " ")

	if len(snippet) > maxSnippetLength {
		cut := maxSnippetLength
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
		if lastSpace := strings.LastIndexAny(snippet, " \t"); lastSpace > 0 {
			snippet = snippet[:lastSpace]
		}
		snippet += "..."
	}

	return snippet
}
