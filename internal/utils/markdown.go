package utils

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// renderer pairs a markdown dialect with the sanitizer applied to its output.
type renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var (
	// posts get the full GFM dialect with anchored headings and inline images
	postRenderer = renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: linkPolicy(bluemonday.UGCPolicy()),
	}

	// comments are short replies: emphasis, code, quotes, lists and links only
	commentRenderer = renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: linkPolicy(commentPolicy()),
	}
)

func commentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	return p
}

func linkPolicy(p *bluemonday.Policy) *bluemonday.Policy {
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

func (r renderer) render(source string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return EnhanceHTMLContent(string(r.policy.SanitizeBytes(buf.Bytes())))
}

// RenderMarkdown converts a post body to sanitized HTML.
func RenderMarkdown(source string) template.HTML {
	return postRenderer.render(source)
}

// RenderComment converts a comment body to sanitized HTML. Headings, tables and
// images are not rendered.
func RenderComment(source string) template.HTML {
	return commentRenderer.render(source)
}
