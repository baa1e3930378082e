package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("**bold** <script>alert(1)</script>"))

	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestRenderMarkdownEnhancesImagesAndLinks(t *testing.T) {
	out := string(RenderMarkdown("![cat](https://example.com/cat.png) [site](https://example.com)"))

	assert.Contains(t, out, `loading="lazy"`)
	assert.True(t, strings.Contains(out, `class="external"`), out)
}

func TestEnhanceHTMLContentEmpty(t *testing.T) {
	assert.Equal(t, "", string(EnhanceHTMLContent("")))
}

func TestRenderCommentDropsImagesAndHeadings(t *testing.T) {
	out := string(RenderComment("# Title\n\n![cat](https://example.com/cat.png) see https://example.com and ~~old~~ `code`"))

	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<h1")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `class="external"`)
	assert.Contains(t, out, "<del>old</del>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestRenderCommentSanitizes(t *testing.T) {
	out := string(RenderComment(`<a href="javascript:alert(1)">x</a> <b onclick="x()">hi</b>`))

	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onclick")
}
