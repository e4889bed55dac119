package htmlproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Sample</title>
    <!-- build:css css/main.min.css -->
    <link rel="stylesheet" type="text/css" href="css/main.css">
    <!-- endbuild -->
    <style type="text/css">
      body { color : red ; }
    </style>
  </head>
  <body>
    <!-- a note for developers -->
    <p class="intro">
      Hello,    world
    </p>
    <input type="checkbox" checked="checked">
    <!-- build:remove -->
    <script src="js/debug.js"></script>
    <!-- endbuild -->
    <!-- build:js(.tmp) js/main.min.js -->
    <script type="text/javascript" src="js/plugins.js"></script>
    <script type="text/javascript" src="js/main.js"></script>
    <!-- endbuild -->
  </body>
</html>
`

func allOptions() Options {
	return Options{
		RemoveComments:                true,
		CollapseWhitespace:            true,
		CollapseBooleanAttributes:     true,
		RemoveAttributeQuotes:         true,
		RemoveRedundantAttributes:     true,
		RemoveEmptyAttributes:         true,
		RemoveScriptTypeAttributes:    true,
		RemoveStyleLinkTypeAttributes: true,
		RemoveOptionalTags:            true,
	}
}

func TestResolveBuildBlocks(t *testing.T) {
	out, blocks, err := ResolveBuildBlocks(samplePage)
	require.NoError(t, err)

	require.Len(t, blocks, 3)
	assert.Equal(t, "css", blocks[0].Type)
	assert.Equal(t, "css/main.min.css", blocks[0].Target)
	assert.Equal(t, "remove", blocks[1].Type)
	assert.Equal(t, "js", blocks[2].Type)
	assert.Equal(t, ".tmp", blocks[2].SearchPath)

	assert.Contains(t, out, `    <link rel="stylesheet" href="css/main.min.css">`)
	assert.Contains(t, out, `    <script src="js/main.min.js"></script>`)
	assert.NotContains(t, out, "plugins.js")
	assert.NotContains(t, out, "debug.js")
	assert.NotContains(t, out, "build:")
	assert.NotContains(t, out, "endbuild")
}

func TestResolveBuildBlocksWithoutBlocks(t *testing.T) {
	src := "<p>plain <!-- comment --></p>"
	out, blocks, err := ResolveBuildBlocks(src)
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.Equal(t, src, out)
}

func TestResolveBuildBlocksErrors(t *testing.T) {
	_, _, err := ResolveBuildBlocks("<!-- build:php x.php --><?php ?><!-- endbuild -->")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransformFail))

	_, _, err = ResolveBuildBlocks("<!-- build:js --><script src=a.js></script><!-- endbuild -->")
	require.Error(t, err)
}

func TestProcessSamplePage(t *testing.T) {
	out, err := New(allOptions()).Process("index.html", []byte(samplePage))
	require.NoError(t, err)
	html := string(out)

	assert.NotContains(t, html, "a note for developers")
	assert.NotContains(t, html, "\n    ")
	assert.Contains(t, html, "Hello, world")
	assert.Contains(t, html, "main.min.js")
	assert.Contains(t, html, "main.min.css")
	assert.NotContains(t, html, "text/javascript")
	assert.NotContains(t, html, "</body>")
	assert.Contains(t, html, "body{color:red}")
	assert.Contains(t, html, "class=intro")
	assert.Less(t, len(html), len(samplePage)/2)
}

func TestProcessKeepsWhatOptionsKeep(t *testing.T) {
	out, err := New(Options{}).Process("index.html", []byte(samplePage))
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "a note for developers")
	assert.Contains(t, html, "</body>")
	assert.Contains(t, html, `class="intro"`)
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
}

func TestProcessIgnoresAlwaysOnOptions(t *testing.T) {
	opts := allOptions()
	want, err := New(opts).Process("index.html", []byte(samplePage))
	require.NoError(t, err)

	opts.CollapseBooleanAttributes = false
	opts.RemoveEmptyAttributes = false
	opts.RemoveScriptTypeAttributes = false
	opts.RemoveStyleLinkTypeAttributes = false
	got, err := New(opts).Process("index.html", []byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, string(want), string(got))
}

func TestProcessAnnotatesFile(t *testing.T) {
	_, err := New(allOptions()).Process("pages/bad.html", []byte("<!-- build:nope x --><!-- endbuild -->"))
	require.Error(t, err)

	var te *apperrors.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "pages/bad.html", te.FilePath)
}
