//go:build property

package htmlproc

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBuildBlockProperties validates build-block resolution on generated pages
func TestBuildBlockProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Property: markup without build blocks is returned unchanged
	properties.Property("pages without blocks are untouched", prop.ForAll(
		func(body string) bool {
			if strings.Contains(body, "build:") {
				return true
			}
			out, blocks, err := ResolveBuildBlocks("<p>" + body + "</p>")
			return err == nil && len(blocks) == 0 && out == "<p>"+body+"</p>"
		},
		gen.AnyString(),
	))

	// Property: every js block collapses to exactly one script reference
	properties.Property("js blocks collapse to one tag", prop.ForAll(
		func(name string, count int) bool {
			if name == "" {
				return true
			}
			var b strings.Builder
			b.WriteString("<!-- build:js js/" + name + ".js -->\n")
			for i := 0; i < count; i++ {
				b.WriteString(`<script src="js/part.js"></script>` + "\n")
			}
			b.WriteString("<!-- endbuild -->")

			out, blocks, err := ResolveBuildBlocks(b.String())
			return err == nil &&
				len(blocks) == 1 &&
				out == `<script src="js/`+name+`.js"></script>`
		},
		gen.Identifier(),
		gen.IntRange(0, 8),
	))

	// Property: minification never grows a resolved page
	properties.Property("minified output is not larger", prop.ForAll(
		func(words []string) bool {
			page := "<html><body><p>\n  " + strings.Join(words, "   ") + "\n</p></body></html>"
			out, err := New(Options{CollapseWhitespace: true, RemoveComments: true}).Process("p.html", []byte(page))
			return err == nil && len(out) <= len(page)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
