package scripts

import (
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("ES2015")
	require.NoError(t, err)
	assert.Equal(t, api.ES2015, target)

	_, err = ParseTarget("es3")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
}

func TestTranspile(t *testing.T) {
	code, err := Transpile("const square = (n) => n ** 2;\nconst v = window.cfg?.size;\n", "main.js", api.ES2015)
	require.NoError(t, err)
	assert.NotContains(t, code, "**")
	assert.NotContains(t, code, "?.")
	assert.Contains(t, code, "Math.pow")
	assert.Contains(t, code, "//# sourceMappingURL=data:application/json;base64,")
}

func TestTranspileSyntaxError(t *testing.T) {
	_, err := Transpile("function (", "broken.js", api.ES2015)
	require.Error(t, err)

	var ce *apperrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken.js", ce.File)
	assert.Equal(t, 1, ce.Line)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransformFail))
}

func TestConcat(t *testing.T) {
	got := Concat([]string{
		"var a = 1\n//# sourceMappingURL=data:application/json;base64,AAAA\n",
		"var b = 2\n",
	})
	assert.Equal(t, "var a = 1;\nvar b = 2", got)
	assert.Equal(t, "", Concat(nil))
}

func TestMinify(t *testing.T) {
	src := Concat([]string{"function greet(name) {\n  return 'hi ' + name;\n}", "greet('x')"})

	out, sourceMap, err := Minify(src, "main.min.js", api.ES2015)
	require.NoError(t, err)

	code := string(out)
	assert.True(t, strings.HasSuffix(code, "//# sourceMappingURL=main.min.js.map\n"))
	assert.Less(t, len(code), len(src)+len("//# sourceMappingURL=main.min.js.map\n"))
	assert.Contains(t, string(sourceMap), `"main.js"`)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "main.js", sourceName("main.min.js"))
	assert.Equal(t, "bundle.js", sourceName("bundle.js"))
}
