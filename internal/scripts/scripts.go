// Package scripts transpiles, concatenates and minifies JavaScript with
// esbuild.
package scripts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var sourceMapComment = regexp.MustCompile(`(?m)^//[#@] sourceMappingURL=.*$\n?`)

// ParseTarget maps "es2015" style names onto esbuild targets.
func ParseTarget(name string) (api.Target, error) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return api.DefaultTarget, apperrors.NewConfigError(fmt.Sprintf("unknown script target %q", name))
	}
	return t, nil
}

// Transpile lowers source to target and appends an inline source map.
func Transpile(source, name string, target api.Target) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     target,
		Sourcemap:  api.SourceMapInline,
		Sourcefile: name,
		LogLevel:   api.LogLevelSilent,
	})
	if err := messagesError(name, result.Errors); err != nil {
		return "", err
	}
	return string(result.Code), nil
}

// Concat joins the parts with ";\n" so that statements never run into each
// other. Inline source map comments of the parts are dropped.
func Concat(parts []string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(sourceMapComment.ReplaceAllString(p, ""), "\n")
		cleaned = append(cleaned, p)
	}
	return strings.Join(cleaned, ";\n")
}

// Minify minifies code for target. The output references its map as
// outName+".map".
func Minify(code, outName string, target api.Target) (out, sourceMap []byte, err error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            target,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		Sourcemap:         api.SourceMapExternal,
		SourcesContent:    api.SourcesContentInclude,
		Sourcefile:        sourceName(outName),
		LogLevel:          api.LogLevelSilent,
	})
	if err := messagesError(outName, result.Errors); err != nil {
		return nil, nil, err
	}
	out = append(result.Code, []byte("//# sourceMappingURL="+outName+".map\n")...)
	return out, result.Map, nil
}

// sourceName is the unminified name recorded in the map: main.min.js -> main.js.
func sourceName(outName string) string {
	if strings.HasSuffix(outName, ".min.js") {
		return strings.TrimSuffix(outName, ".min.js") + ".js"
	}
	return outName
}

func messagesError(file string, msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	m := msgs[0]
	ce := &apperrors.CompileError{File: file, Message: m.Text}
	if m.Location != nil {
		ce.Line = m.Location.Line
		ce.Column = m.Location.Column + 1
	}
	return apperrors.NewBuildError(apperrors.CodeTransformFail, "script transform failed", ce).WithFile(file)
}
