package css

import (
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

// Prefix lowers modern syntax and adds vendor prefixes the engines need. The
// output stays readable; it is what the dev server serves from the temp tree.
func Prefix(source, file string, engines []api.Engine) (string, []string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    engines,
		Sourcefile: filepath.Base(file),
		LogLevel:   api.LogLevelSilent,
	})
	if err := messagesError(file, result.Errors); err != nil {
		return "", nil, err
	}
	return string(result.Code), warnings(result.Warnings), nil
}

// Minify minifies source and returns the CSS, which references its map as
// name+".map", together with the map itself.
func Minify(source, name string, engines []api.Engine) (code, sourceMap []byte, err error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:            api.LoaderCSS,
		Engines:           engines,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		Sourcemap:         api.SourceMapExternal,
		SourcesContent:    api.SourcesContentInclude,
		Sourcefile:        name,
		LogLevel:          api.LogLevelSilent,
	})
	if err := messagesError(name, result.Errors); err != nil {
		return nil, nil, err
	}

	code = append(result.Code, []byte("/*# sourceMappingURL="+name+".map */\n")...)
	return code, result.Map, nil
}

func warnings(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}
