// Package sass compiles SCSS to CSS. The Compiler interface keeps the styles
// pipeline independent of the Dart Sass process behind DartSass.
package sass

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// Input is one stylesheet to compile.
type Input struct {
	Path         string
	Source       string
	IncludePaths []string
}

// Output is the compiled stylesheet with its source map (JSON, may be empty).
type Output struct {
	CSS       string
	SourceMap string
}

// Compiler compiles SCSS sources.
type Compiler interface {
	Compile(ctx context.Context, in Input) (Output, error)
	Close() error
}

// IsPartial reports whether path names a Sass partial, which is only ever
// imported and never compiled on its own.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// DartSass runs the embedded Dart Sass protocol. The sass process starts on the
// first compilation, so commands that never compile styles do not need it.
type DartSass struct {
	binary string

	once       sync.Once
	transpiler *godartsass.Transpiler
	startErr   error
}

// NewDartSass creates a compiler using binary, or "sass" from PATH when empty.
func NewDartSass(binary string) *DartSass {
	return &DartSass{binary: binary}
}

func (d *DartSass) start() error {
	d.once.Do(func() {
		d.transpiler, d.startErr = godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: d.binary,
		})
		if d.startErr != nil {
			d.startErr = apperrors.NewBuildError(apperrors.CodeTransformFail,
				"starting dart sass (is the sass binary installed?)", d.startErr)
		}
	})
	return d.startErr
}

// Compile implements Compiler.
func (d *DartSass) Compile(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if err := d.start(); err != nil {
		return Output{}, err
	}

	abs, err := filepath.Abs(in.Path)
	if err != nil {
		abs = in.Path
	}
	includes := append([]string{filepath.Dir(abs)}, in.IncludePaths...)

	res, err := d.transpiler.Execute(godartsass.Args{
		Source:                  in.Source,
		URL:                     (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		OutputStyle:             godartsass.OutputStyleExpanded,
		SourceSyntax:            syntaxFor(in.Path),
		IncludePaths:            includes,
		EnableSourceMap:         true,
		SourceMapIncludeSources: true,
	})
	if err != nil {
		return Output{}, toCompileError(in, err)
	}

	return Output{CSS: res.CSS, SourceMap: res.SourceMap}, nil
}

// Close stops the sass process.
func (d *DartSass) Close() error {
	if d.transpiler == nil {
		return nil
	}
	return d.transpiler.Close()
}

func syntaxFor(path string) godartsass.SourceSyntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

func toCompileError(in Input, err error) error {
	var sassErr godartsass.SassError
	if errors.As(err, &sassErr) {
		line, col := Position(in.Source, sassErr.Span.Start.Offset)
		return &apperrors.CompileError{
			File:    in.Path,
			Line:    line,
			Column:  col,
			Message: sassErr.Message,
		}
	}
	return &apperrors.CompileError{File: in.Path, Message: err.Error()}
}

// Position converts a byte offset into a 1-based line and column.
func Position(source string, offset int) (int, int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	before := source[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}

// Passthrough is a Compiler that returns its input unchanged, for projects whose
// stylesheets are plain CSS and for environments without a sass binary.
type Passthrough struct{}

// Compile implements Compiler.
func (Passthrough) Compile(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	return Output{CSS: in.Source}, nil
}

// Close implements Compiler.
func (Passthrough) Close() error { return nil }
