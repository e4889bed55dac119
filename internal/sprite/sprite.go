// Package sprite combines SVG icons into a single symbol sprite, with a CSS
// file of icon dimensions and a demo page.
package sprite

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// Default template names and the files they produce.
const (
	TemplateSVG  = "default-svg"
	TemplateCSS  = "default-css"
	TemplateDemo = "default-demo"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var defaultTemplates = map[string]string{
	TemplateSVG:  "svg-symbols.svg",
	TemplateCSS:  "svg-symbols.css",
	TemplateDemo: "svg-symbols-demo-page.html",
}

// Options configure symbol naming and the outputs.
type Options struct {
	// ID and Class are patterns where %f is the file name without extension.
	ID        string
	Class     string
	Templates []string
	SVGAttrs  map[string]string
}

// Source is one input icon.
type Source struct {
	Path string
	Data []byte
}

// Symbol is an icon ready for the templates.
type Symbol struct {
	Name    string
	ID      string
	Class   string
	ViewBox string
	Width   string
	Height  string
	Content string
}

// Output is a generated file, named relative to the output directory.
type Output struct {
	Name string
	Data []byte
}

// Build parses every source and renders the configured templates.
func Build(sources []Source, opts Options) ([]Output, error) {
	symbols := make([]Symbol, 0, len(sources))
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		sym, err := ParseSymbol(src.Path, src.Data, opts)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[sym.ID]; dup {
			return nil, apperrors.NewBuildError(apperrors.CodeInvalidSVG,
				fmt.Sprintf("symbol id %q is also used by %s", sym.ID, prev), nil).WithFile(src.Path)
		}
		seen[sym.ID] = src.Path
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].ID < symbols[j].ID })

	attrs := make(map[string]interface{}, len(opts.SVGAttrs))
	for k, v := range opts.SVGAttrs {
		attrs[k] = v
	}
	data := map[string]interface{}{
		"Symbols": symbols,
		"Attrs":   attrs,
	}

	spriteOut, err := renderEmbedded(TemplateSVG, data)
	if err != nil {
		return nil, err
	}
	cssOut, err := renderEmbedded(TemplateCSS, data)
	if err != nil {
		return nil, err
	}
	data["Sprite"] = string(spriteOut)
	data["CSS"] = strings.TrimSpace(string(cssOut))

	outputs := make([]Output, 0, len(opts.Templates))
	for _, name := range opts.Templates {
		switch name {
		case TemplateSVG:
			outputs = append(outputs, Output{Name: defaultTemplates[name], Data: spriteOut})
		case TemplateCSS:
			outputs = append(outputs, Output{Name: defaultTemplates[name], Data: cssOut})
		case TemplateDemo:
			out, err := renderEmbedded(name, data)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, Output{Name: defaultTemplates[name], Data: out})
		default:
			out, err := renderFile(name, data)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, Output{Name: strings.TrimSuffix(filepath.Base(name), ".tmpl"), Data: out})
		}
	}
	return outputs, nil
}

// ParseSymbol reads the root <svg> element of data.
func ParseSymbol(path string, data []byte, opts Options) (Symbol, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sym := Symbol{
		Name:  name,
		ID:    strings.ReplaceAll(opts.ID, "%f", name),
		Class: strings.ReplaceAll(opts.Class, "%f", name),
	}

	invalid := func(msg string, cause error) error {
		return apperrors.NewBuildError(apperrors.CodeInvalidSVG, msg, cause).WithFile(path)
	}

	d := xml.NewDecoder(bytes.NewReader(data))
	var start int64 = -1
	depth := 0
	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			if start < 0 {
				return Symbol{}, invalid("no root <svg> element", nil)
			}
			return Symbol{}, invalid("unterminated <svg> element", nil)
		}
		if err != nil {
			return Symbol{}, invalid("malformed svg", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if start < 0 {
				if t.Name.Local != "svg" {
					return Symbol{}, invalid(fmt.Sprintf("root element is <%s>, not <svg>", t.Name.Local), nil)
				}
				applyRootAttrs(&sym, t.Attr)
				start = d.InputOffset()
				continue
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				sym.Content = strings.TrimSpace(string(data[start:offset]))
				return sym, nil
			}
			depth--
		}
	}
}

func applyRootAttrs(sym *Symbol, attrs []xml.Attr) {
	for _, a := range attrs {
		switch a.Name.Local {
		case "viewBox":
			sym.ViewBox = strings.Join(strings.Fields(strings.ReplaceAll(a.Value, ",", " ")), " ")
		case "width":
			sym.Width = dimension(a.Value)
		case "height":
			sym.Height = dimension(a.Value)
		}
	}

	box := strings.Fields(sym.ViewBox)
	switch {
	case len(box) == 4:
		if sym.Width == "" {
			sym.Width = dimension(box[2])
		}
		if sym.Height == "" {
			sym.Height = dimension(box[3])
		}
	case sym.Width != "" && sym.Height != "":
		sym.ViewBox = "0 0 " + sym.Width + " " + sym.Height
	}
}

// dimension keeps unitless and px lengths; relative units cannot size an icon.
func dimension(v string) string {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return ""
	}
	return v
}

func renderEmbedded(name string, data interface{}) ([]byte, error) {
	file := "templates/" + defaultTemplates[name] + ".tmpl"
	tmpl, err := template.New(filepath.Base(file)).Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, file)
	if err != nil {
		return nil, apperrors.NewBuildError(apperrors.CodeTransformFail, "parse template "+name, err)
	}
	return execute(tmpl, name, data)
}

func renderFile(path string, data interface{}) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown sprite template %q", path)).WithCause(err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(sprig.TxtFuncMap()).Parse(string(src))
	if err != nil {
		return nil, apperrors.NewBuildError(apperrors.CodeTransformFail, "parse template", err).WithFile(path)
	}
	return execute(tmpl, path, data)
}

func execute(tmpl *template.Template, name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, apperrors.NewBuildError(apperrors.CodeTransformFail, "render template "+name, err)
	}
	return buf.Bytes(), nil
}
