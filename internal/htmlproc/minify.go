package htmlproc

import (
	"bytes"
	"regexp"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// Options are the html-minifier style switches. The minifier always
// collapses boolean attributes and drops empty attributes; default
// script and style types go with RemoveRedundantAttributes.
type Options struct {
	RemoveComments     bool
	CollapseWhitespace bool
	// CollapseBooleanAttributes has no effect; boolean attributes are always
	// collapsed.
	CollapseBooleanAttributes bool
	RemoveAttributeQuotes     bool
	RemoveRedundantAttributes bool
	// RemoveEmptyAttributes has no effect; empty attributes are always
	// dropped.
	RemoveEmptyAttributes bool
	// RemoveScriptTypeAttributes has no effect; default script types are
	// dropped with RemoveRedundantAttributes.
	RemoveScriptTypeAttributes bool
	// RemoveStyleLinkTypeAttributes has no effect; default style and link
	// types are dropped with RemoveRedundantAttributes.
	RemoveStyleLinkTypeAttributes bool
	RemoveOptionalTags            bool
}

// Processor resolves build blocks and minifies pages.
type Processor struct {
	m *minify.M
}

// New creates a Processor for opts.
func New(opts Options) *Processor {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepComments:        !opts.RemoveComments,
		KeepWhitespace:      !opts.CollapseWhitespace,
		KeepQuotes:          !opts.RemoveAttributeQuotes,
		KeepDefaultAttrVals: !opts.RemoveRedundantAttributes,
		KeepEndTags:         !opts.RemoveOptionalTags,
		KeepDocumentTags:    !opts.RemoveOptionalTags,
	})
	m.AddFunc("text/css", mincss.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return &Processor{m: m}
}

// Minify minifies one HTML document, including inline styles and scripts.
func (p *Processor) Minify(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.m.Minify("text/html", &buf, bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Process resolves build blocks in the page at path, then minifies it.
func (p *Processor) Process(path string, src []byte) ([]byte, error) {
	resolved, _, err := ResolveBuildBlocks(string(src))
	if err != nil {
		return nil, wrapFile(err, path)
	}
	out, err := p.Minify([]byte(resolved))
	if err != nil {
		return nil, apperrors.NewBuildError(apperrors.CodeTransformFail, "minify html", err).WithFile(path)
	}
	return out, nil
}

func wrapFile(err error, path string) error {
	var te *apperrors.TaskError
	if apperrors.As(err, &te) {
		return te.WithFile(path)
	}
	return err
}
