// Package imagemin shrinks images losslessly. The optimiser is chosen by the
// detected content type, not the file extension.
package imagemin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/conneroisu/assetsmith/internal/cache"
	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeGIF  = "image/gif"
	mimeSVG  = "image/svg+xml"
)

// Options mirror the imagemin plugin flags.
type Options struct {
	Progressive bool
	Interlaced  bool
}

// Optimizer optimises image bytes, optionally through a cache.
type Optimizer struct {
	opts     Options
	minifier *minify.M
	cache    *cache.Cache
}

// New creates an optimiser. c may be nil.
func New(opts Options, c *cache.Cache) *Optimizer {
	m := minify.New()
	m.AddFunc(mimeSVG, svg.Minify)
	return &Optimizer{opts: opts, minifier: m, cache: c}
}

// Fingerprint identifies the options in cache keys.
func (o *Optimizer) Fingerprint() string {
	return fmt.Sprintf("progressive=%t,interlaced=%t", o.opts.Progressive, o.opts.Interlaced)
}

// Result describes one optimisation.
type Result struct {
	Data   []byte
	Type   string
	Cached bool
}

// Optimize returns the optimised bytes of the image at path. Unchanged inputs
// are served from the cache when one is configured.
func (o *Optimizer) Optimize(path string, data []byte) (Result, error) {
	kind := Detect(path, data)
	if o.cache == nil {
		out, err := o.optimize(kind, data)
		if err != nil {
			return Result{}, apperrors.NewBuildError(apperrors.CodeTransformFail, "optimise image", err).WithFile(path)
		}
		return Result{Data: out, Type: kind}, nil
	}

	key := cache.Key("imagemin", o.Fingerprint(), data)
	out, hit, err := o.cache.GetOrCompute(key, func() ([]byte, error) {
		return o.optimize(kind, data)
	})
	if err != nil {
		return Result{}, apperrors.NewBuildError(apperrors.CodeTransformFail, "optimise image", err).WithFile(path)
	}
	return Result{Data: out, Type: kind, Cached: hit}, nil
}

// Detect sniffs the content type, falling back to the extension for text
// formats the sniffer cannot tell apart.
func Detect(path string, data []byte) string {
	mt := mimetype.Detect(data)
	for _, known := range []string{mimePNG, mimeJPEG, mimeGIF, mimeSVG} {
		if mt.Is(known) {
			return known
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return mimeSVG
	}
	return mt.String()
}

func (o *Optimizer) optimize(kind string, data []byte) ([]byte, error) {
	switch kind {
	case mimePNG:
		return optimizePNG(data)
	case mimeJPEG:
		return StripJPEG(data)
	case mimeSVG:
		return o.minifier.Bytes(mimeSVG, data)
	default:
		return data, nil
	}
}

func optimizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}

// StripJPEG removes comments and application segments other than JFIF and
// Adobe from a JPEG without touching the entropy-coded data.
func StripJPEG(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("not a jpeg stream")
	}
	out := make([]byte, 0, len(data))
	out = append(out, 0xFF, 0xD8)

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("invalid marker at offset %d", i)
		}
		// Markers may be preceded by fill bytes.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, fmt.Errorf("truncated marker")
		}
		marker := data[i]
		i++

		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			out = append(out, 0xFF, marker)
			continue
		}
		if marker == 0xD9 {
			out = append(out, 0xFF, marker)
			return out, nil
		}
		if i+2 > len(data) {
			return nil, fmt.Errorf("truncated segment length")
		}
		length := int(binary.BigEndian.Uint16(data[i : i+2]))
		if length < 2 || i+length > len(data) {
			return nil, fmt.Errorf("invalid segment length %d", length)
		}
		segment := data[i : i+length]

		// Start of scan: everything after it is image data.
		if marker == 0xDA {
			out = append(out, 0xFF, marker)
			out = append(out, data[i:]...)
			return out, nil
		}
		if keepSegment(marker, segment[2:]) {
			out = append(out, 0xFF, marker)
			out = append(out, segment...)
		}
		i += length
	}
	return out, nil
}

func keepSegment(marker byte, payload []byte) bool {
	switch {
	case marker == 0xFE:
		return false
	case marker == 0xE0:
		return bytes.HasPrefix(payload, []byte("JFIF\x00"))
	case marker == 0xEE:
		return bytes.HasPrefix(payload, []byte("Adobe"))
	case marker >= 0xE1 && marker <= 0xEF:
		return false
	default:
		return true
	}
}
