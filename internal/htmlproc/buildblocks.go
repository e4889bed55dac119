// Package htmlproc prepares HTML pages for distribution: build blocks are
// collapsed into single asset references and the markup is minified.
package htmlproc

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

var buildBlockRe = regexp.MustCompile(`(?s)([ \t]*)<!--\s*build:(\w+)(?:\(([^)]*)\))?\s*(\S*)\s*-->(.*?)<!--\s*endbuild\s*-->`)

// Block is one resolved build block.
type Block struct {
	Type string
	// SearchPath is the optional "(alt)" group; assets are produced by other
	// tasks so it is informational only.
	SearchPath string
	Target     string
	Body       string
}

// ResolveBuildBlocks replaces every build block with a single reference to
// its target. Referenced assets are not concatenated here.
func ResolveBuildBlocks(src string) (string, []Block, error) {
	var blocks []Block
	var firstErr error

	out := buildBlockRe.ReplaceAllStringFunc(src, func(match string) string {
		m := buildBlockRe.FindStringSubmatch(match)
		b := Block{Type: strings.ToLower(m[2]), SearchPath: m[3], Target: m[4], Body: m[5]}
		indent := m[1]

		var tag string
		switch b.Type {
		case "js":
			tag = fmt.Sprintf(`<script src="%s"></script>`, b.Target)
		case "css":
			tag = fmt.Sprintf(`<link rel="stylesheet" href="%s">`, b.Target)
		case "remove":
			blocks = append(blocks, b)
			return ""
		default:
			if firstErr == nil {
				firstErr = apperrors.NewBuildError(apperrors.CodeTransformFail,
					fmt.Sprintf("unsupported build block type %q", b.Type), nil)
			}
			return match
		}
		if b.Target == "" && firstErr == nil {
			firstErr = apperrors.NewBuildError(apperrors.CodeTransformFail,
				fmt.Sprintf("build:%s block without a target path", b.Type), nil)
		}
		blocks = append(blocks, b)
		return indent + tag
	})
	if firstErr != nil {
		return "", nil, firstErr
	}
	return out, blocks, nil
}
