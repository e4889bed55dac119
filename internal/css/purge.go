package css

import (
	"os"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// PurgeStats counts selectors considered and dropped by Purge.
type PurgeStats struct {
	Selectors int
	Removed   int
	Rules     int
}

// groupingRules hold style rules whose selectors are subject to purging.
// Anything else (@keyframes, @font-face, @page) is kept whole.
var groupingRules = map[string]bool{
	"@media":         true,
	"@supports":      true,
	"@document":      true,
	"@-moz-document": true,
	"@layer":         true,
	"@container":     true,
}

var pseudoRe = regexp.MustCompile(`::?[a-zA-Z-]+(?:\((?:[^()]|\([^()]*\))*\))?`)

// LoadDocuments parses the HTML files used as the purge reference.
func LoadDocuments(paths []string) ([]*html.Node, error) {
	docs := make([]*html.Node, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, apperrors.NewIOError(apperrors.CodeReadFailed, "open document", err).WithFile(p)
		}
		doc, err := html.Parse(f)
		_ = f.Close()
		if err != nil {
			return nil, apperrors.NewBuildError(apperrors.CodeTransformFail, "parse document", err).WithFile(p)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Purge removes selectors that match no element in docs. Rules left without
// selectors are dropped. Selectors that cannot be evaluated statically are
// kept. With no documents the stylesheet is left untouched.
func Purge(sheet *Stylesheet, docs []*html.Node) PurgeStats {
	var stats PurgeStats
	if len(docs) == 0 {
		return stats
	}
	matcher := &selectorMatcher{docs: docs, seen: map[string]bool{}}
	sheet.Nodes = purgeNodes(sheet.Nodes, matcher, &stats, true)
	return stats
}

func purgeNodes(nodes []Node, m *selectorMatcher, stats *PurgeStats, purgeable bool) []Node {
	out := nodes[:0]
	for _, n := range nodes {
		switch v := n.(type) {
		case *Rule:
			if !purgeable {
				out = append(out, v)
				continue
			}
			kept := v.Selectors[:0]
			for _, sel := range v.Selectors {
				stats.Selectors++
				if m.used(sel) {
					kept = append(kept, sel)
				} else {
					stats.Removed++
				}
			}
			if len(kept) == 0 {
				stats.Rules++
				continue
			}
			v.Selectors = kept
			out = append(out, v)
		case *AtBlock:
			if !groupingRules[strings.ToLower(v.Name)] {
				out = append(out, v)
				continue
			}
			v.Children = purgeNodes(v.Children, m, stats, true)
			if len(v.Children) == 0 {
				continue
			}
			out = append(out, v)
		default:
			out = append(out, n)
		}
	}
	return out
}

type selectorMatcher struct {
	docs []*html.Node
	seen map[string]bool
}

func (m *selectorMatcher) used(selector string) bool {
	query := strings.TrimSpace(pseudoRe.ReplaceAllString(selector, ""))
	if query == "" {
		return true
	}
	if hit, ok := m.seen[query]; ok {
		return hit
	}
	hit := m.match(query)
	m.seen[query] = hit
	return hit
}

func (m *selectorMatcher) match(query string) bool {
	sel, err := cascadia.Compile(query)
	if err != nil {
		return true
	}
	for _, doc := range m.docs {
		if sel.MatchFirst(doc) != nil {
			return true
		}
	}
	return false
}
