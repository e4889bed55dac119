package css

import (
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Node is one top-level or block-level item of a stylesheet.
type Node interface {
	render(b *strings.Builder)
}

// Decl is a single "property: value" declaration.
type Decl struct {
	Property string
	Value    string
}

// Rule is a style rule with its selector list.
type Rule struct {
	Selectors []string
	Decls     []Decl
}

// AtBlock is an at-rule with a block, such as @media or @font-face.
type AtBlock struct {
	Name     string
	Prelude  string
	Children []Node
}

// AtRule is a block-less at-rule statement, such as @import or @charset.
type AtRule struct {
	Name    string
	Prelude string
}

// Raw is passed through verbatim, e.g. comments.
type Raw struct {
	Text string
}

// Stylesheet is a parsed, flat (non-nested) stylesheet.
type Stylesheet struct {
	Nodes []Node
}

// Parse reads source with the tdewolff CSS grammar parser.
func Parse(source string) (*Stylesheet, error) {
	p := css.NewParser(parse.NewInputString(source), false)

	sheet := &Stylesheet{}
	var blocks []*AtBlock
	var rules []*Rule
	var pending []string

	values := func() string {
		var b strings.Builder
		for _, v := range p.Values() {
			b.Write(v.Data)
		}
		return strings.TrimSpace(b.String())
	}
	appendNode := func(n Node) {
		if len(blocks) > 0 {
			top := blocks[len(blocks)-1]
			top.Children = append(top.Children, n)
			return
		}
		sheet.Nodes = append(sheet.Nodes, n)
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return sheet, nil
		case css.CommentGrammar:
			if len(rules) == 0 {
				appendNode(&Raw{Text: string(data)})
			}
		case css.AtRuleGrammar:
			appendNode(&AtRule{Name: string(data), Prelude: values()})
		case css.BeginAtRuleGrammar:
			block := &AtBlock{Name: string(data), Prelude: values()}
			appendNode(block)
			blocks = append(blocks, block)
		case css.EndAtRuleGrammar:
			if len(blocks) > 0 {
				blocks = blocks[:len(blocks)-1]
			}
		case css.QualifiedRuleGrammar:
			pending = append(pending, values())
		case css.BeginRulesetGrammar:
			rule := &Rule{Selectors: append(pending, values())}
			pending = nil
			appendNode(rule)
			rules = append(rules, rule)
		case css.EndRulesetGrammar:
			if len(rules) > 0 {
				rules = rules[:len(rules)-1]
			}
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decl := Decl{Property: string(data), Value: values()}
			if len(rules) > 0 {
				top := rules[len(rules)-1]
				top.Decls = append(top.Decls, decl)
			} else {
				appendNode(&decl)
			}
		default:
			if text := strings.TrimSpace(string(data)); text != "" {
				appendNode(&Raw{Text: text})
			}
		}
	}
}

// String renders the stylesheet compactly.
func (s *Stylesheet) String() string {
	var b strings.Builder
	for _, n := range s.Nodes {
		n.render(&b)
	}
	return b.String()
}

func (d *Decl) render(b *strings.Builder) {
	b.WriteString(d.Property)
	b.WriteByte(':')
	b.WriteString(d.Value)
	b.WriteByte(';')
}

func (r *Rule) render(b *strings.Builder) {
	b.WriteString(strings.Join(r.Selectors, ","))
	b.WriteByte('{')
	for i := range r.Decls {
		r.Decls[i].render(b)
	}
	b.WriteString("}\n")
}

func (a *AtBlock) render(b *strings.Builder) {
	b.WriteString(a.Name)
	if a.Prelude != "" {
		b.WriteByte(' ')
		b.WriteString(a.Prelude)
	}
	b.WriteString("{\n")
	for _, n := range a.Children {
		n.render(b)
	}
	b.WriteString("}\n")
}

func (a *AtRule) render(b *strings.Builder) {
	b.WriteString(a.Name)
	if a.Prelude != "" {
		b.WriteByte(' ')
		b.WriteString(a.Prelude)
	}
	b.WriteString(";\n")
}

func (r *Raw) render(b *strings.Builder) {
	b.WriteString(r.Text)
	b.WriteByte('\n')
}

// walkRules calls fn for every rule, with the enclosing at-rule names.
func walkRules(nodes []Node, parents []string, fn func(r *Rule, parents []string)) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *Rule:
			fn(v, parents)
		case *AtBlock:
			walkRules(v.Children, append(parents, strings.ToLower(v.Name)), fn)
		}
	}
}
