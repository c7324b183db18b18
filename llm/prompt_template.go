package llm

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"text/template"
	"text/template/parse"
)

// ChatHistoryKey is the reserved variable a Chain fills with its memory.
// Templates may reference it without declaring it.
const ChatHistoryKey = "chat_history"

// PromptTemplate is a text/template whose placeholders ({{.topic}}) are
// exactly its declared input variables.
type PromptTemplate struct {
	Name           string
	Template       string
	InputVariables []string

	tmpl        *template.Template
	usesHistory bool
}

// NewPromptTemplate parses template and checks that every placeholder is
// declared and every declared variable is used.
func NewPromptTemplate(name, tmplText string, inputVariables []string) (*PromptTemplate, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, name, err)
	}

	declared := make(map[string]bool, len(inputVariables))
	for _, v := range inputVariables {
		if v == "" {
			return nil, fmt.Errorf("%w: %s: empty variable name", ErrInvalidTemplate, name)
		}
		declared[v] = true
	}

	used, err := placeholders(tmpl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, name, err)
	}
	for v := range used {
		if !declared[v] && v != ChatHistoryKey {
			return nil, fmt.Errorf("%w: %s: placeholder %q is not declared", ErrInvalidTemplate, name, v)
		}
	}
	for v := range declared {
		if !used[v] {
			return nil, fmt.Errorf("%w: %s: declared variable %q is not used", ErrInvalidTemplate, name, v)
		}
	}

	vars := slices.Clone(inputVariables)
	slices.Sort(vars)
	vars = slices.Compact(vars)

	return &PromptTemplate{
		Name:           name,
		Template:       tmplText,
		InputVariables: vars,
		tmpl:           tmpl,
		usesHistory:    used[ChatHistoryKey],
	}, nil
}

// Variables returns the declared variable names, sorted.
func (pt *PromptTemplate) Variables() []string {
	return slices.Clone(pt.InputVariables)
}

// UsesChatHistory reports whether the template references the reserved history variable.
func (pt *PromptTemplate) UsesChatHistory() bool {
	return pt.usesHistory
}

// Render substitutes values into the template. Every declared variable must
// be present; empty strings are legal. Extra keys are ignored.
func (pt *PromptTemplate) Render(values map[string]string) (string, error) {
	var missing []string
	for _, v := range pt.InputVariables {
		if _, ok := values[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVariableError{Template: pt.Name, Variables: missing}
	}

	data := make(map[string]string, len(values)+1)
	data[ChatHistoryKey] = ""
	maps.Copy(data, values)

	var buf bytes.Buffer
	if err := pt.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", pt.Name, err)
	}
	return buf.String(), nil
}

// placeholders collects the top-level variables a template reads, either as
// {{.name}} where dot is the root or as {{$.name}} anywhere. Every value is a
// string, so a field read where dot has been rebound by with or range, or a
// selection into a value ({{.topic.len}}), can never execute and is rejected.
func placeholders(tmpl *template.Template) (map[string]bool, error) {
	s := &placeholderScan{found: make(map[string]bool)}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			s.walk(t.Tree.Root, true)
		}
	}
	return s.found, s.err
}

type placeholderScan struct {
	found map[string]bool
	err   error
}

func (s *placeholderScan) fail(format string, args ...any) {
	if s.err == nil {
		s.err = fmt.Errorf(format, args...)
	}
}

// walk visits node; rooted reports whether dot is still the value map.
func (s *placeholderScan) walk(node parse.Node, rooted bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			s.walk(child, rooted)
		}
	case *parse.ActionNode:
		s.walk(n.Pipe, rooted)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			s.walk(cmd, rooted)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			s.walk(arg, rooted)
		}
	case *parse.FieldNode:
		switch {
		case !rooted:
			s.fail("%s reads a field where dot is not the root; use $%s", n, n)
		case len(n.Ident) > 1:
			s.fail("%s selects into a string value", n)
		default:
			s.found[n.Ident[0]] = true
		}
	case *parse.VariableNode:
		if n.Ident[0] != "$" || len(n.Ident) == 1 {
			return
		}
		if len(n.Ident) > 2 {
			s.fail("%s selects into a string value", n)
			return
		}
		s.found[n.Ident[1]] = true
	case *parse.ChainNode:
		s.walk(n.Node, rooted)
		if len(n.Field) > 0 {
			s.fail("%s selects into a string value", n)
		}
	case *parse.IfNode:
		s.walk(n.Pipe, rooted)
		s.walk(n.List, rooted)
		s.walk(n.ElseList, rooted)
	case *parse.RangeNode:
		s.walkScoped(&n.BranchNode, rooted)
	case *parse.WithNode:
		s.walkScoped(&n.BranchNode, rooted)
	case *parse.TemplateNode:
		s.walk(n.Pipe, rooted)
	}
}

// walkScoped visits a with or range: the body runs with dot rebound to the
// pipeline value, the else branch with the enclosing dot.
func (s *placeholderScan) walkScoped(n *parse.BranchNode, rooted bool) {
	s.walk(n.Pipe, rooted)
	s.walk(n.List, false)
	s.walk(n.ElseList, rooted)
}
