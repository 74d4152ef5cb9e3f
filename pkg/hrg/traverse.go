package hrg

import "strings"

// StepKind identifies the kind of a single traversal step.
type StepKind int

const (
	StepNext StepKind = iota
	StepPrev
	StepParent
	StepFirstDaughter
	StepLastDaughter
	StepFirst
	StepLast
	StepInRelation
	StepFeature
	StepMethod
)

// Step is one parsed segment of a traversal path. Arg holds the relation or
// feature name for StepInRelation/StepFeature, and the method name for
// StepMethod (whose literal arguments are in MethodArgs).
type Step struct {
	Kind       StepKind
	Arg        string
	MethodArgs []string
}

// ParsePath parses a dotted traversal path (e.g.
// "R:SylStructure.parent.M:numsylsaftersyl_inphrase('stress', '1')") into a
// step list, once, at configuration time. The interpreter ([Traverse]) walks
// the parsed steps at runtime; a StepFeature or StepMethod step, if present,
// must be the last step in the path.
func ParsePath(path string) ([]Step, error) {
	tokens := splitPath(path)
	steps := make([]Step, 0, len(tokens))
	for i, tok := range tokens {
		step, err := parseToken(tok)
		if err != nil {
			return nil, &TraversalError{Path: path, Step: tok, Err: err}
		}
		if (step.Kind == StepFeature || step.Kind == StepMethod) && i != len(tokens)-1 {
			return nil, &TraversalError{Path: path, Step: tok, Err: errNonTerminalValueStep}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

var errNonTerminalValueStep = &simpleError{"F: and M: steps must be the last step in a path"}

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }

// splitPath splits on '.' while treating text inside matching parentheses
// (an M:name(...) argument list) as opaque, since arguments may themselves
// contain literal punctuation.
func splitPath(path string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range path {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '.':
			if depth == 0 {
				out = append(out, path[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, path[start:])
	return out
}

func parseToken(tok string) (Step, error) {
	switch tok {
	case "n":
		return Step{Kind: StepNext}, nil
	case "p":
		return Step{Kind: StepPrev}, nil
	case "parent":
		return Step{Kind: StepParent}, nil
	case "daughter":
		return Step{Kind: StepFirstDaughter}, nil
	case "daughtern":
		return Step{Kind: StepLastDaughter}, nil
	case "first":
		return Step{Kind: StepFirst}, nil
	case "last":
		return Step{Kind: StepLast}, nil
	}
	switch {
	case strings.HasPrefix(tok, "R:"):
		return Step{Kind: StepInRelation, Arg: tok[2:]}, nil
	case strings.HasPrefix(tok, "F:"):
		return Step{Kind: StepFeature, Arg: tok[2:]}, nil
	case strings.HasPrefix(tok, "M:"):
		name, args := parseMethodCall(tok[2:])
		return Step{Kind: StepMethod, Arg: name, MethodArgs: args}, nil
	}
	return Step{}, &simpleError{"unrecognized traversal step " + tok}
}

// parseMethodCall splits "name(arg1, 'arg 2')" into its name and a list of
// unquoted, trimmed arguments.
func parseMethodCall(s string) (name string, args []string) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil
	}
	name = s[:open]
	inner := strings.TrimSuffix(s[open+1:], ")")
	if strings.TrimSpace(inner) == "" {
		return name, nil
	}
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "'\"")
		args = append(args, part)
	}
	return name, args
}

// MethodFunc is a registered item-extension function invoked by an M:
// traversal step, replacing the original dynamic method-attachment
// mechanism with an explicit registry.
type MethodFunc func(item Item, args []string) (any, error)

// MethodRegistry resolves a method name to its implementation. See
// pkg/features for the concrete registry of linguistic extractor functions.
type MethodRegistry interface {
	Lookup(name string) (MethodFunc, bool)
}

// Registry is a simple map-backed [MethodRegistry].
type Registry struct {
	fns map[string]MethodFunc
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]MethodFunc)}
}

// Register adds or replaces the implementation of the named method.
func (r *Registry) Register(name string, fn MethodFunc) {
	r.fns[name] = fn
}

// Lookup implements [MethodRegistry].
func (r *Registry) Lookup(name string) (MethodFunc, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Traverse interprets steps starting at item. A StepFeature step returns the
// raw feature value; a StepMethod step returns that method's result;
// otherwise the final [Item] reached is returned. Any null link, missing
// feature, or unregistered method yields a [TraversalError].
func Traverse(item Item, path string, steps []Step, reg MethodRegistry) (any, error) {
	cur := item
	for _, step := range steps {
		var ok bool
		switch step.Kind {
		case StepNext:
			cur, ok = cur.Next()
		case StepPrev:
			cur, ok = cur.Prev()
		case StepParent:
			cur, ok = cur.Parent()
		case StepFirstDaughter:
			cur, ok = cur.FirstDaughter()
		case StepLastDaughter:
			cur, ok = cur.LastDaughter()
		case StepFirst:
			cur, ok = cur.First(), true
		case StepLast:
			cur, ok = cur.Last(), true
		case StepInRelation:
			cur, ok = cur.InRelation(step.Arg)
		case StepFeature:
			feats := cur.Features()
			v, present := feats[step.Arg]
			if !present {
				return nil, &TraversalError{Path: path, Step: "F:" + step.Arg}
			}
			return v, nil
		case StepMethod:
			if reg == nil {
				return nil, &TraversalError{Path: path, Step: "M:" + step.Arg, Err: &simpleError{"no method registry supplied"}}
			}
			fn, present := reg.Lookup(step.Arg)
			if !present {
				return nil, &TraversalError{Path: path, Step: "M:" + step.Arg, Err: &simpleError{"method not registered"}}
			}
			return fn(cur, step.MethodArgs)
		}
		if !ok {
			stepName := stepDisplay(step)
			return nil, &TraversalError{Path: path, Step: stepName}
		}
	}
	return cur, nil
}

func stepDisplay(s Step) string {
	switch s.Kind {
	case StepNext:
		return "n"
	case StepPrev:
		return "p"
	case StepParent:
		return "parent"
	case StepFirstDaughter:
		return "daughter"
	case StepLastDaughter:
		return "daughtern"
	case StepFirst:
		return "first"
	case StepLast:
		return "last"
	case StepInRelation:
		return "R:" + s.Arg
	case StepFeature:
		return "F:" + s.Arg
	case StepMethod:
		return "M:" + s.Arg
	}
	return "?"
}

// TraverseItem is a convenience wrapper around [Traverse] for paths whose
// final step yields an Item (i.e. does not end in F: or M:).
func TraverseItem(item Item, path string, steps []Step, reg MethodRegistry) (Item, error) {
	v, err := Traverse(item, path, steps, reg)
	if err != nil {
		return Item{}, err
	}
	it, ok := v.(Item)
	if !ok {
		return Item{}, &TraversalError{Path: path, Step: "(terminal)", Err: &simpleError{"path does not terminate in an item"}}
	}
	return it, nil
}
