package live

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// KeyKind identifies the index a selector is registered under.
type KeyKind uint8

const (
	KeyNone  KeyKind = iota // predicate groups only
	KeyID                   // #id
	KeyTag                  // tag
	KeyClass                // .class
	KeyName                 // [name=value]
)

// String returns the string representation of the KeyKind.
func (k KeyKind) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyID:
		return "id"
	case KeyTag:
		return "tag"
	case KeyClass:
		return "class"
	case KeyName:
		return "name"
	default:
		return "unknown"
	}
}

// simpleToken matches one leading indexable token and captures the rest.
var simpleToken = regexp.MustCompile(`^\s*(?:#([\w-]+)|([A-Za-z][\w-]*)|\.([\w-]+)|\[\s*name\s*=\s*([\w-]+)\s*\])([\s\S]*)$`)

// bareTag matches selectors that can never start matching an element that
// is already in the tree.
var bareTag = regexp.MustCompile(`^[A-Za-z][\w-]*$`)

// structuralPseudo lists pseudo-classes whose result depends on siblings,
// ancestors or descendants.
var structuralPseudo = []string{":has(", ":nth-", "-child", "-of-type", ":empty", ":root", ":contains("}

// rule is a compiled selector.
type rule struct {
	text string

	// key and value name the fast-path index entry, if any.
	key   KeyKind
	value string

	// match is the full selector; nil when the text did not compile.
	match cascadia.Selector

	// watch is set when the selector joins a predicate group.
	watch bool

	// deep is set when attribute changes can flip elements other than the
	// changed one.
	deep bool
}

// compile parses selector text. A compile error never prevents the rule
// from being used; it just never matches.
func compile(text string) (*rule, error) {
	trimmed := strings.TrimSpace(text)
	r := &rule{
		text:  text,
		watch: !bareTag.MatchString(trimmed),
		deep:  isDeep(trimmed),
	}

	sel, err := cascadia.Compile(trimmed)
	if err != nil {
		r.watch = true
		return r, err
	}
	r.match = sel

	if parts := simpleToken.FindStringSubmatch(trimmed); parts != nil && isCompound(parts[5]) {
		switch {
		case parts[1] != "":
			r.key, r.value = KeyID, parts[1]
		case parts[2] != "":
			r.key, r.value = KeyTag, strings.ToLower(parts[2])
		case parts[3] != "":
			r.key, r.value = KeyClass, parts[3]
		case parts[4] != "":
			r.key, r.value = KeyName, parts[4]
		}
	}
	return r, nil
}

// matches evaluates the full selector against n.
func (r *rule) matches(n *html.Node) bool {
	if r == nil || r.match == nil || n == nil || n.Type != html.ElementNode {
		return false
	}
	return r.match.Match(n)
}

// isCompound reports whether rest only narrows the element the leading
// token selected: no combinators or selector lists outside brackets,
// parentheses and quotes.
func isCompound(rest string) bool {
	rest = strings.TrimRightFunc(rest, isSpace)
	depth := 0
	var quote rune
	for _, c := range rest {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth == 0 && (isSpace(c) || c == '>' || c == '+' || c == '~' || c == ','):
			return false
		}
	}
	return true
}

// isDeep reports whether the selector looks past the element it selects.
func isDeep(text string) bool {
	depth := 0
	var quote rune
	for _, c := range text {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case depth == 0 && (isSpace(c) || c == '>' || c == '+' || c == '~' || c == ','):
			return true
		}
	}
	for _, p := range structuralPseudo {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// keyString describes the fast-path key for logs.
func (r *rule) keyString() string {
	if r == nil || r.key == KeyNone {
		return "none"
	}
	return r.key.String() + ":" + r.value
}
