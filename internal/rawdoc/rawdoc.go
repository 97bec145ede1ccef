// Package rawdoc exposes a parsed YAML policy document through strict,
// typed accessors. Every accessor failure is a *validation.Error carrying the
// dotted path and source line of the offending value.
package rawdoc

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// RootPath is the location reported for errors on the document itself.
const RootPath = "config"

// Value is one node of a policy document.
type Value struct {
	node *yaml.Node
	path string
}

// Object is a mapping node whose keys have been checked for uniqueness.
// Keys keep document order so validation reports the first offender.
type Object struct {
	value    *Value
	keys     []string
	keyLines map[string]int
	values   map[string]*Value
}

// Parse parses a YAML document. An empty document, or one holding only null,
// yields a nil Value and no error.
func Parse(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &validation.Error{Kind: validation.KindSyntax, Msg: "malformed policy document", Err: err}
	}

	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return nil, nil
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode {
		root = doc.Content[0]
	}

	v := newValue(root, "")
	if v.IsNull() {
		return nil, nil
	}
	return v, nil
}

func newValue(node *yaml.Node, path string) *Value {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return &Value{node: node, path: path}
}

// Path returns the dotted location of the value.
func (v *Value) Path() string {
	if v.path == "" {
		return RootPath
	}
	return v.path
}

// Line returns the 1-based source line of the value.
func (v *Value) Line() int { return v.node.Line }

// IsNull reports whether the value is an explicit YAML null.
func (v *Value) IsNull() bool {
	return v.node.Kind == yaml.ScalarNode && v.node.ShortTag() == "!!null"
}

// IsString reports whether the value is a string scalar.
func (v *Value) IsString() bool {
	return v.node.Kind == yaml.ScalarNode && v.node.ShortTag() == "!!str"
}

// IsList reports whether the value is a sequence.
func (v *Value) IsList() bool { return v.node.Kind == yaml.SequenceNode }

// IsObject reports whether the value is a mapping.
func (v *Value) IsObject() bool { return v.node.Kind == yaml.MappingNode }

// Object returns the value as a mapping, failing with a type error naming what.
func (v *Value) Object(what string) (*Object, error) {
	if !v.IsObject() {
		return nil, validation.Typef(v.Path(), v.Line(), "%s must be an object", what)
	}

	obj := &Object{
		value:    v,
		keyLines: make(map[string]int, len(v.node.Content)/2),
		values:   make(map[string]*Value, len(v.node.Content)/2),
	}
	for i := 0; i+1 < len(v.node.Content); i += 2 {
		keyNode := v.node.Content[i]
		key := keyNode.Value
		if _, dup := obj.values[key]; dup {
			return nil, &validation.Error{
				Kind: validation.KindSyntax,
				Path: v.Path(),
				Line: keyNode.Line,
				Msg:  fmt.Sprintf("duplicate key %q", key),
			}
		}
		obj.keys = append(obj.keys, key)
		obj.keyLines[key] = keyNode.Line
		obj.values[key] = newValue(v.node.Content[i+1], joinPath(v.path, key))
	}
	return obj, nil
}

// String returns the value as a string.
func (v *Value) String(what string) (string, error) {
	if !v.IsString() {
		return "", validation.Typef(v.Path(), v.Line(), "%s must be a string", what)
	}
	return v.node.Value, nil
}

// Bool returns the value as a boolean.
func (v *Value) Bool(what string) (bool, error) {
	if v.node.Kind != yaml.ScalarNode || v.node.ShortTag() != "!!bool" {
		return false, validation.Typef(v.Path(), v.Line(), "%s must be a boolean", what)
	}
	var b bool
	if err := v.node.Decode(&b); err != nil {
		return false, validation.Typef(v.Path(), v.Line(), "%s must be a boolean", what)
	}
	return b, nil
}

// NonNegativeInt returns the value as an integer >= 0. Non-numbers are type
// errors; negative or fractional numbers are value errors.
func (v *Value) NonNegativeInt(what string) (int, error) {
	tag := v.node.ShortTag()
	if v.node.Kind != yaml.ScalarNode || (tag != "!!int" && tag != "!!float") {
		return 0, validation.Typef(v.Path(), v.Line(), "%s must be a number", what)
	}
	var f float64
	if err := v.node.Decode(&f); err != nil {
		return 0, validation.Typef(v.Path(), v.Line(), "%s must be a number", what)
	}
	if f < 0 {
		return 0, validation.Valuef(v.Path(), v.Line(), "%s must be >= 0", what)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Floor(f) {
		return 0, validation.Valuef(v.Path(), v.Line(), "%s must be an integer", what)
	}
	if f > math.MaxInt32 {
		return 0, validation.Valuef(v.Path(), v.Line(), "%s is too large", what)
	}
	return int(f), nil
}

// StringList returns the value as a (possibly empty) list of strings.
func (v *Value) StringList(what string) ([]string, error) {
	if !v.IsList() {
		return nil, validation.Typef(v.Path(), v.Line(), "%s must be a list of strings", what)
	}
	out := make([]string, 0, len(v.node.Content))
	for i := range v.node.Content {
		item := newValue(v.node.Content[i], fmt.Sprintf("%s[%d]", v.Path(), i))
		if !item.IsString() {
			return nil, validation.Typef(item.Path(), item.Line(), "%s must be a list of strings", what)
		}
		out = append(out, item.node.Value)
	}
	return out, nil
}

// Value returns the Value backing the object.
func (o *Object) Value() *Value { return o.value }

// Keys returns the object's keys in document order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Get returns the value stored under key.
func (o *Object) Get(key string) (*Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// CheckKeys fails with a key error on the first key not in allowed.
func (o *Object) CheckKeys(allowed []string, what string) error {
	for _, k := range o.keys {
		if !slices.Contains(allowed, k) {
			return validation.Keyf(o.value.Path(), o.keyLines[k], "%s is not permitted in %s", k, what)
		}
	}
	return nil
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	if strings.ContainsAny(key, ". ") {
		return fmt.Sprintf("%s[%q]", parent, key)
	}
	return parent + "." + key
}
