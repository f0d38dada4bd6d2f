package recipe

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Option names understood by the recipes in this module.
const (
	OptShared = "shared"
	OptFPIC   = "fPIC"
	OptCXX11  = "cxx11"
)

// OptionDecl declares an option and its default value.
type OptionDecl struct {
	Name    string
	Default bool
}

// OptionSet holds the effective options of one build. Options that are not
// meaningful on the target platform are absent from the set, so they can be
// neither read nor set.
type OptionSet struct {
	values map[string]bool
}

// NewOptionSet returns the declared options of r with their defaults,
// minus those the platform does not support.
func NewOptionSet(r *Recipe, p Platform) OptionSet {
	values := make(map[string]bool, len(r.Options))
	for _, decl := range r.Options {
		values[decl.Name] = decl.Default
	}
	if p.Compiler == MSVC {
		delete(values, OptFPIC)
	}
	return OptionSet{values: values}
}

// Set assigns an option value. Setting an option that is absent from the
// set fails with ErrUnsupportedOption.
func (o OptionSet) Set(name string, value bool) error {
	if _, ok := o.values[name]; !ok {
		return Errorf(ErrUnsupportedOption, "set option", name, nil)
	}
	o.values[name] = value
	return nil
}

// Apply sets every option of user in sorted key order and stops at the
// first unsupported one.
func (o OptionSet) Apply(user map[string]bool) error {
	for _, name := range slices.Sorted(maps.Keys(user)) {
		if err := o.Set(name, user[name]); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether the option is available.
func (o OptionSet) Has(name string) bool {
	_, ok := o.values[name]
	return ok
}

// Value returns the option value; absent options are false.
func (o OptionSet) Value(name string) bool {
	return o.values[name]
}

// Names returns the available option names, sorted.
func (o OptionSet) Names() []string {
	return slices.Sorted(maps.Keys(o.values))
}

// Clone returns an independent copy.
func (o OptionSet) Clone() OptionSet {
	return OptionSet{values: maps.Clone(o.values)}
}

func (o OptionSet) String() string {
	parts := make([]string, 0, len(o.values))
	for _, name := range o.Names() {
		parts = append(parts, fmt.Sprintf("%s=%t", name, o.values[name]))
	}
	return strings.Join(parts, ",")
}

// DependencyBinding maps a dependency name to its resolved install root.
// It is supplied by the caller; nothing in this module resolves it.
type DependencyBinding map[string]string

// Root returns the install root of dependency name.
func (d DependencyBinding) Root(name string) (string, bool) {
	root, ok := d[name]
	return root, ok && root != ""
}

// Definitions is the set of build-system definitions passed to configure.
// Key order is irrelevant: two sets are equal when they map the same keys to
// the same values.
type Definitions map[string]string

// Equal reports whether d and other hold the same entries.
func (d Definitions) Equal(other Definitions) bool {
	return maps.Equal(d, other)
}

// Keys returns the definition keys, sorted.
func (d Definitions) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// String renders one "- key=value" line per definition in key order.
func (d Definitions) String() string {
	var b strings.Builder
	for _, k := range d.Keys() {
		fmt.Fprintf(&b, " - %s=%s\n", k, d[k])
	}
	return b.String()
}
