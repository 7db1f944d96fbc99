package shader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// ErrUndeclaredParameter is returned when material source references a parameter the
// declarations do not contain.
var ErrUndeclaredParameter = errors.New("material source references an undeclared parameter")

const (
	materialOpen  = "void material(inout MaterialInputs material) {\n"
	materialClose = "}\n"
)

// parameterRefRegex matches materialParams.name and materialParams_name references.
var parameterRefRegex = regexp.MustCompile(`\bmaterialParams[._](\w+)`)

var templates = NewPreProcessor()

// Assemble generates the material body for a canonical key. Equal keys and maps always produce
// byte-identical text. Assemble does not validate the key; features whose conditions are not met
// simply emit nothing.
//
// Parameters:
//   - k: the canonical variant key
//   - uvmap: the UV map derived alongside the key
//
// Returns:
//   - string: the material source text
func Assemble(k variant.Key, uvmap variant.UvMap) string {
	var sb strings.Builder
	sb.WriteString(materialOpen)
	for _, rule := range materialRules {
		if rule.source == nil || !rule.applies(k) {
			continue
		}
		sb.WriteString(rule.source(k))
	}
	sb.WriteString(materialClose)

	out, err := templates.Process(sb.String(), k, uvmap)
	if err != nil {
		// Only a rule naming a channel the key does not know can get here.
		panic(fmt.Sprintf("shader: material template: %v", err))
	}
	return out
}

// MaterialBody returns the statements of a material function, without its signature and closing
// brace.
//
// Parameters:
//   - source: material source produced by Assemble
//
// Returns:
//   - string: the body statements
//   - bool: false if source is not a single material function
func MaterialBody(source string) (string, bool) {
	body, ok := strings.CutPrefix(source, materialOpen)
	if !ok {
		return "", false
	}
	body, ok = strings.CutSuffix(body, materialClose)
	if !ok {
		return "", false
	}
	return body, true
}

// DeclareParameters collects the parameters, vertex attributes and capabilities of a canonical
// key from the same rules Assemble emits source from. Parameters keep rule order with repeated
// names collapsed onto their first declaration.
//
// Parameters:
//   - k: the canonical variant key
//   - uvmap: the UV map derived alongside the key
//
// Returns:
//   - Declarations: the declared parameters, required attributes and capabilities
func DeclareParameters(k variant.Key, uvmap variant.UvMap) Declarations {
	var d Declarations
	seen := make(map[string]struct{})
	for _, rule := range materialRules {
		if !rule.applies(k) {
			continue
		}
		if rule.params != nil {
			for _, p := range rule.params(k) {
				if _, dup := seen[p.Name]; dup {
					continue
				}
				seen[p.Name] = struct{}{}
				d.Parameters = append(d.Parameters, p)
			}
		}
		d.Attributes |= rule.attributes
		if rule.configure != nil {
			rule.configure(k, &d.Capabilities)
		}
	}

	switch uvmap.Count() {
	case 2:
		d.Attributes = d.Attributes.With(AttributeUV0).With(AttributeUV1)
	case 1:
		d.Attributes = d.Attributes.With(AttributeUV0)
	}
	return d
}

// ReferencedParameters lists the distinct parameter names referenced by material source,
// in order of first appearance.
//
// Parameters:
//   - source: the material source text
//
// Returns:
//   - []string: the referenced parameter names
func ReferencedParameters(source string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range parameterRefRegex.FindAllStringSubmatch(source, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// CheckParameters verifies that every parameter referenced by source is declared.
//
// Parameters:
//   - source: the material source text
//   - decls: the declared parameters
//
// Returns:
//   - error: ErrUndeclaredParameter wrapped with the offending names, or nil
func CheckParameters(source string, decls []ParameterDecl) error {
	declared := make(map[string]struct{}, len(decls))
	for _, p := range decls {
		declared[p.Name] = struct{}{}
	}
	var missing []string
	for _, name := range ReferencedParameters(source) {
		if _, ok := declared[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUndeclaredParameter, strings.Join(missing, ", "))
	}
	return nil
}
