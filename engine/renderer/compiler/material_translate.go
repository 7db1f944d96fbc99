package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
)

// errMaterialSignature is returned for source that is not a single material function.
var errMaterialSignature = errors.New("source does not define material(inout MaterialInputs)")

// materialInput is one member of the MaterialInputs struct a material body writes.
type materialInput struct {
	name  string
	size  int
	value string
}

// materialInputs lists the MaterialInputs members with the values they hold before the body runs.
var materialInputs = []materialInput{
	{"baseColor", 4, "vec4<f32>(1.0, 1.0, 1.0, 1.0)"},
	{"normal", 3, "vec3<f32>(0.0, 0.0, 1.0)"},
	{"clearCoatNormal", 3, "vec3<f32>(0.0, 0.0, 1.0)"},
	{"roughness", 1, "1.0"},
	{"metallic", 1, "0.0"},
	{"glossiness", 1, "0.0"},
	{"specularColor", 3, "vec3<f32>(0.0, 0.0, 0.0)"},
	{"emissive", 4, "vec4<f32>(0.0, 0.0, 0.0, 0.0)"},
	{"ambientOcclusion", 1, "1.0"},
	{"transmission", 1, "0.0"},
	{"clearCoat", 1, "0.0"},
	{"clearCoatRoughness", 1, "0.0"},
	{"sheenColor", 3, "vec3<f32>(0.0, 0.0, 0.0)"},
	{"sheenRoughness", 1, "0.0"},
	{"absorption", 3, "vec3<f32>(0.0, 0.0, 0.0)"},
	{"thickness", 1, "0.0"},
	{"ior", 1, "1.5"},
	{"specularFactor", 1, "1.0"},
	{"specularColorFactor", 3, "vec3<f32>(1.0, 1.0, 1.0)"},
}

func materialInputSize(name string) int {
	for _, in := range materialInputs {
		if in.name == name {
			return in.size
		}
	}
	return 0
}

func floatType(size int) string {
	if size == 1 {
		return "f32"
	}
	return fmt.Sprintf("vec%d<f32>", size)
}

// writeMaterialInputs declares MaterialInputs, its initial value and prepareMaterial.
func writeMaterialInputs(sb *strings.Builder) {
	sb.WriteString("struct MaterialInputs {\n")
	for _, in := range materialInputs {
		fmt.Fprintf(sb, "    %s: %s,\n", in.name, floatType(in.size))
	}
	sb.WriteString("};\n\n")

	values := make([]string, len(materialInputs))
	for i, in := range materialInputs {
		values[i] = "        " + in.value
	}
	sb.WriteString("fn defaultMaterialInputs() -> MaterialInputs {\n    return MaterialInputs(\n")
	sb.WriteString(strings.Join(values, ",\n"))
	sb.WriteString("\n    );\n}\n\n")

	sb.WriteString("fn prepareMaterial(m: MaterialInputs) -> MaterialInputs {\n")
	sb.WriteString("    var prepared = m;\n")
	sb.WriteString("    prepared.normal = normalize(prepared.normal);\n")
	sb.WriteString("    prepared.clearCoatNormal = normalize(prepared.clearCoatNormal);\n")
	sb.WriteString("    return prepared;\n}\n\n")
}

var (
	localDeclRegex    = regexp.MustCompile(`^(?:(?:highp|mediump|lowp)\s+)?(float[234]?|vec[234]|int|bool)\s+(\w+)\s*=\s*(.+);$`)
	swizzleStoreRegex = regexp.MustCompile(`^material\.(\w+)\.([xyzwrgba]{2,4})\s*([-+*/]?=)\s*(.+);$`)
	materialCallRegex = regexp.MustCompile(`^(\w+)\(material\);$`)
	textureCallRegex  = regexp.MustCompile(`\btexture\((materialParams_\w+)\s*,`)
	constructorRegex  = regexp.MustCompile(`\b(?:vec|float)([234])\(`)
	floatCastRegex    = regexp.MustCompile(`\bfloat\(`)
	paramFieldRegex   = regexp.MustCompile(`\bmaterialParams\.(\w+)`)
	ifDefinedRegex    = regexp.MustCompile(`^#\s*if\s+(!)?\s*defined\s*\(\s*(\w+)\s*\)$`)
	ifdefRegex        = regexp.MustCompile(`^#\s*(ifn?def)\s+(\w+)$`)
)

var localTypes = map[string]string{
	"float":  "f32",
	"float2": "vec2<f32>",
	"float3": "vec3<f32>",
	"float4": "vec4<f32>",
	"vec2":   "vec2<f32>",
	"vec3":   "vec3<f32>",
	"vec4":   "vec4<f32>",
	"int":    "i32",
	"bool":   "bool",
}

// materialAccessors maps the accessors material bodies call to fragment inputs.
var materialAccessors = strings.NewReplacer(
	"getUV0()", "input.uv0",
	"getUV1()", "input.uv1",
	"getColor()", "input.color",
	"getObjectUserData()", "input.userData",
	"vertex_worldNormal", "normalize(input.worldNormal)",
)

// conditional is one open #if block.
type conditional struct {
	parent bool
	cond   bool
	inElse bool
}

func (c conditional) active() bool {
	return c.parent && c.cond != c.inElse
}

func activeAt(open []conditional) bool {
	return len(open) == 0 || open[len(open)-1].active()
}

// materialTranslator rewrites material body statements into WGSL run inside the fragment entry
// point, where material is a local MaterialInputs. Statements outside its vocabulary are kept as
// written and left to naga to accept or reject.
type materialTranslator struct {
	defines map[string]bool
	bools   map[string]bool
	temps   int
}

func newMaterialTranslator(opts Options) *materialTranslator {
	t := &materialTranslator{
		defines: make(map[string]bool),
		bools:   make(map[string]bool),
	}
	for _, attr := range opts.RequiredAttributes.List() {
		t.defines["HAS_ATTRIBUTE_"+attr.String()] = true
	}
	for _, p := range opts.Parameters {
		if p.Type == shader.ParameterTypeBool {
			t.bools[p.Name] = true
		}
	}
	return t
}

// translate returns the WGSL statements of a material function.
func (t *materialTranslator) translate(source string) (string, error) {
	body, ok := shader.MaterialBody(source)
	if !ok {
		return "", errMaterialSignature
	}

	var sb strings.Builder
	var open []conditional
	active := true
	for n, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			var err error
			open, err = t.directive(line, open)
			if err != nil {
				return "", fmt.Errorf("material line %d: %w", n+2, err)
			}
			active = activeAt(open)
			continue
		}
		if !active {
			continue
		}
		indent := raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
		for _, stmt := range t.statement(line) {
			sb.WriteString(indent)
			sb.WriteString(stmt)
			sb.WriteByte('\n')
		}
	}
	if len(open) > 0 {
		return "", errors.New("material body: unterminated #if")
	}
	return sb.String(), nil
}

// directive applies one preprocessor line to the stack of open conditionals.
func (t *materialTranslator) directive(line string, open []conditional) ([]conditional, error) {
	enclosing := activeAt(open)

	if m := ifDefinedRegex.FindStringSubmatch(line); m != nil {
		return append(open, conditional{parent: enclosing, cond: t.defines[m[2]] != (m[1] == "!")}), nil
	}
	if m := ifdefRegex.FindStringSubmatch(line); m != nil {
		return append(open, conditional{parent: enclosing, cond: t.defines[m[2]] != (m[1] == "ifndef")}), nil
	}

	switch strings.Join(strings.Fields(line), "") {
	case "#else":
		if len(open) == 0 || open[len(open)-1].inElse {
			return nil, errors.New("#else without #if")
		}
		open[len(open)-1].inElse = true
		return open, nil
	case "#endif":
		if len(open) == 0 {
			return nil, errors.New("#endif without #if")
		}
		return open[:len(open)-1], nil
	}
	return nil, fmt.Errorf("unsupported directive %q", line)
}

// statement translates one statement. Most statements map to one line; a store through a
// multi-component swizzle becomes two.
func (t *materialTranslator) statement(line string) []string {
	line = materialAccessors.Replace(line)
	line = textureCallRegex.ReplaceAllString(line, "textureSample($1, ${1}_sampler,")
	line = constructorRegex.ReplaceAllString(line, "vec$1<f32>(")
	line = floatCastRegex.ReplaceAllString(line, "f32(")
	line = paramFieldRegex.ReplaceAllStringFunc(line, func(ref string) string {
		if t.bools[strings.TrimPrefix(ref, "materialParams.")] {
			return "(" + ref + " != 0u)"
		}
		return ref
	})

	if m := localDeclRegex.FindStringSubmatch(line); m != nil {
		return []string{fmt.Sprintf("var %s: %s = %s;", m[2], localTypes[m[1]], m[3])}
	}
	if m := swizzleStoreRegex.FindStringSubmatch(line); m != nil {
		if stmts, ok := t.swizzleStore(m[1], m[2], m[3], m[4]); ok {
			return stmts
		}
	}
	if m := materialCallRegex.FindStringSubmatch(line); m != nil {
		return []string{fmt.Sprintf("material = %s(material);", m[1])}
	}
	return []string{line}
}

// swizzleStore rebuilds a MaterialInputs vector member around the swizzled components written.
func (t *materialTranslator) swizzleStore(field, pattern, op, expr string) ([]string, bool) {
	size := materialInputSize(field)
	if size < 2 {
		return nil, false
	}
	tmp := fmt.Sprintf("swizzle%d", t.temps)
	t.temps++

	value := "(" + expr + ")"
	if op != "=" {
		value = fmt.Sprintf("material.%s.%s %s %s", field, pattern, op[:1], value)
	}

	components := make([]string, size)
	for i := range components {
		components[i] = fmt.Sprintf("material.%s.%c", field, "xyzw"[i])
	}
	for j, c := range pattern {
		i := strings.IndexRune("xyzw", c)
		if i < 0 {
			i = strings.IndexRune("rgba", c)
		}
		if i < 0 || i >= size {
			return nil, false
		}
		components[i] = fmt.Sprintf("%s.%c", tmp, "xyzw"[j])
	}
	return []string{
		fmt.Sprintf("let %s = %s;", tmp, value),
		fmt.Sprintf("material.%s = %s(%s);", field, floatType(size), strings.Join(components, ", ")),
	}, true
}
