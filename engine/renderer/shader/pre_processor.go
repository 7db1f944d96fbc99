// pre_processor.go implements the material template pre-processor. Material fragments refer to
// UV coordinates through ${channel} placeholders; the pre-processor resolves each channel to the
// texcoord the variant key assigns it, then to the shader UV accessor the UvMap routes that
// texcoord to. Keeping this step separate leaves the emission order free of UV bookkeeping.
package shader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// placeholderRegex matches ${channel} tokens and captures the channel name.
var placeholderRegex = regexp.MustCompile(`\$\{(\w+)\}`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct{}

// PreProcessor substitutes ${channel} placeholders in material source text.
type PreProcessor interface {
	// Process resolves every placeholder in source against the key and UV map.
	//
	// Parameters:
	//   - source: the template text
	//   - key: the variant key supplying per-channel texcoord indices
	//   - uvmap: the texcoord to UV set routing
	//
	// Returns:
	//   - string: the substituted text
	//   - error: an error naming the first unknown channel, if any
	Process(source string, key variant.Key, uvmap variant.UvMap) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor resolving every channel a variant key knows.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

func (p *preProcessor) Process(source string, key variant.Key, uvmap variant.UvMap) (string, error) {
	var firstErr error
	out := placeholderRegex.ReplaceAllStringFunc(source, func(token string) string {
		channel := strings.TrimSuffix(strings.TrimPrefix(token, "${"), "}")
		texCoord, ok := key.TexCoord(channel)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("unknown template channel %q", channel)
			}
			return token
		}
		return uvmap.Set(texCoord).Accessor()
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
