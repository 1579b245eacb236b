package datanexus

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateAnalysisJSON checks a model-produced analysis document against
// a JSON schema. Analysis prompts demand strict JSON output; this is how
// callers verify the model actually complied before acting on the result.
func ValidateAnalysisJSON(document []byte, schema string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("analysis document is not valid JSON: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("analysis document does not match schema: %s", strings.Join(problems, "; "))
}
