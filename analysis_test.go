package datanexus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalSchema = `{
	"type": "object",
	"required": ["signal", "confidence"],
	"properties": {
		"signal": {"type": "string", "enum": ["buy", "sell", "hold"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

func TestValidateAnalysisJSON(t *testing.T) {
	err := ValidateAnalysisJSON([]byte(`{"signal":"buy","confidence":0.8}`), signalSchema)
	require.NoError(t, err)
}

func TestValidateAnalysisJSONSchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{name: "missing required field", document: `{"signal":"buy"}`},
		{name: "enum violation", document: `{"signal":"yolo","confidence":0.8}`},
		{name: "out of range", document: `{"signal":"buy","confidence":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnalysisJSON([]byte(tt.document), signalSchema)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema")
		})
	}
}

func TestValidateAnalysisJSONMalformed(t *testing.T) {
	err := ValidateAnalysisJSON([]byte(`the model returned prose instead`), signalSchema)
	require.Error(t, err)
}
