package types

// =============================================================================
// LANGUAGE MODEL CAPABILITY
// =============================================================================
// The provider packages implement these shapes; translation and answer
// formatting consume them through small consumer-side interfaces.

// GenerateOptions tunes a single model call.
type GenerateOptions struct {
	Temperature     float32
	MaxOutputTokens int32
}

// CostData is optional token accounting attached to a generation.
type CostData struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

// GenerateResult is the outcome of one model call.
type GenerateResult struct {
	Text string
	Cost *CostData
}

// TranslationExample is a prior successful translation, retrieved by
// similarity and spliced into refinement critiques.
type TranslationExample struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	Strategy string `json:"strategy"`
}
