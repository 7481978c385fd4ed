package embeddings

import (
	"fmt"
	"math"
	"os"
)

// Defaults for exported sentence-transformers models.
const (
	defaultONNXMaxLength = 128
	defaultONNXOutput    = "last_hidden_state"
)

var defaultONNXInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// ONNXConfig configures the in-process ONNX provider.
type ONNXConfig struct {
	// Model names the model for metrics.
	Model string
	// ModelPath is the exported model.onnx file.
	ModelPath string
	// TokenizerPath is the HuggingFace tokenizer.json matching the model.
	TokenizerPath string
	// MaxLength caps the token sequence. Defaults to 128.
	MaxLength int
	// Dimension is the hidden size of the model output.
	Dimension int
	// InputNames are the graph inputs fed in order: ids, attention mask and
	// optionally token types. Defaults to all three.
	InputNames []string
	// OutputName is the token-level output that gets mean-pooled.
	OutputName string
}

// withDefaults fills unset fields.
func (c ONNXConfig) withDefaults() ONNXConfig {
	if c.MaxLength == 0 {
		c.MaxLength = defaultONNXMaxLength
	}
	if len(c.InputNames) == 0 {
		c.InputNames = defaultONNXInputs
	}
	if c.OutputName == "" {
		c.OutputName = defaultONNXOutput
	}
	if c.Dimension == 0 {
		c.Dimension = modelDimension(c.Model)
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c ONNXConfig) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("%w: onnx model_path required", ErrInvalidConfig)
	}
	if c.TokenizerPath == "" {
		return fmt.Errorf("%w: onnx tokenizer_path required", ErrInvalidConfig)
	}
	for _, p := range []string{c.ModelPath, c.TokenizerPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.MaxLength < 2 {
		return fmt.Errorf("%w: max_length must be at least 2", ErrInvalidConfig)
	}
	if n := len(c.InputNames); n < 2 || n > 3 {
		return fmt.Errorf("%w: onnx models take 2 or 3 inputs, got %d", ErrInvalidConfig, n)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// meanPool averages token vectors of a [seq, dim] row-major output over the
// positions where mask is set, then L2-normalizes the result.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	var norm float64
	for i := range out {
		out[i] /= count
		norm += float64(out[i]) * float64(out[i])
	}
	if norm == 0 {
		return out
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range out {
		out[i] *= scale
	}
	return out
}
