package embeddings

import "path/filepath"

// FastEmbedConfig configures the fastembed provider.
type FastEmbedConfig struct {
	// Model is a fastembed catalog model, by HuggingFace or fast-* name.
	Model string
	// CacheDir receives downloaded model files. Defaults to ./local_cache.
	CacheDir string
	// MaxLength caps the token sequence. Defaults to 512.
	MaxLength int
	// ShowProgress prints model download progress.
	ShowProgress bool
}

func (c FastEmbedConfig) withDefaults() FastEmbedConfig {
	if c.Model == "" {
		c.Model = defaultFastEmbedModel
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(".", "local_cache")
	}
	if c.MaxLength == 0 {
		c.MaxLength = 512
	}
	return c
}
