package embeddings

// defaultFastEmbedModel is used when the fastembed provider has no model set.
const defaultFastEmbedModel = "BAAI/bge-small-en-v1.5"

// fastEmbedDimensions maps the fastembed catalog to embedding dimensions.
var fastEmbedDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

// fastEmbedModelDimension returns dimensions for models in the fastembed catalog.
func fastEmbedModelDimension(model string) (int, bool) {
	dim, ok := fastEmbedDimensions[model]
	return dim, ok
}
