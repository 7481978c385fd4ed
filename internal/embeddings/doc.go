// Package embeddings provides sentence embeddings through interchangeable
// providers.
//
// Four providers are supported:
//   - tei: a Text Embeddings Inference server over HTTP (default)
//   - onnx: an exported sentence-transformers model run in-process with
//     onnxruntime and a HuggingFace tokenizer (cgo)
//   - fastembed: the fastembed-go model catalog (cgo)
//   - openai: any OpenAI-compatible /embeddings endpoint via langchaingo
//
// NewProvider selects one at runtime and measures every call it makes.
// NewCachedProvider wraps any provider with an LRU of query embeddings,
// collapsing concurrent identical queries.
package embeddings
