// Package embeddings turns message and question text into dense vectors.
//
// Two providers are available: FastEmbed runs ONNX models in-process (cgo
// builds only) and TEI calls a Text Embeddings Inference server over HTTP.
// NewProvider selects one at runtime and detects the vector dimension for
// common models. Normalize and Mean provide the vector arithmetic the index
// and ranker share.
package embeddings
