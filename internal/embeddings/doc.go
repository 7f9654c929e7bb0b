// Package embeddings turns text into dense vectors.
//
// Supported providers are Amazon Bedrock (Titan), OpenAI, Ollama, Hugging Face
// TEI and FastEmbed (local ONNX, cgo builds only). NewProvider selects one
// from configuration and wraps it with request throttling, a per-call
// timeout and OpenTelemetry metrics.
//
// Providers never retry. A failed call is returned to the caller as is.
package embeddings
