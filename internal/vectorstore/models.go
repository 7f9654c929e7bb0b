package vectorstore

import (
	"fmt"
	"strconv"
)

// Metadata keys as persisted in every store.
const (
	KeySourceText = "source_text"
	KeyHeading    = "heading"
	KeyTimestamp  = "timestamp"
	KeyChunkIndex = "chunk_index"
	KeyFullLength = "full_length"
)

// Metadata is the bundle stored alongside every vector.
type Metadata struct {
	// SourceText is the chunk text, truncated for storage.
	SourceText string `json:"source_text"`

	// Heading is the chunk's second-level heading, or the "no heading" label.
	Heading string `json:"heading"`

	// Timestamp is the ingestion time in ISO-8601 (RFC 3339) form.
	Timestamp string `json:"timestamp"`

	// ChunkIndex is the zero-based position of the chunk in its document.
	ChunkIndex int `json:"chunk_index"`

	// FullLength is the character count of the untruncated chunk.
	FullLength int `json:"full_length"`
}

// Record is the unit written to a store.
type Record struct {
	Key      string    `json:"key"`
	Vector   []float32 `json:"vector"`
	Metadata Metadata  `json:"metadata"`
}

// Match is one entry of a query response.
type Match struct {
	Key      string   `json:"key"`
	Distance float32  `json:"distance"`
	Metadata Metadata `json:"metadata"`
}

// QueryVector is the tagged query representation sent to stores.
// It serializes as {"float32": [...]}.
type QueryVector struct {
	Float32 []float32 `json:"float32"`
}

// NewQueryVector wraps v as a float32 query vector. The slice is copied.
func NewQueryVector(v []float32) QueryVector {
	out := make([]float32, len(v))
	copy(out, v)
	return QueryVector{Float32: out}
}

// NewQueryVector64 narrows a float64 vector to float32 precision.
func NewQueryVector64(v []float64) QueryVector {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return QueryVector{Float32: out}
}

// ToMap converts metadata to a generic payload map.
func (m Metadata) ToMap() map[string]interface{} {
	return map[string]interface{}{
		KeySourceText: m.SourceText,
		KeyHeading:    m.Heading,
		KeyTimestamp:  m.Timestamp,
		KeyChunkIndex: m.ChunkIndex,
		KeyFullLength: m.FullLength,
	}
}

// MetadataFromMap rebuilds metadata from a payload map. Numeric fields may
// arrive as ints, floats, number wrappers or decimal strings depending on the
// store. Unknown keys are ignored.
func MetadataFromMap(payload map[string]interface{}) (Metadata, error) {
	var (
		m   Metadata
		err error
	)
	if payload == nil {
		return m, nil
	}

	m.SourceText, _ = payload[KeySourceText].(string)
	m.Heading, _ = payload[KeyHeading].(string)
	m.Timestamp, _ = payload[KeyTimestamp].(string)

	if m.ChunkIndex, err = toInt(payload[KeyChunkIndex]); err != nil {
		return m, fmt.Errorf("decoding %s: %w", KeyChunkIndex, err)
	}
	if m.FullLength, err = toInt(payload[KeyFullLength]); err != nil {
		return m, fmt.Errorf("decoding %s: %w", KeyFullLength, err)
	}
	return m, nil
}

func toInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return val, nil
	case int32:
		return int(val), nil
	case int64:
		return int(val), nil
	case float32:
		return int(val), nil
	case float64:
		return int(val), nil
	case interface{ Int64() (int64, error) }:
		// json.Number and smithy document.Number.
		n, err := val.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(val)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// metadataToStrings flattens metadata for stores that only keep string values.
func metadataToStrings(m Metadata) map[string]string {
	return map[string]string{
		KeySourceText: m.SourceText,
		KeyHeading:    m.Heading,
		KeyTimestamp:  m.Timestamp,
		KeyChunkIndex: strconv.Itoa(m.ChunkIndex),
		KeyFullLength: strconv.Itoa(m.FullLength),
	}
}

func metadataFromStrings(payload map[string]string) (Metadata, error) {
	generic := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		generic[k] = v
	}
	return MetadataFromMap(generic)
}
