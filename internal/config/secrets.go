package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/v2"
)

// Secrets is the layout of a deployment secrets.toml:
//
//	[aws]
//	region      = "us-east-1"
//	bucket_name = "my-vector-bucket"
//	index_name  = "my-index"
//
//	[bedrock]
//	embedding_model_id = "amazon.titan-embed-text-v2:0"
type Secrets struct {
	AWS struct {
		Region     string `toml:"region"`
		BucketName string `toml:"bucket_name"`
		IndexName  string `toml:"index_name"`
	} `toml:"aws"`
	Bedrock struct {
		EmbeddingModelID string `toml:"embedding_model_id"`
	} `toml:"bedrock"`
}

// ReadSecrets decodes a secrets.toml file. Unknown keys are rejected.
func ReadSecrets(path string) (*Secrets, error) {
	var s Secrets
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secrets file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in secrets file %s: %v", path, undecoded)
	}
	return &s, nil
}

// keys returns the config keys the secrets map onto. A bucket selects the
// s3vectors store and a model ID selects the bedrock embedder.
func (s *Secrets) keys() map[string]interface{} {
	out := make(map[string]interface{})
	if s.AWS.Region != "" {
		out["embedding.region"] = s.AWS.Region
		out["vectorstore.s3vectors.region"] = s.AWS.Region
	}
	if s.AWS.BucketName != "" {
		out["vectorstore.provider"] = "s3vectors"
		out["vectorstore.s3vectors.bucket_name"] = s.AWS.BucketName
	}
	if s.AWS.IndexName != "" {
		out["vectorstore.s3vectors.index_name"] = s.AWS.IndexName
	}
	if s.Bedrock.EmbeddingModelID != "" {
		out["embedding.provider"] = "bedrock"
		out["embedding.model"] = s.Bedrock.EmbeddingModelID
	}
	return out
}

func loadSecrets(k *koanf.Koanf, path string) error {
	s, err := ReadSecrets(path)
	if err != nil {
		return err
	}
	for key, val := range s.keys() {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("applying secret %s: %w", key, err)
		}
	}
	return nil
}
