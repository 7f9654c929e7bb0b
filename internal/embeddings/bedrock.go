package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockConfig configures the Amazon Bedrock provider.
type BedrockConfig struct {
	// Region is the AWS region hosting the model.
	Region string

	// Model is the Bedrock model ID, e.g. amazon.titan-embed-text-v2:0.
	Model string

	// Dimension is the model output width. Zero looks it up from Model.
	Dimension int
}

// bedrockInvoker is the subset of the bedrockruntime client used here.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider embeds text with an Amazon Titan embedding model.
type BedrockProvider struct {
	client    bedrockInvoker
	model     string
	dimension int
}

// titanV2Prefix identifies models that accept dimensions and normalize.
const titanV2Prefix = "amazon.titan-embed-text-v2"

// titanV2Dimensions are the output widths Titan v2 supports.
var titanV2Dimensions = []int{256, 512, 1024}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"`
}

type titanResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockProvider creates a Bedrock provider using the default AWS
// credential chain.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newBedrockProvider(bedrockruntime.NewFromConfig(awsCfg), cfg)
}

func newBedrockProvider(client bedrockInvoker, cfg BedrockConfig) (*BedrockProvider, error) {
	dim, err := resolveDimension(cfg.Model, cfg.Dimension)
	if err != nil {
		return nil, err
	}
	if isTitanV2(cfg.Model) && !slices.Contains(titanV2Dimensions, dim) {
		return nil, fmt.Errorf("%w: %s supports dimensions %v, got %d", ErrInvalidConfig, cfg.Model, titanV2Dimensions, dim)
	}
	return &BedrockProvider{client: client, model: cfg.Model, dimension: dim}, nil
}

func isTitanV2(model string) bool {
	return strings.HasPrefix(model, titanV2Prefix)
}

func (p *BedrockProvider) request(text string) titanRequest {
	req := titanRequest{InputText: text}
	if isTitanV2(p.model) {
		req.Dimensions = p.dimension
		req.Normalize = true
	}
	return req
}

// Embed generates an embedding for text.
func (p *BedrockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	body, err := json.Marshal(p.request(text))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoking %s: %v", ErrEmbeddingFailed, p.model, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrEmbeddingFailed)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension returns the embedding dimension.
func (p *BedrockProvider) Dimension() int { return p.dimension }

// Model returns the Bedrock model ID.
func (p *BedrockProvider) Model() string { return p.model }

// Close is a no-op; the AWS client holds no resources that need releasing.
func (p *BedrockProvider) Close() error { return nil }
