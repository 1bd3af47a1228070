package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockInvoker is the subset of the Bedrock runtime client the provider uses.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider implements Provider with the Bedrock InvokeModel API using
// the messages-v1 body accepted by Amazon Nova models.
type BedrockProvider struct {
	client bedrockInvoker
	model  string
}

// NewBedrockProvider loads AWS credentials from the default chain. profile
// and region may be empty to use the environment's defaults.
func NewBedrockProvider(ctx context.Context, model, region, profile string) (*BedrockProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg), model: model}, nil
}

func (p *BedrockProvider) Name() string {
	return "bedrock"
}

type bedrockRequest struct {
	System          []bedrockText    `json:"system,omitempty"`
	InferenceConfig bedrockInference `json:"inferenceConfig"`
	Messages        []bedrockMessage `json:"messages"`
}

type bedrockInference struct {
	MaxNewTokens int      `json:"max_new_tokens"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

type bedrockMessage struct {
	Role    string        `json:"role"`
	Content []bedrockText `json:"content"`
}

type bedrockText struct {
	Text string `json:"text"`
}

type bedrockResponse struct {
	Output struct {
		Message bedrockMessage `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
	} `json:"usage"`
}

func (p *BedrockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.modelOr(p.model)
	system, turns := req.splitSystem()

	apiReq := bedrockRequest{InferenceConfig: bedrockInference{MaxNewTokens: req.maxTokens()}}
	if req.Temperature > 0 {
		temp := req.Temperature
		apiReq.InferenceConfig.Temperature = &temp
	}
	if system != "" {
		apiReq.System = []bedrockText{{Text: system}}
	}
	for _, m := range turns {
		apiReq.Messages = append(apiReq.Messages, bedrockMessage{
			Role:    string(m.Role),
			Content: []bedrockText{{Text: m.Content}},
		})
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bedrock request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke %s: %w", model, err)
	}

	return parseBedrockBody(out.Body, model), nil
}

// parseBedrockBody extracts the message text. Bodies of another shape are
// returned verbatim so the caller still sees what the model produced.
func parseBedrockBody(raw []byte, model string) *CompletionResponse {
	var apiResp bedrockResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil || len(apiResp.Output.Message.Content) == 0 {
		return &CompletionResponse{Content: string(raw), Model: model}
	}

	var sb strings.Builder
	for _, block := range apiResp.Output.Message.Content {
		sb.WriteString(block.Text)
	}
	return &CompletionResponse{
		Content:    sb.String(),
		Model:      model,
		StopReason: apiResp.StopReason,
		Usage:      Usage{InputTokens: apiResp.Usage.InputTokens, OutputTokens: apiResp.Usage.OutputTokens},
	}
}
