package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"interest_cluster/config"
	"interest_cluster/logger"
)

// GeminiClient 基于 google.golang.org/genai 的模型客户端
type GeminiClient struct {
	client     *genai.Client
	model      string
	structured bool // 为 true 时要求模型按聚类 schema 返回 JSON
}

// NewGeminiClient 创建 Gemini 客户端；cluster.protocol=json 时开启结构化输出
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		model:      cfg.Gemini.Model,
		structured: ParseProtocol(cfg.Cluster.Protocol) == ProtocolJSON,
	}, nil
}

// Complete 生成文本
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if g.structured {
		genCfg = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   clusterResponseSchema(),
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from gemini model %s", g.model)
	}
	logger.Info("成功获取Gemini响应", "model", g.model, "structured", g.structured, "response_size", len(text))
	return text, nil
}

// clusterResponseSchema 结构化聚类输出的 schema
func clusterResponseSchema() *genai.Schema {
	stringList := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: desc,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"clusters": {
				Type:        genai.TypeArray,
				Description: "Interest clusters derived from the watch history",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"main_keyword": {
							Type:        genai.TypeString,
							Description: "Core keyword of the cluster",
						},
						"category": {
							Type:        genai.TypeString,
							Description: "Category the interest belongs to",
						},
						"description": {
							Type:        genai.TypeString,
							Description: "One sentence describing the interest",
						},
						"keywords":       stringList("Related keywords"),
						"mood_keywords":  stringList("Mood keywords"),
						"related_videos": stringList("URLs of videos in this cluster"),
					},
					Required: []string{"main_keyword", "keywords", "related_videos"},
				},
			},
		},
		Required: []string{"clusters"},
	}
}
