package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"interest_cluster/config"
	"interest_cluster/logger"
	"interest_cluster/utils"
)

// 定义SiliconFlow API请求和响应结构
type siliconFlowRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type siliconFlowResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// SiliconFlowClient OpenAI 兼容的 chat completions 客户端
type SiliconFlowClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewSiliconFlowClient 根据配置创建客户端。超时由调用方的 context 控制。
func NewSiliconFlowClient(cfg *config.Config) *SiliconFlowClient {
	apiKey := cfg.SiliconFlow.APIKey
	// 如果配置中的API Key是环境变量引用，则从环境变量中获取
	if strings.HasPrefix(apiKey, "${") && strings.HasSuffix(apiKey, "}") {
		envName := apiKey[2 : len(apiKey)-1]
		apiKey = os.Getenv(envName)
		logger.Info("从环境变量获取API Key", "env_var", envName)
	}
	return &SiliconFlowClient{
		baseURL:    strings.TrimRight(cfg.SiliconFlow.BaseURL, "/"),
		apiKey:     apiKey,
		model:      cfg.SiliconFlow.Model,
		httpClient: &http.Client{},
	}
}

// Complete 发送单轮对话请求并返回模型文本
func (c *SiliconFlowClient) Complete(ctx context.Context, prompt string) (string, error) {
	logger.Info("调用LLM API", "model", c.model)
	logger.Debug("LLM请求提示词预览", "prompt_preview", utils.Truncate(prompt, 100))

	reqBody := siliconFlowRequest{
		Model: c.model,
		Messages: []message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化请求体失败: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration := time.Since(startTime)
	if err != nil {
		logger.Error("发送请求失败", "error", err, "duration_ms", requestDuration.Milliseconds())
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}

	logger.Info("LLM响应状态", "status_code", resp.StatusCode, "response_size", len(body), "duration_ms", requestDuration.Milliseconds())

	if resp.StatusCode != http.StatusOK {
		logger.Error("API请求失败", "status", resp.StatusCode, "response", utils.Truncate(string(body), 500))
		return "", fmt.Errorf("API请求失败: %d - %s", resp.StatusCode, utils.Truncate(string(body), 500))
	}

	var sfResp siliconFlowResponse
	if err := json.Unmarshal(body, &sfResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if len(sfResp.Choices) == 0 {
		return "", fmt.Errorf("API响应中没有内容")
	}

	content := sfResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("API响应内容为空")
	}

	logger.Info("成功获取LLM响应",
		"tokens_prompt", sfResp.Usage.PromptTokens,
		"tokens_completion", sfResp.Usage.CompletionTokens,
		"tokens_total", sfResp.Usage.TotalTokens,
		"finish_reason", sfResp.Choices[0].FinishReason)
	logger.Debug("LLM响应内容预览", "content_preview", utils.Truncate(content, 200))

	return content, nil
}
