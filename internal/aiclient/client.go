package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"inbox-triage/model"
)

type Client struct {
	baseURL string
	httpCli *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// 超时由调用方的context控制，客户端本身不再叠一层
		httpCli: &http.Client{},
	}
}

// Run 调用推理服务，返回原始输出，超时随context终止
func (c *Client) Run(ctx context.Context, modelID string, payload model.InferencePayload) ([]byte, error) {
	body := struct {
		Model string `json:"model"`
		model.InferencePayload
	}{Model: modelID, InferencePayload: payload}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/interpret", bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference provider returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
