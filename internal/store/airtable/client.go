// Package airtable Airtable REST API 的 TableStore 实现
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"
	"ScheduleSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// MaxBatchSize Airtable 单次 create/update 最多 10 条
const MaxBatchSize = 10

const pageSize = 100

type Client struct {
	cfg        *config.AirtableConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewClient 创建 Airtable 客户端；缺少凭证属于配置错误
func NewClient(cfg *config.AirtableConfig, logger *logrus.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.BaseID == "" {
		return nil, fmt.Errorf("%w: Airtable api_key/base_id 未配置", config.ErrInvalidConfig)
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c := &Client{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "airtable",
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.BreakerTimeoutMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 只有连接类故障计入熔断，字段校验等4xx错误不算
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, interfaces.ErrStoreUnavailable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Airtable 熔断器状态变化")
		},
	})
	return c, nil
}

func (c *Client) MaxBatchSize() int { return MaxBatchSize }

type apiRecord struct {
	ID     string       `json:"id,omitempty"`
	Fields model.Fields `json:"fields"`
}

type listResponse struct {
	Records []apiRecord `json:"records"`
	Offset  string      `json:"offset"`
}

type writeRequest struct {
	Records  []apiRecord `json:"records"`
	Typecast bool        `json:"typecast"`
}

type writeResponse struct {
	Records []apiRecord `json:"records"`
}

// Select 按公式过滤并翻页拉取全部匹配记录
func (c *Client) Select(ctx context.Context, table string, filter model.Filter) ([]model.RemoteRecord, error) {
	query := url.Values{}
	query.Set("filterByFormula", BuildFormula(filter))
	query.Set("pageSize", fmt.Sprint(pageSize))

	var records []model.RemoteRecord
	for {
		var page listResponse
		if err := c.do(ctx, http.MethodGet, table, query, nil, &page); err != nil {
			return nil, fmt.Errorf("查询%s失败: %w", table, err)
		}
		for _, r := range page.Records {
			records = append(records, model.RemoteRecord{ID: r.ID, Fields: r.Fields})
		}
		if page.Offset == "" {
			return records, nil
		}
		query.Set("offset", page.Offset)
	}
}

func (c *Client) Create(ctx context.Context, table string, fields []model.Fields) ([]model.RemoteRecord, error) {
	if len(fields) > MaxBatchSize {
		return nil, fmt.Errorf("单批创建%d条超过上限%d", len(fields), MaxBatchSize)
	}
	req := writeRequest{Typecast: true}
	for _, f := range fields {
		req.Records = append(req.Records, apiRecord{Fields: f})
	}
	var resp writeResponse
	if err := c.do(ctx, http.MethodPost, table, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("创建%s记录失败: %w", table, err)
	}
	return toRemote(resp.Records), nil
}

func (c *Client) Update(ctx context.Context, table string, records []model.RemoteRecord) ([]model.RemoteRecord, error) {
	if len(records) > MaxBatchSize {
		return nil, fmt.Errorf("单批更新%d条超过上限%d", len(records), MaxBatchSize)
	}
	req := writeRequest{Typecast: true}
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("更新%s记录缺少ID", table)
		}
		req.Records = append(req.Records, apiRecord{ID: r.ID, Fields: r.Fields})
	}
	var resp writeResponse
	if err := c.do(ctx, http.MethodPatch, table, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("更新%s记录失败: %w", table, err)
	}
	return toRemote(resp.Records), nil
}

func toRemote(in []apiRecord) []model.RemoteRecord {
	out := make([]model.RemoteRecord, 0, len(in))
	for _, r := range in {
		out = append(out, model.RemoteRecord{ID: r.ID, Fields: r.Fields})
	}
	return out
}

// do 经过熔断器执行一次逻辑请求（内部含限流与重试）
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v0/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, method, endpoint, payload, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return err
}

func (c *Client) doWithRetry(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	backoff := time.Duration(c.cfg.RetryBackoffMs) * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := c.send(ctx, method, endpoint, payload, out)
		if err == nil || !retryable(method, err) || attempt >= c.cfg.RetryCount {
			return err
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method":  method,
			"attempt": attempt + 1,
			"backoff": backoff.String(),
		}).Warn("Airtable 请求失败，稍后重试")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// retryable POST 不幂等：5xx 或超时时记录可能已写入，只有 429（请求未被处理）才重试
func retryable(method string, err error) bool {
	if !errors.Is(err, interfaces.ErrStoreUnavailable) {
		return false
	}
	if method != http.MethodPost {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Errorf("关闭Airtable响应体失败: %v", err)
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("解析Airtable响应失败: %w", err)
		}
		return nil
	}
	return newAPIError(resp)
}
