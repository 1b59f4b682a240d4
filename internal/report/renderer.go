package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Renderer 外部渲染器移交接口
// 核心只负责产出文档数据；打印/导出机制由外部实现，调用方 fire-and-forget。
type Renderer interface {
	Submit(ctx context.Context, doc *Document) error
}

// HTTPRenderer posts the composed document to a rendering endpoint.
type HTTPRenderer struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPRenderer(url string, logger *zap.Logger) *HTTPRenderer {
	return &HTTPRenderer{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (r *HTTPRenderer) Submit(ctx context.Context, doc *Document) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(doc.HTML))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("renderer submit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("renderer submit failed: HTTP %d", resp.StatusCode)
	}

	r.logger.Debug("Report submitted to renderer",
		zap.Int("row_total", doc.RowTotal),
		zap.Time("generated_at", doc.GeneratedAt),
	)
	return nil
}
