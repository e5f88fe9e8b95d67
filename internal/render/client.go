package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
	"go.uber.org/zap"
)

// Client talks to the external card rasterizer. Images live at
// <baseURL>/<kind>?<params>.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ImageURL is stable for identical params: url.Values encodes keys sorted.
func (c *Client) ImageURL(kind domain.CardKind, params Params) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, kind, values.Encode())
}

// Download fetches the rendered PNG into outputDir/name.png. The file is
// written to a temporary path first and renamed once complete.
func (c *Client) Download(ctx context.Context, kind domain.CardKind, params Params, outputDir, name string) (string, error) {
	timer := metrics.NewTimer()
	status := "error"
	defer func() {
		metrics.RendererRequests.WithLabelValues(string(kind), status).Inc()
	}()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("erro ao criar diretório: %w", err)
	}

	outputPath := filepath.Join(outputDir, name+".png")
	imageURL := c.ImageURL(kind, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("erro ao criar request: %w", err)
	}
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("erro ao chamar renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status = strconv.Itoa(resp.StatusCode)
		return "", fmt.Errorf("status code: %d para URL: %s", resp.StatusCode, imageURL)
	}

	tempFile := outputPath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("erro ao criar arquivo: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	file.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("erro ao salvar arquivo: %w", err)
	}

	if err := os.Rename(tempFile, outputPath); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("erro ao renomear arquivo: %w", err)
	}

	status = "success"
	logger.Info("card baixado",
		zap.String("kind", string(kind)),
		zap.String("path", outputPath),
		zap.Int64("bytes", written),
		zap.Duration("duration", timer.Elapsed()))

	return outputPath, nil
}
