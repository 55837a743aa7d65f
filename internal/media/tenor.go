package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storytree/storytree/pkg/config"
	"github.com/storytree/storytree/pkg/logging"
	"github.com/storytree/storytree/pkg/telemetry"
)

// TenorClient looks up GIFs at the Tenor API. The scene creation gate
// only needs existence checks, not search.
type TenorClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a new Tenor client
func New(cfg *config.MediaConfig) (*TenorClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("media_url is required")
	}

	logger := logging.WithComponent("tenor-client")
	logger.Info("Tenor client initialized", zap.String("url", cfg.URL))

	return &TenorClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

// IDsExist reports whether every id resolves to a GIF. A Tenor error
// response means the ids are invalid; a transport failure is returned
// as an error so the caller can treat it as retryable.
func (c *TenorClient) IDsExist(ctx context.Context, ids []string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "media.ids_exist")
	defer span.End()

	if len(ids) == 0 {
		return false, nil
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("ids", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/posts?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("media lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Media lookup rejected",
			zap.Int("status", resp.StatusCode),
			zap.Strings("ids", ids))
		return false, nil
	}

	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode media response: %w", err)
	}

	return len(body.Results) == len(ids), nil
}

// Validate checks that the client is configured and can resolve a
// known-good id; used as a startup probe
func (c *TenorClient) Validate(ctx context.Context) error {
	ok, err := c.IDsExist(ctx, []string{"23616422"})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("media probe id did not resolve")
	}
	return nil
}
