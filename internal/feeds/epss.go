package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

// EPSSClient fetches exploit-prediction scores from the FIRST EPSS feed.
// One request covers one batch of CVE identifiers; batching is the caller's
// responsibility.
type EPSSClient struct {
	client *http.Client
	apiURL string
	logger *logger.Logger
}

// NewEPSSClient creates a new EPSS feed client
func NewEPSSClient(cfg config.EPSSConfig, log *logger.Logger) *EPSSClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &EPSSClient{
		client: &http.Client{Timeout: timeout},
		apiURL: cfg.APIURL,
		logger: log.WithComponent("epss_feed"),
	}
}

// epssEnvelope is the wire format of the EPSS API response. Scores arrive
// as strings.
type epssEnvelope struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Data   []struct {
		CVE        string `json:"cve"`
		EPSS       string `json:"epss"`
		Percentile string `json:"percentile"`
		Date       string `json:"date"`
	} `json:"data"`
}

// FetchScores retrieves scores for one batch of CVE ids. A transport or
// decode problem is a batch-level failure; individual CVEs unknown to the
// feed are simply absent from the result.
func (c *EPSSClient) FetchScores(ctx context.Context, cveIDs []string) ([]models.EPSSRecord, error) {
	if len(cveIDs) == 0 {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s?cve=%s", c.apiURL, url.QueryEscape(strings.Join(cveIDs, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build EPSS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EPSS scores: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("EPSS feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope epssEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse EPSS response: %w", err)
	}

	records := make([]models.EPSSRecord, 0, len(envelope.Data))
	for _, d := range envelope.Data {
		score, err := strconv.ParseFloat(d.EPSS, 64)
		if err != nil {
			c.logger.Warn().Str("cve", d.CVE).Str("epss", d.EPSS).Msg("skipping unparseable EPSS score")
			continue
		}
		percentile, err := strconv.ParseFloat(d.Percentile, 64)
		if err != nil {
			percentile = 0
		}
		model := envelope.Model
		if model == "" {
			model = d.Date
		}
		records = append(records, models.EPSSRecord{
			CVEID:      d.CVE,
			Score:      score,
			Percentile: percentile,
			Model:      model,
		})
	}

	c.logger.Debug().
		Int("requested", len(cveIDs)).
		Int("returned", len(records)).
		Dur("duration", time.Since(start)).
		Msg("fetched EPSS batch")

	return records, nil
}
