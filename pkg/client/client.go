package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
)

// Client is the API client for the bugfix-pairs ledger
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetDatasetSummary retrieves per-project outcome counts of a dataset
func (c *Client) GetDatasetSummary(ctx context.Context, dataset domain.Dataset) (*domain.DatasetSummary, error) {
	path := fmt.Sprintf("/api/v1/datasets/%s/summary", url.PathEscape(string(dataset)))

	var response struct {
		Data *domain.DatasetSummary `json:"data"`
	}
	if err := c.get(ctx, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetProjectSummary retrieves outcome counts of one project
func (c *Client) GetProjectSummary(ctx context.Context, dataset domain.Dataset, project domain.Project) (*domain.ProjectSummary, error) {
	path := fmt.Sprintf("/api/v1/datasets/%s/projects/%s/summary",
		url.PathEscape(string(dataset)), url.PathEscape(string(project)))

	var response struct {
		Data *domain.ProjectSummary `json:"data"`
	}
	if err := c.get(ctx, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetProjectBugs retrieves the effective record of every bug of a project.
// An empty status returns all of them.
func (c *Client) GetProjectBugs(ctx context.Context, dataset domain.Dataset, project domain.Project, status domain.BugStatus) ([]*domain.BugRecord, error) {
	path := fmt.Sprintf("/api/v1/datasets/%s/projects/%s/bugs",
		url.PathEscape(string(dataset)), url.PathEscape(string(project)))
	params := url.Values{}
	if status != "" {
		params.Set("status", string(status))
	}

	var response struct {
		Data []*domain.BugRecord `json:"data"`
	}
	if err := c.get(ctx, path, params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetStatsSummary retrieves the diff statistics totals of a dataset
func (c *Client) GetStatsSummary(ctx context.Context, dataset domain.Dataset) (*domain.StatsSummary, error) {
	path := fmt.Sprintf("/api/v1/datasets/%s/stats", url.PathEscape(string(dataset)))

	var response struct {
		Data *domain.StatsSummary `json:"data"`
	}
	if err := c.get(ctx, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

// get decodes the response into result. Error envelopes come back as
// *apperrors.AppError so callers can use the apperrors helpers.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error *apperrors.AppError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil && envelope.Error.Code != "" {
			return envelope.Error
		}
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
