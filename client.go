package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ListClient fetches the static employee and agency lists.
type ListClient struct {
	employeesURL string
	agenciesURL  string
	httpClient   *http.Client
}

func NewListClient(employeesURL, agenciesURL string, timeout time.Duration) *ListClient {
	return &ListClient{
		employeesURL: employeesURL,
		agenciesURL:  agenciesURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// fetches the employee name list
func (c *ListClient) FetchEmployeeNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.getJSON(ctx, c.employeesURL, &names); err != nil {
		return nil, fmt.Errorf("employees fetch failed: %w", err)
	}
	return names, nil
}

// fetches the agency list
func (c *ListClient) FetchAgencies(ctx context.Context) ([]Agency, error) {
	var agencies []Agency
	if err := c.getJSON(ctx, c.agenciesURL, &agencies); err != nil {
		return nil, fmt.Errorf("agencies fetch failed: %w", err)
	}
	return agencies, nil
}

func (c *ListClient) getJSON(ctx context.Context, url string, out any) error {
	if url == "" {
		return fmt.Errorf("no url configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}

	return nil
}
