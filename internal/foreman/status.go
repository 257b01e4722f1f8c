package foreman

import "context"

// StatusResponse is the /api/v2/status payload.
type StatusResponse struct {
	Result     string `json:"result"`
	Status     int    `json:"status"`
	Version    string `json:"version"`
	APIVersion int    `json:"api_version"`
}

// Status probes the server, verifying connectivity and credentials in one
// request. Refresh runs call this first so auth problems surface before any
// collection fetch starts.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var st StatusResponse
	if err := c.GetJSON(ctx, "/api/v2/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
