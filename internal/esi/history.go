package esi

import (
	"context"
	"fmt"
)

// HistoryEntry represents a single day of market history for an item in a region.
type HistoryEntry struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
}

// FetchMarketHistory fetches market history for a type in a region from ESI.
// ESI does not guarantee chronological order.
func (c *Client) FetchMarketHistory(ctx context.Context, regionID, typeID int32) ([]HistoryEntry, error) {
	ctx, cancel := withTimeout(ctx, c.timeouts.History)
	defer cancel()

	url := fmt.Sprintf("%s/markets/%d/history/?datasource=tranquility&type_id=%d",
		c.baseURL, regionID, typeID)

	var entries []HistoryEntry
	if err := c.GetJSON(ctx, url, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
