package esi

import (
	"context"
	"fmt"
	"strconv"
)

// Order types accepted by the orders endpoint.
const (
	OrderTypeSell = "sell"
	OrderTypeBuy  = "buy"
	OrderTypeAll  = "all"
)

// MarketOrder mirrors the ESI market order response.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int32   `json:"system_id"`
	Price        float64 `json:"price"`
	VolumeRemain int32   `json:"volume_remain"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	RegionID     int32   `json:"-"` // set by us
}

// FetchRegionOrdersByType fetches every page of active orders for one type in a region.
// Concurrent calls for the same region/type/orderType share a single request.
func (c *Client) FetchRegionOrdersByType(ctx context.Context, regionID, typeID int32, orderType string) ([]MarketOrder, error) {
	switch orderType {
	case OrderTypeSell, OrderTypeBuy, OrderTypeAll:
	default:
		return nil, fmt.Errorf("unknown order type %q", orderType)
	}

	// The shared fetch is detached from the first caller so that its
	// cancellation does not fail the others; each caller still stops
	// waiting when its own ctx ends.
	key := fmt.Sprintf("%d:%d:%s", regionID, typeID, orderType)
	shared := context.WithoutCancel(ctx)
	ch := c.orders.DoChan(key, func() (interface{}, error) {
		return c.fetchOrderPages(shared, regionID, typeID, orderType)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]MarketOrder), nil
	}
}

func (c *Client) fetchOrderPages(ctx context.Context, regionID, typeID int32, orderType string) ([]MarketOrder, error) {
	ctx, cancel := withTimeout(ctx, c.timeouts.Orders)
	defer cancel()

	base := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=%s&type_id=%d",
		c.baseURL, regionID, orderType, typeID)

	var all []MarketOrder
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		var data []MarketOrder
		hdr, err := c.do(ctx, "GET", fmt.Sprintf("%s&page=%d", base, page), nil, &data)
		if err != nil {
			return nil, err
		}
		if page == 1 {
			if p, err := strconv.Atoi(hdr.Get("X-Pages")); err == nil && p > 1 {
				totalPages = p
			}
		}
		for i := range data {
			data[i].RegionID = regionID
		}
		all = append(all, data...)
	}
	return all, nil
}
