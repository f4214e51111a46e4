package esi

import (
	"context"
	"fmt"
)

// RequiredItem is one extra item an LP offer consumes.
type RequiredItem struct {
	TypeID   int32 `json:"type_id"`
	Quantity int64 `json:"quantity"`
}

// LoyaltyOffer mirrors the ESI loyalty store offer response.
type LoyaltyOffer struct {
	OfferID       int32          `json:"offer_id"`
	TypeID        int32          `json:"type_id"`
	Quantity      int64          `json:"quantity"`
	LPCost        int64          `json:"lp_cost"`
	ISKCost       float64        `json:"isk_cost"`
	AKCost        int64          `json:"ak_cost,omitempty"`
	RequiredItems []RequiredItem `json:"required_items"`
}

// FetchLoyaltyOffers fetches every offer of a corporation's LP store.
func (c *Client) FetchLoyaltyOffers(ctx context.Context, corporationID int32) ([]LoyaltyOffer, error) {
	ctx, cancel := withTimeout(ctx, c.timeouts.Offers)
	defer cancel()

	url := fmt.Sprintf("%s/loyalty/stores/%d/offers/?datasource=tranquility", c.baseURL, corporationID)
	var offers []LoyaltyOffer
	if err := c.GetJSON(ctx, url, &offers); err != nil {
		return nil, fmt.Errorf("loyalty offers for corporation %d: %w", corporationID, err)
	}
	return offers, nil
}
