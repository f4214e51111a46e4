package esi

import (
	"context"
	"fmt"
)

// namesChunk is the ESI limit for ids per /universe/names/ call.
const namesChunk = 1000

// NameEntry mirrors one /universe/names/ response element.
type NameEntry struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ResolveNames batch-resolves ids to names. Duplicate ids are sent once.
// The first failing chunk aborts the call; names resolved so far are discarded.
func (c *Client) ResolveNames(ctx context.Context, ids []int32) (map[int32]string, error) {
	unique := make([]int32, 0, len(ids))
	seen := make(map[int32]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	names := make(map[int32]string, len(unique))
	url := c.baseURL + "/universe/names/?datasource=tranquility"
	for start := 0; start < len(unique); start += namesChunk {
		end := start + namesChunk
		if end > len(unique) {
			end = len(unique)
		}

		var entries []NameEntry
		err := func() error {
			cctx, cancel := withTimeout(ctx, c.timeouts.Names)
			defer cancel()
			return c.PostJSON(cctx, url, unique[start:end], &entries)
		}()
		if err != nil {
			return nil, fmt.Errorf("resolve names: %w", err)
		}
		for _, e := range entries {
			names[e.ID] = e.Name
		}
	}
	return names, nil
}
