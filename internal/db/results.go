package db

import (
	"database/sql"
	"fmt"

	"lp-analyzer/internal/engine"
)

func insertResults(tx *sql.Tx, runID string, results []engine.ProfitabilityResult) error {
	if len(results) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO lp_results (
		run_id, position, type_id, item_name, region_name, quantity,
		point_cost, currency_cost, currency_cost_total,
		average_price, lowest_price, current_price, effective_price,
		revenue, profit, ratio, profit_current, ratio_current, recent_volume
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("save report: prepare results: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		_, err := stmt.Exec(
			runID, i, r.TypeID, r.ItemName, r.RegionName, r.Quantity,
			r.PointCost, r.CurrencyCost, r.CurrencyCostTotal,
			r.AveragePrice, r.LowestPrice, r.CurrentPrice, r.EffectivePrice,
			r.Revenue, r.Profit, r.Ratio, r.ProfitCurrent, r.RatioCurrent, r.RecentVolume,
		)
		if err != nil {
			return fmt.Errorf("save report: insert result %d: %w", i, err)
		}
	}
	return nil
}

// GetRunResults returns the stored rows of a run in their original order.
func (d *DB) GetRunResults(runID string) []engine.ProfitabilityResult {
	rows, err := d.sql.Query(`
		SELECT type_id, item_name, region_name, quantity,
			point_cost, currency_cost, currency_cost_total,
			average_price, lowest_price, current_price, effective_price,
			revenue, profit, ratio, profit_current, ratio_current, recent_volume
		FROM lp_results WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return []engine.ProfitabilityResult{}
	}
	defer rows.Close()

	results := []engine.ProfitabilityResult{}
	for rows.Next() {
		var r engine.ProfitabilityResult
		err := rows.Scan(
			&r.TypeID, &r.ItemName, &r.RegionName, &r.Quantity,
			&r.PointCost, &r.CurrencyCost, &r.CurrencyCostTotal,
			&r.AveragePrice, &r.LowestPrice, &r.CurrentPrice, &r.EffectivePrice,
			&r.Revenue, &r.Profit, &r.Ratio, &r.ProfitCurrent, &r.RatioCurrent, &r.RecentVolume,
		)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results
}
