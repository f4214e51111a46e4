package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Region is a named market region.
type Region struct {
	Name string `json:"name" mapstructure:"name"`
	ID   int32  `json:"id" mapstructure:"id"`
}

// Config holds analyzer settings (in-memory representation).
// Region order is significant: per-region tables are rendered in this order.
type Config struct {
	ESIBaseURL    string   `json:"esi_base_url" mapstructure:"esi_base_url"`
	CorporationID int32    `json:"corporation_id" mapstructure:"corporation_id"`
	Regions       []Region `json:"regions" mapstructure:"regions"`

	HistoryWindowDays  int       `json:"history_window_days" mapstructure:"history_window_days"`
	VolumeWindowDays   int       `json:"volume_window_days" mapstructure:"volume_window_days"`
	MinRatioThresholds []float64 `json:"min_ratio_thresholds" mapstructure:"min_ratio_thresholds"` // one liquidity view per entry
	TopNRegional       int       `json:"top_n_regional" mapstructure:"top_n_regional"`
	TopNGlobal         int       `json:"top_n_global" mapstructure:"top_n_global"`
	TopNLiquidity      int       `json:"top_n_liquidity" mapstructure:"top_n_liquidity"`
	GlobalSortKey      string    `json:"global_sort_key" mapstructure:"global_sort_key"` // ratio, current_ratio or volume

	SalesTaxPercent       float64 `json:"sales_tax_percent" mapstructure:"sales_tax_percent"`
	IncludeMaterialOffers bool    `json:"include_material_offers" mapstructure:"include_material_offers"`
	MaterialPriceRegionID int32   `json:"material_price_region_id" mapstructure:"material_price_region_id"` // also the blueprint resale market

	// IncludeBlueprintResale values blueprint copy offers at the best buy
	// order in the material price region.
	IncludeBlueprintResale bool `json:"include_blueprint_resale" mapstructure:"include_blueprint_resale"`

	Workers        int           `json:"workers" mapstructure:"workers"` // 1 = strictly sequential
	RequestDelay   time.Duration `json:"request_delay" mapstructure:"request_delay"`
	OffersTimeout  time.Duration `json:"offers_timeout" mapstructure:"offers_timeout"`
	HistoryTimeout time.Duration `json:"history_timeout" mapstructure:"history_timeout"`
	OrdersTimeout  time.Duration `json:"orders_timeout" mapstructure:"orders_timeout"`
	NamesTimeout   time.Duration `json:"names_timeout" mapstructure:"names_timeout"`

	DBPath   string `json:"db_path" mapstructure:"db_path"` // "" disables run history
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	Port     int    `json:"port" mapstructure:"port"`
}

// Default returns a Config with the Federal Defense Union store and the four trade hubs.
func Default() *Config {
	return &Config{
		ESIBaseURL:    "https://esi.evetech.net/latest",
		CorporationID: 1000181,
		Regions: []Region{
			{Name: "Jita", ID: 10000002},
			{Name: "Dodixie", ID: 10000032},
			{Name: "Amarr", ID: 10000043},
			{Name: "Hek", ID: 10000042},
		},
		HistoryWindowDays:     30,
		VolumeWindowDays:      10,
		MinRatioThresholds:    []float64{1000, 2000},
		TopNRegional:          15,
		TopNGlobal:            25,
		TopNLiquidity:         25,
		GlobalSortKey:         "ratio",
		SalesTaxPercent:       0,
		IncludeMaterialOffers: false,
		MaterialPriceRegionID: 10000002,
		Workers:               1,
		RequestDelay:          50 * time.Millisecond,
		OffersTimeout:         15 * time.Second,
		HistoryTimeout:        10 * time.Second,
		OrdersTimeout:         5 * time.Second,
		NamesTimeout:          10 * time.Second,
		DBPath:                "lp-analyzer.db",
		LogLevel:              "info",
		Port:                  13370,
	}
}

// Load reads an optional config file on top of Default(). Environment variables
// prefixed with LPA_ (e.g. LPA_CORPORATION_ID) override both.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("LPA")
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("esi_base_url", d.ESIBaseURL)
	v.SetDefault("corporation_id", d.CorporationID)
	v.SetDefault("regions", d.Regions)
	v.SetDefault("history_window_days", d.HistoryWindowDays)
	v.SetDefault("volume_window_days", d.VolumeWindowDays)
	v.SetDefault("min_ratio_thresholds", d.MinRatioThresholds)
	v.SetDefault("top_n_regional", d.TopNRegional)
	v.SetDefault("top_n_global", d.TopNGlobal)
	v.SetDefault("top_n_liquidity", d.TopNLiquidity)
	v.SetDefault("global_sort_key", d.GlobalSortKey)
	v.SetDefault("sales_tax_percent", d.SalesTaxPercent)
	v.SetDefault("include_material_offers", d.IncludeMaterialOffers)
	v.SetDefault("material_price_region_id", d.MaterialPriceRegionID)
	v.SetDefault("include_blueprint_resale", d.IncludeBlueprintResale)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("request_delay", d.RequestDelay)
	v.SetDefault("offers_timeout", d.OffersTimeout)
	v.SetDefault("history_timeout", d.HistoryTimeout)
	v.SetDefault("orders_timeout", d.OrdersTimeout)
	v.SetDefault("names_timeout", d.NamesTimeout)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("port", d.Port)
}

// Validate checks that the configuration can drive an analysis run.
func (c *Config) Validate() error {
	if c.ESIBaseURL == "" {
		return fmt.Errorf("esi_base_url is required")
	}
	if c.CorporationID <= 0 {
		return fmt.Errorf("corporation_id must be positive")
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("regions must contain at least one region")
	}
	seen := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if r.Name == "" || r.ID <= 0 {
			return fmt.Errorf("region %q has no valid name/id", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("region %q listed twice", r.Name)
		}
		seen[r.Name] = true
	}
	if c.HistoryWindowDays < 1 {
		return fmt.Errorf("history_window_days must be at least 1")
	}
	if c.VolumeWindowDays < 1 || c.VolumeWindowDays >= c.HistoryWindowDays {
		return fmt.Errorf("volume_window_days must be at least 1 and shorter than history_window_days")
	}
	for _, th := range c.MinRatioThresholds {
		if th <= 0 {
			return fmt.Errorf("min_ratio_thresholds entries must be positive")
		}
	}
	if c.TopNRegional < 1 || c.TopNGlobal < 1 || c.TopNLiquidity < 1 {
		return fmt.Errorf("top_n_* values must be at least 1")
	}
	if c.SalesTaxPercent < 0 || c.SalesTaxPercent >= 100 {
		return fmt.Errorf("sales_tax_percent must be in [0, 100)")
	}
	switch c.GlobalSortKey {
	case "", "ratio", "current_ratio", "volume":
	default:
		return fmt.Errorf("global_sort_key must be ratio, current_ratio or volume")
	}
	if (c.IncludeMaterialOffers || c.IncludeBlueprintResale) && c.MaterialPriceRegionID <= 0 {
		return fmt.Errorf("material_price_region_id is required when include_material_offers or include_blueprint_resale is set")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request_delay must not be negative")
	}
	return nil
}

// RegionName returns the configured name of region id, or "Region <id>".
func (c *Config) RegionName(id int32) string {
	for _, r := range c.Regions {
		if r.ID == id {
			return r.Name
		}
	}
	return fmt.Sprintf("Region %d", id)
}

// RegionByName returns the configured region with the given name.
func (c *Config) RegionByName(name string) (Region, bool) {
	for _, r := range c.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}
