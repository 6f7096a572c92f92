package config

// CacheConfig locates the on-disk cache tree that every stage reads and
// writes. All paths produced by the pipeline live under Root.
type CacheConfig struct {
	Root string `yaml:"root" validate:"required"`
}

// StopsConfig describes the authoritative public transport stops table and
// the filtering rules applied to it.
type StopsConfig struct {
	Path string `yaml:"path" validate:"required"`
	// ExcludeNamePattern drops stops whose name contains this substring
	// (temporary rail replacement services in the source dataset).
	ExcludeNamePattern string `yaml:"excludeNamePattern"`
	// TransitModes is the ordered set of transit modes whose stops get
	// isochrones fetched. Order defines fetch priority.
	TransitModes []string `yaml:"transitModes" validate:"min=1"`
	// BoundaryModes are the transit modes whose stops select administrative
	// boundaries for the boundary union.
	BoundaryModes []string `yaml:"boundaryModes" validate:"min=1"`
	// ExcludeModes are dropped by the spatial filter before the containment
	// test (bus-like modes in the source dataset).
	ExcludeModes []string `yaml:"excludeModes"`
}

// BoundariesConfig locates the administrative boundary datasets.
type BoundariesConfig struct {
	Dir string `yaml:"dir" validate:"required"`
	// Primary names the dataset (file stem) whose union feeds the spatial
	// filter. Empty means the first dataset in name order.
	Primary string `yaml:"primary"`
}

// APIConfig configures the isochrone provider client. The access token is
// deliberately absent: it comes from the environment, never from YAML.
type APIConfig struct {
	BaseURL        string `yaml:"baseURL" validate:"required,url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" validate:"gte=0"`
	MaxRetries     int    `yaml:"maxRetries" validate:"gte=0"`
	BackoffFactor  int    `yaml:"backoffFactor" validate:"gte=0"`
	// PauseSeconds is the politeness pause between successful fetches.
	PauseSeconds int `yaml:"pauseSeconds" validate:"gte=0"`
}

// IsochroneConfig controls which isochrones are fetched and how they are
// bucketed into tiers.
type IsochroneConfig struct {
	// Modes are the travel modes isochrones are computed for.
	Modes []string `yaml:"modes" validate:"min=1"`
	// Tiers are the travel-time buckets in minutes. A feature whose minutes
	// value is not an exact member never reaches a consolidated output.
	Tiers []int `yaml:"tiers" validate:"min=1"`
	// Profiles maps a travel mode to the provider's routing profile name.
	Profiles map[string]string `yaml:"profiles" validate:"min=1"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Cache      CacheConfig      `yaml:"cache" validate:"required"`
	Stops      StopsConfig      `yaml:"stops" validate:"required"`
	Boundaries BoundariesConfig `yaml:"boundaries" validate:"required"`
	API        APIConfig        `yaml:"api" validate:"required"`
	Isochrones IsochroneConfig  `yaml:"isochrones" validate:"required"`
	Log        LogConfig        `yaml:"log"`
}

// TierSet returns the configured tiers as a membership set.
func (c IsochroneConfig) TierSet() map[int]bool {
	s := make(map[int]bool, len(c.Tiers))
	for _, t := range c.Tiers {
		s[t] = true
	}
	return s
}
