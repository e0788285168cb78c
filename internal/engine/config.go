package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/packagewjx/failure-insight/internal/analysis"
	"github.com/packagewjx/failure-insight/internal/remedy"
)

const (
	DefaultDBPath       = "failure-history.db"
	DefaultLookbackDays = 7
	DefaultMaxScanRows  = 50000
	DefaultDedupWindow  = time.Hour
)

// EngineConfig is the full configuration surface of the engine. The zero
// value plus Complete() yields a working single-file store in the working
// directory with default thresholds and unrestricted project access.
type EngineConfig struct {
	DBPath           string        // location of the persistent store
	LookbackDays     int           // default analysis window
	PatternThreshold int           // minimum occurrences for a project pattern
	MinSampleSize    int           // minimum outcomes before a historical solution surfaces
	AllowedProjects  []string      // project whitelist; empty or "*" means unrestricted
	MaxScanRows      int           // cap on rows scanned per analysis query
	DedupWindow      time.Duration // repeated-failure suppression window; 0 disables
	SpikeMultiplier  float64       // temporal spike sensitivity
	HotNodeRatio     float64       // failure-rate threshold for hot nodes
	MinNodeSample    int           // minimum failures before a node can be flagged
	MinImageSample   int           // minimum failures before an image is reported
	RulesFile        string        // remediation rule table; empty uses built-ins
}

func (c EngineConfig) String() string {
	marshal, _ := json.Marshal(c)
	return string(marshal)
}

// Complete validates the config and fills unset values with defaults, the
// same contract as a completed server config: after a nil return the config
// is fully usable.
func (c *EngineConfig) Complete() error {
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	if c.LookbackDays < 0 {
		return fmt.Errorf("lookback days must be positive, got %d", c.LookbackDays)
	}
	if c.PatternThreshold == 0 {
		c.PatternThreshold = analysis.DefaultPatternThreshold
	}
	if c.PatternThreshold < 0 {
		return fmt.Errorf("pattern threshold must be positive, got %d", c.PatternThreshold)
	}
	if c.MinSampleSize == 0 {
		c.MinSampleSize = remedy.DefaultMinSampleSize
	}
	if c.MinSampleSize < 0 {
		return fmt.Errorf("minimum sample size must be positive, got %d", c.MinSampleSize)
	}
	if c.MaxScanRows == 0 {
		c.MaxScanRows = DefaultMaxScanRows
	}
	if c.MaxScanRows < 0 {
		return fmt.Errorf("max scan rows must be positive, got %d", c.MaxScanRows)
	}
	if c.DedupWindow < 0 {
		return fmt.Errorf("dedup window must not be negative, got %s", c.DedupWindow)
	}
	if c.SpikeMultiplier == 0 {
		c.SpikeMultiplier = analysis.DefaultSpikeMultiplier
	}
	if c.HotNodeRatio == 0 {
		c.HotNodeRatio = analysis.DefaultHotNodeRatio
	}
	if c.MinNodeSample == 0 {
		c.MinNodeSample = analysis.DefaultMinNodeSample
	}
	if c.MinImageSample == 0 {
		c.MinImageSample = analysis.DefaultMinImageSample
	}
	return nil
}

// unrestricted reports whether the whitelist allows every project.
func (c *EngineConfig) unrestricted() bool {
	if len(c.AllowedProjects) == 0 {
		return true
	}
	for _, p := range c.AllowedProjects {
		if p == "*" {
			return true
		}
	}
	return false
}

func (c *EngineConfig) projectAllowed(project string) bool {
	if c.unrestricted() {
		return true
	}
	for _, p := range c.AllowedProjects {
		if p == project {
			return true
		}
	}
	return false
}
