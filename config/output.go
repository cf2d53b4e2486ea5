package config

import (
	"errors"
	"path/filepath"
	"time"
)

// RunDirLayout names run directories after their start time.
const RunDirLayout = "2006-01-02 15-04-05"

// OutputConfig locates run directories.
type OutputConfig struct {
	Dir string `json:"dir"`
}

func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
}

func (c OutputConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("dir is required")
	}
	return nil
}

// RunDir returns the directory of a run started at t.
func (c OutputConfig) RunDir(t time.Time) string {
	return filepath.Join(c.Dir, t.Format(RunDirLayout))
}

// VisualizerConfig toggles net rendering during runs.
type VisualizerConfig struct {
	Enabled bool `json:"enabled"`
}

// ServerConfig configures the results API.
type ServerConfig struct {
	Addr string `json:"addr"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
