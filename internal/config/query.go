package config

import (
	"fmt"
	"time"
)

// QueryConfig bounds the individual stages of a question workflow.
type QueryConfig struct {
	BranchTimeout    time.Duration `toml:"branch_timeout"`
	JudgeTimeout     time.Duration `toml:"judge_timeout"`
	VisionTimeout    time.Duration `toml:"vision_timeout"`
	SynthesisTimeout time.Duration `toml:"synthesis_timeout"`
	RetrieveK        int           `toml:"retrieve_k"`
}

func (c *QueryConfig) Finalize() error {
	c.loadDefaults()
	return c.validate()
}

func (c *QueryConfig) Merge(overlay *QueryConfig) {
	if overlay.BranchTimeout != 0 {
		c.BranchTimeout = overlay.BranchTimeout
	}
	if overlay.JudgeTimeout != 0 {
		c.JudgeTimeout = overlay.JudgeTimeout
	}
	if overlay.VisionTimeout != 0 {
		c.VisionTimeout = overlay.VisionTimeout
	}
	if overlay.SynthesisTimeout != 0 {
		c.SynthesisTimeout = overlay.SynthesisTimeout
	}
	if overlay.RetrieveK != 0 {
		c.RetrieveK = overlay.RetrieveK
	}
}

func (c *QueryConfig) loadDefaults() {
	if c.BranchTimeout == 0 {
		c.BranchTimeout = 20 * time.Second
	}
	if c.JudgeTimeout == 0 {
		c.JudgeTimeout = 15 * time.Second
	}
	if c.VisionTimeout == 0 {
		c.VisionTimeout = 60 * time.Second
	}
	if c.SynthesisTimeout == 0 {
		c.SynthesisTimeout = 60 * time.Second
	}
	if c.RetrieveK == 0 {
		c.RetrieveK = 4
	}
}

func (c *QueryConfig) validate() error {
	if c.RetrieveK < 1 {
		return fmt.Errorf("invalid retrieve_k: %d", c.RetrieveK)
	}
	return nil
}
