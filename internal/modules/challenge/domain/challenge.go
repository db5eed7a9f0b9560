package domain

import (
	"fmt"
	"strings"
)

type Challenge struct {
	ID                  string   `yaml:"id"`
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	Points              int      `yaml:"points"`
	DurationDays        int      `yaml:"duration_days"`
	ReflectionQuestions []string `yaml:"reflection_questions"`
}

func (c Challenge) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("challenge id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("challenge %s: title is required", c.ID)
	}
	if c.Points < 0 {
		return fmt.Errorf("challenge %s: points must be non-negative", c.ID)
	}
	return nil
}

// Index builds an id lookup and rejects duplicate or invalid entries.
func Index(challenges []Challenge) (map[string]Challenge, error) {
	out := make(map[string]Challenge, len(challenges))
	for _, c := range challenges {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[c.ID]; dup {
			return nil, fmt.Errorf("duplicate challenge id %s", c.ID)
		}
		out[c.ID] = c
	}
	return out, nil
}
