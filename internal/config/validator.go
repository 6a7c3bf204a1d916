package config

import (
	"fmt"
	"strconv"
	"strings"
)

// validLogLevels are the accepted log level names.
var validLogLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

// Validate checks the configuration for values that would break the service
// at runtime. It collects every problem instead of stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Port) == "" {
		problems = append(problems, "port must not be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("port %q is not a valid TCP port", c.Port))
	}

	if !validLogLevels[strings.ToUpper(c.LogLevel)] {
		problems = append(problems, fmt.Sprintf("log level %q is not one of DEBUG/INFO/WARN/ERROR", c.LogLevel))
	}

	if c.ComparisonPeriodDays < 1 {
		problems = append(problems, "comparison period days must be at least 1")
	}

	if strings.TrimSpace(c.NotFoundShippingLabel) == "" {
		problems = append(problems, "not-found shipping label must not be empty")
	}

	if c.MaxUploadBytes < 1 {
		problems = append(problems, "max upload bytes must be positive")
	}

	if c.RateLimitPerSec < 1 {
		problems = append(problems, "rate limit per second must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
