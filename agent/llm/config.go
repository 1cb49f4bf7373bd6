package llm

import (
	"fmt"
	"strings"

	contractx "github.com/smartinbox/server/agent/contract"
	openrouterx "github.com/smartinbox/server/pkg/openrouter"
)

// RoleClass names the handler groups a model override can target.
type RoleClass string

const (
	RoleDomain     RoleClass = "domain"
	RoleClassifier RoleClass = "classifier"
	RoleComposer   RoleClass = "composer"
)

// Config extends the base OpenRouter settings with optional per-role
// model and temperature overrides. The classifier benefits from a
// cheaper deterministic model; the composer from a more fluent one.
type Config struct {
	openrouterx.Config

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	ComposerModel         string  `envconfig:"COMPOSER_MODEL" split_words:"true"`
	ClassifierTemperature float64 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"-1"`
	ComposerTemperature   float64 `envconfig:"COMPOSER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the effective connection settings for a role.
func (c Config) OpenRouterFor(role RoleClass) openrouterx.Config {
	out := c.Config
	out.Model = strings.TrimSpace(c.Model)

	switch role {
	case RoleClassifier:
		if v := strings.TrimSpace(c.ClassifierModel); v != "" {
			out.Model = v
		}
		if c.ClassifierTemperature >= 0 {
			out.Temperature = c.ClassifierTemperature
		}
	case RoleComposer:
		if v := strings.TrimSpace(c.ComposerModel); v != "" {
			out.Model = v
		}
		if c.ComposerTemperature >= 0 {
			out.Temperature = c.ComposerTemperature
		}
	}
	return out
}
