package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

const templateHeader = "# seqforge configuration\n" +
	"# scheduler.metrics selects \"random\" (ranges) or \"derived\" (engine-computed).\n" +
	"# Pin metrics per label with [[scheduler.overrides]] label = \"...\" metric_a = 0.5\n\n"

// Template renders Default in the requested format.
func Template(format Format) (string, error) {
	return Render(Default(), format)
}

// Render encodes cfg in the requested format.
func Render(cfg Config, format Format) (string, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case FormatTOML:
		body, err = toml.Marshal(cfg)
	case FormatYAML:
		body, err = yaml.Marshal(cfg)
	default:
		return "", fmt.Errorf("%w: unknown config format %q", ErrInvalidConfig, format)
	}
	if err != nil {
		return "", fmt.Errorf("config render failed (%s): %w", format, err)
	}
	return templateHeader + string(body), nil
}

func WriteTemplate(path string, format Format, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
