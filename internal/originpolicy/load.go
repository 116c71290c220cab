package originpolicy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays a YAML policy file on top of base. Only fields present
// in the file replace the base values, so env-derived defaults survive a
// partial file.
func LoadFile(path string, base Policy) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read origin policy file: %w", err)
	}
	var overlay Policy
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return base, fmt.Errorf("parse origin policy file: %w", err)
	}
	merged := base
	if overlay.Environment != "" {
		merged.Environment = overlay.Environment
	}
	if len(overlay.AllowedOrigins) > 0 {
		merged.AllowedOrigins = overlay.AllowedOrigins
	}
	if len(overlay.PublicRoutes) > 0 {
		merged.PublicRoutes = overlay.PublicRoutes
	}
	if len(overlay.StudioPrefixes) > 0 {
		merged.StudioPrefixes = overlay.StudioPrefixes
	}
	return merged, nil
}
