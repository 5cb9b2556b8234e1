package riverbend

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// serviceDiscovery mirrors the deployment format used on Riverbend stacks,
// where each service id maps to a single-element list containing the base URL.
//
// Example (YAML):
//
//	session_service:
//	  - https://<stack>.riverbend.dev/api
type serviceDiscovery map[string][]string

// Services contains the discovered Riverbend service base URLs to call.
type Services struct {
	SessionService string
}

func loadServicesFromDiscoveryFile(path string) (Services, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Services{}, fmt.Errorf("RIVERBEND_SERVICE_DISCOVERY is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Services{}, fmt.Errorf("read RIVERBEND_SERVICE_DISCOVERY file: %w", err)
	}

	var raw serviceDiscovery
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Services{}, fmt.Errorf("parse RIVERBEND_SERVICE_DISCOVERY YAML: %w", err)
	}

	vals, ok := raw["session_service"]
	if !ok || len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return Services{}, fmt.Errorf("RIVERBEND_SERVICE_DISCOVERY missing session_service")
	}

	return Services{SessionService: strings.TrimSpace(vals[0])}, nil
}
