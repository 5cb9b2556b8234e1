package riverbend

import (
	"fmt"
	"os"
	"strings"
)

// Env is the runtime configuration needed to reach a Riverbend stack.
type Env struct {
	// Services contains the discovered Riverbend service base URLs to call.
	Services Services
	// DefaultCAPath is the path to a PEM bundle that should be trusted for TLS.
	// On managed stacks this is provided via DEFAULT_CA_PATH.
	DefaultCAPath string
	Token         string
}

// LoadEnv reads the required client env vars.
//
// Required:
//   - RIVERBEND_TOKEN (file path)
//   - RIVERBEND_SERVICE_DISCOVERY (file path) or RIVERBEND_URL
func LoadEnv() (Env, error) {
	services, err := loadServicesFromEnv()
	if err != nil {
		return Env{}, err
	}
	defaultCAPath := strings.TrimSpace(os.Getenv("DEFAULT_CA_PATH"))

	token, err := readFileEnv("RIVERBEND_TOKEN")
	if err != nil {
		return Env{}, err
	}

	return Env{
		Services:      services,
		DefaultCAPath: defaultCAPath,
		Token:         token,
	}, nil
}

// NewClientFromEnv is shorthand for LoadEnv followed by NewClient.
func NewClientFromEnv() (*Client, error) {
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(env.Services.SessionService, env.Token, env.DefaultCAPath)
}

func loadServicesFromEnv() (Services, error) {
	if p := strings.TrimSpace(os.Getenv("RIVERBEND_SERVICE_DISCOVERY")); p != "" {
		return loadServicesFromDiscoveryFile(p)
	}

	// Back-compat: allow explicit RIVERBEND_URL when service discovery is not present.
	riverbendURL := strings.TrimSpace(os.Getenv("RIVERBEND_URL"))
	if riverbendURL == "" {
		return Services{}, fmt.Errorf("RIVERBEND_SERVICE_DISCOVERY or RIVERBEND_URL is required")
	}
	if !strings.Contains(riverbendURL, "://") {
		riverbendURL = "https://" + riverbendURL
	}
	riverbendURL = strings.TrimRight(riverbendURL, "/")

	return Services{
		SessionService: riverbendURL + "/api",
	}, nil
}

func readFileEnv(varName string) (string, error) {
	path := strings.TrimSpace(os.Getenv(varName))
	if path == "" {
		return "", fmt.Errorf("%s is required", varName)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s file: %w", varName, err)
	}
	return strings.TrimSpace(string(b)), nil
}
