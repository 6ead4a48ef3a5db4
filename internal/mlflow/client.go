package mlflow

import (
	"fmt"
	"strings"

	"github.com/databricks/databricks-sdk-go"
)

// Config points the client at an MLflow tracking backend: a plain tracking
// server URL, "databricks", "databricks://{profile}", or a Databricks
// workspace URL.
type Config struct {
	TrackingURI string
	// Token authenticates against Databricks-backed tracking. Ignored for
	// plain MLflow servers.
	Token string
}

func (c Config) IsDatabricks() bool {
	return c.TrackingURI == "databricks" ||
		strings.HasPrefix(c.TrackingURI, "databricks://") ||
		strings.Contains(c.TrackingURI, "databricks.com")
}

func (c Config) databricksProfile() string {
	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return strings.TrimPrefix(c.TrackingURI, "databricks://")
	}
	return ""
}

// Client wraps the Databricks workspace client, which speaks the MLflow
// tracking API against both Databricks and plain MLflow servers.
type Client struct {
	client *databricks.WorkspaceClient
	config Config
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.TrackingURI == "" {
		return nil, fmt.Errorf("tracking URI is required (set MLFLOW_TRACKING_URI)")
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}
		if cfg.TrackingURI == "databricks" {
			// Host and auth come from the ambient DATABRICKS_* environment.
		} else if profile := cfg.databricksProfile(); profile != "" {
			databricksConfig.Profile = profile
		} else {
			databricksConfig.Host = cfg.TrackingURI
		}
		if cfg.Token != "" {
			databricksConfig.Token = cfg.Token
		}
	} else {
		databricksConfig = &databricks.Config{
			Host: cfg.TrackingURI,
			// For regular MLflow server, use a dummy token to bypass authentication
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}
