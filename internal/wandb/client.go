package wandb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resty.dev/v3"
)

const DefaultBaseURL = "https://api.wandb.ai"

// Config carries what the client needs to reach a W&B backend. Entity may be
// empty, in which case the server picks the account's default entity.
type Config struct {
	BaseURL string
	APIKey  string
	Entity  string
	Timeout time.Duration
}

// Client talks to the W&B backend over its graphql and file_stream
// endpoints. There is no official Go SDK; this covers the slice the sweep
// needs: create a run, stream history, set the summary, finish.
type Client struct {
	http   *resty.Client
	entity string
}

func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("wandb: api key is required (set WANDB_API_KEY)")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	hc := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth("api", config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{http: hc, entity: config.Entity}, nil
}

func (c *Client) Close() {
	c.http.Close()
}

// Run identifies a created W&B run. Name is the server-assigned short id used
// in file_stream paths; offset tracks how many history lines were streamed.
type Run struct {
	ID      string
	Name    string
	Entity  string
	Project string

	offset int
}

// The project argument maps to modelName: W&B's graphql schema still uses the
// legacy name.
const upsertBucketMutation = `
mutation UpsertBucket($entity: String, $project: String, $displayName: String, $config: JSONString) {
  upsertBucket(input: {entityName: $entity, modelName: $project, displayName: $displayName, config: $config}) {
    bucket {
      id
      name
      displayName
      project {
        name
        entity {
          name
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type upsertBucketResponse struct {
	Data struct {
		UpsertBucket struct {
			Bucket struct {
				ID          string `json:"id"`
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				Project     struct {
					Name   string `json:"name"`
					Entity struct {
						Name string `json:"name"`
					} `json:"entity"`
				} `json:"project"`
			} `json:"bucket"`
		} `json:"upsertBucket"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateRun registers a new run under the project. Config values are wrapped
// in the {"value": ...} envelope the W&B backend expects.
func (c *Client) CreateRun(ctx context.Context, project, displayName string, config map[string]any) (*Run, error) {
	wrapped := make(map[string]any, len(config))
	for k, v := range config {
		wrapped[k] = map[string]any{"value": v}
	}
	configJSON, err := json.Marshal(wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}

	req := graphQLRequest{
		Query: upsertBucketMutation,
		Variables: map[string]any{
			"entity":      orNil(c.entity),
			"project":     project,
			"displayName": displayName,
			"config":      string(configJSON),
		},
	}

	var out upsertBucketResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/graphql")
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to create run: status %d: %s", res.StatusCode(), res.String())
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("failed to create run: %s", out.Errors[0].Message)
	}

	bucket := out.Data.UpsertBucket.Bucket
	if bucket.Name == "" {
		return nil, fmt.Errorf("failed to create run: empty bucket in response")
	}
	return &Run{
		ID:      bucket.ID,
		Name:    bucket.Name,
		Entity:  bucket.Project.Entity.Name,
		Project: bucket.Project.Name,
	}, nil
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
