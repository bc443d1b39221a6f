package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe client with connection checks and retried commands.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

func NewClient(address string, requestTimeout time.Duration) (*Client, error) {
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         requestTimeout,
		RetryConfig:            DefaultRetryConfig,
	})
}

func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: config}, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// StartProcess creates an instance of the latest deployed version of processID.
func (c *Client) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	result, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return nil, err
		}
		reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		return cmd.Send(reqCtx)
	}, "create-instance")
	if err != nil {
		return 0, err
	}

	resp, ok := result.(*pb.CreateProcessInstanceResponse)
	if !ok || resp == nil {
		return 0, fmt.Errorf("unexpected create-instance response")
	}
	return resp.GetProcessInstanceKey(), nil
}

// ExecuteWithRetry retries transport failures with exponential backoff.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableZeebeError(err) || attempt == c.config.RetryConfig.MaxRetries {
			return nil, fmt.Errorf("zeebe operation '%s' failed after %d attempts: %w", operationName, attempt+1, err)
		}

		delay := c.config.RetryConfig.BaseDelay * time.Duration(1<<attempt)
		if delay > c.config.RetryConfig.MaxDelay {
			delay = c.config.RetryConfig.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("operation %s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
	}

	return nil, fmt.Errorf("operation %s failed: %w", operationName, lastErr)
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
