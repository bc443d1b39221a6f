package database

import (
	"context"
	"fmt"

	"deal-wizard/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient serves the parcels index used for neighbor lookups.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}

	esCfg := elasticsearch.Config{Addresses: addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}
