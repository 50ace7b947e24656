package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"ec2-pricing/internal/document"
	"ec2-pricing/internal/instancetypes"
	"ec2-pricing/pkg/models"
)

const redisCachePrefix = "ec2-pricing:document"

func newDocumentCache(cfg *Config) (document.Cache, error) {
	switch {
	case cfg.RedisAddr != "":
		client, err := document.NewRedisUniversalClient(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return document.NewRedisCache(client, redisCachePrefix, cfg.CacheTTL), nil
	case cfg.CacheDir != "":
		return document.NewFileCache(cfg.CacheDir, cfg.CacheTTL), nil
	default:
		return nil, nil
	}
}

// loadInstanceTypes fetches and parses the instance types document.
func loadInstanceTypes(ctx context.Context, cfg *Config) ([]models.InstanceType, error) {
	cache, err := newDocumentCache(cfg)
	if err != nil {
		return nil, err
	}
	fetcher := document.NewFetcher(document.NewHTTPClient(document.NewDefaultRetryConfig()), cache)

	doc, err := document.Load(ctx, fetcher, cfg.Source)
	if err != nil {
		return nil, err
	}
	types := instancetypes.NewParser(instancetypes.WithFamilyRules(cfg.Families)).Parse(doc)
	if len(types) == 0 {
		logrus.Warnf("no instance types found in %s", cfg.Source)
	}
	return types, nil
}
