// Package vectorutils constructs vector index backends from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/vector"
	"github.com/lumihq/recall/pkg/vector/chromem"
	"github.com/lumihq/recall/pkg/vector/qdrant"
	"github.com/lumihq/recall/pkg/vector/sqlitevec"
)

type NewIndexOpts struct {
	// ProviderType selects the backend: "chromem", "sqlite", or "qdrant".
	ProviderType string

	// Path is the on-disk location for embedded backends (chromem persist
	// directory, sqlite database file).
	Path string

	// Target is the server address for networked backends ("host:port"
	// for qdrant).
	Target string

	// APIKey authenticates networked backends when required.
	APIKey string

	// Collection names the collection for backends that have one.
	Collection string

	// Dimensions is the embedding dimension count.
	Dimensions uint

	Logger *zap.Logger
}

func NewIndex(ctx context.Context, o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "chromem":
		return chromem.NewIndex(chromem.Config{
			PersistDir:     o.Path,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     o.Path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		host, port, err := splitTarget(o.Target)
		if err != nil {
			return nil, err
		}
		return qdrant.NewIndex(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// splitTarget parses a "host:port" target. An empty target falls back to
// the backend's defaults.
func splitTarget(target string) (string, int, error) {
	if target == "" {
		return "", 0, nil
	}
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("invalid vector store target %q: %w", target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid vector store target port %q: %w", portStr, err)
	}
	return host, port, nil
}
