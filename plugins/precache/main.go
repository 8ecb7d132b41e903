package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	pluginrpc "companion/internal/modules/session/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
)

// server stands in for an audio downloader: each module gets a marker file in
// the cache dir and modules already cached are skipped.
type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{Name: "precache-reference", Version: "1.0.0"}, nil
}

func (s *server) Precache(ctx context.Context, in *pluginrpc.PrecacheRequest) (*pluginrpc.PrecacheResponse, error) {
	if strings.TrimSpace(in.CacheDir) == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	out := &pluginrpc.PrecacheResponse{}
	for _, id := range in.LibraryIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(in.CacheDir, id+".cached")
		if _, err := os.Stat(path); err == nil {
			out.Skipped = append(out.Skipped, id)
			continue
		}
		if err := os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("cache %s: %w", id, err)
		}
		out.Cached = append(out.Cached, id)
	}
	return out, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
