package out

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	pluginrpc "companion/internal/modules/session/adapter/out/rpc"
	sessionout "companion/internal/modules/session/port/out"
	apperrors "companion/internal/platform/errors"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const defaultStartTimeout = 3 * time.Second

// PluginAudioPrecacher forwards precache requests to an out-of-process
// plugin. The plugin is started on first use and kept until Close.
type PluginAudioPrecacher struct {
	binary   string
	cacheDir string
	logger   hclog.Logger

	mu     sync.Mutex
	client *plugin.Client
	rpc    pluginrpc.PrecacheClient
}

func NewPluginAudioPrecacher(binary, cacheDir string, logger hclog.Logger) *PluginAudioPrecacher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PluginAudioPrecacher{binary: binary, cacheDir: cacheDir, logger: logger.Named("precache")}
}

var _ sessionout.AudioPrecacher = (*PluginAudioPrecacher)(nil)

func (p *PluginAudioPrecacher) Precache(ctx context.Context, libraryIDs []string) error {
	client, err := p.connect()
	if err != nil {
		return err
	}
	resp, err := client.Precache(ctx, &pluginrpc.PrecacheRequest{LibraryIDs: libraryIDs, CacheDir: p.cacheDir})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %d modules", apperrors.ErrPrecacheTimeout, len(libraryIDs))
		}
		p.reset()
		return fmt.Errorf("precache: %w", err)
	}
	p.logger.Debug("precache done", "cached", len(resp.Cached), "skipped", len(resp.Skipped))
	return nil
}

// Metadata reports the plugin's name and version.
func (p *PluginAudioPrecacher) Metadata(ctx context.Context) (pluginrpc.Metadata, error) {
	client, err := p.connect()
	if err != nil {
		return pluginrpc.Metadata{}, err
	}
	meta, err := client.GetMetadata(ctx)
	if err != nil {
		return pluginrpc.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	return *meta, nil
}

func (p *PluginAudioPrecacher) Close() {
	p.reset()
}

func (p *PluginAudioPrecacher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Kill()
	}
	p.client = nil
	p.rpc = nil
}

func (p *PluginAudioPrecacher) connect() (pluginrpc.PrecacheClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rpc != nil {
		return p.rpc, nil
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          pluginrpc.PluginMap(nil),
		Cmd:              exec.Command(p.binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           p.logger,
	})
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start precache plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense precache plugin: %w", err)
	}
	typed, ok := raw.(pluginrpc.PrecacheClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("precache rpc client type mismatch")
	}
	p.client = client
	p.rpc = typed
	return typed, nil
}

// NoopAudioPrecacher is used when no plugin is configured.
type NoopAudioPrecacher struct{}

func (NoopAudioPrecacher) Precache(context.Context, []string) error { return nil }
