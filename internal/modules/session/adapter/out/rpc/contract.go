package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "precache"
	serviceName       = "companion.precache.v1.AudioPrecache"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodPrecache    = "/" + serviceName + "/Precache"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "COMPANION_PLUGIN",
	MagicCookieValue: "companion-precache",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type PrecacheRequest struct {
	LibraryIDs []string `json:"library_ids"`
	CacheDir   string   `json:"cache_dir"`
}

type PrecacheResponse struct {
	Cached  []string `json:"cached"`
	Skipped []string `json:"skipped"`
}

type PrecacheServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Precache(ctx context.Context, in *PrecacheRequest) (*PrecacheResponse, error)
}

type PrecacheClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Precache(ctx context.Context, in *PrecacheRequest) (*PrecacheResponse, error)
}

type precacheClient struct {
	conn *grpc.ClientConn
}

func NewPrecacheClient(conn *grpc.ClientConn) PrecacheClient {
	return &precacheClient{conn: conn}
}

func (c *precacheClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *precacheClient) Precache(ctx context.Context, in *PrecacheRequest) (*PrecacheResponse, error) {
	out := &PrecacheResponse{}
	if err := c.conn.Invoke(ctx, methodPrecache, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler adapts a typed method to grpc.MethodDesc, honoring interceptors.
func unaryHandler[Req any, Resp any](fullMethod string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterPrecacheServer(server grpc.ServiceRegistrar, impl PrecacheServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*PrecacheServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetMetadata", Handler: unaryHandler(methodGetMetadata, impl.GetMetadata)},
			{MethodName: "Precache", Handler: unaryHandler(methodPrecache, impl.Precache)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/precache-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl PrecacheServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterPrecacheServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewPrecacheClient(conn), nil
}

func PluginMap(impl PrecacheServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
