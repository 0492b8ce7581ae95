package mediasource

import (
	"context"
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/fudoniten/pseudovision/internal/model"
)

// Handshake is the go-plugin handshake both host and a future
// out-of-process syncer plugin must agree on. Generalized from the
// teacher's download-source plugin handshake to this module's
// media-source extension point.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "PSEUDOVISION_SYNCER_PLUGIN",
	MagicCookieValue: "pseudovision-media-sync",
}

// PluginMap is the go-plugin plugin set this host speaks; "syncer" is
// the only plugin kind exposed today.
var PluginMap = map[string]plugin.Plugin{
	"syncer": &SyncerPlugin{},
}

// SyncerPlugin adapts a Syncer to go-plugin's net/rpc transport: Server
// wraps a real, in-process Syncer for serving over RPC (for a
// subprocess that hosts one); Client is what the
// host gets back when dialing a subprocess plugin.
type SyncerPlugin struct {
	Impl Syncer
}

func (p *SyncerPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &syncerRPCServer{impl: p.Impl}, nil
}

func (p *SyncerPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &syncerRPCClient{client: c}, nil
}

// syncerRPCClient is the Syncer the host uses when the real
// implementation lives in a plugin subprocess; it marshals calls over
// net/rpc to a syncerRPCServer.
type syncerRPCClient struct {
	client *rpc.Client
}

func (c *syncerRPCClient) Sync(ctx context.Context, cfg model.ConnectionConfig) ([]DraftItem, error) {
	var resp []DraftItem
	if err := c.client.Call("Plugin.Sync", cfg, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// syncerRPCServer runs inside the plugin subprocess (or, for the two
// built-in kinds, is never actually exposed over RPC — they're called
// directly in-process) and dispatches net/rpc calls into a real Syncer.
type syncerRPCServer struct {
	impl Syncer
}

func (s *syncerRPCServer) Sync(cfg model.ConnectionConfig, resp *[]DraftItem) error {
	items, err := s.impl.Sync(context.Background(), cfg)
	if err != nil {
		return err
	}
	*resp = items
	return nil
}
