package api

import (
	"context"

	"github.com/minizivpn/tunneld/probe"
	"github.com/minizivpn/tunneld/route"
	"github.com/minizivpn/tunneld/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Client struct {
	*grpc.ClientConn
	rpcClient *rpc.APIClient
}

func NewClient(socketPath string) (*Client, error) {
	return dial("unix://" + socketPath)
}

func dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		ClientConn: conn,
		rpcClient:  rpc.NewAPIClient(conn),
	}, nil
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	return c.rpcClient.GetVersion(ctx)
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.rpcClient.Shutdown(ctx)
}

// GetRoutes asks the daemon for the routes that exclude addr. An empty addr
// means the daemon's configured upstream endpoint.
func (c *Client) GetRoutes(ctx context.Context, addr string) (route.Set, error) {
	return c.rpcClient.GetRoutes(ctx, addr)
}

func (c *Client) GetTransport(ctx context.Context) (probe.Report, error) {
	return c.rpcClient.GetTransport(ctx)
}

func (c *Client) WatchTransport(ctx context.Context, fn func(probe.Report) error) error {
	return c.rpcClient.WatchTransport(ctx, fn)
}
