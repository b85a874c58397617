package rpc

import (
	"context"
	"errors"
	"io"

	"github.com/minizivpn/tunneld/probe"
	"github.com/minizivpn/tunneld/route"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type APIClient struct {
	cc grpc.ClientConnInterface
}

func NewAPIClient(cc grpc.ClientConnInterface) *APIClient {
	return &APIClient{cc: cc}
}

func method(name string) string {
	return "/" + serviceName + "/" + name
}

func (c *APIClient) GetVersion(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, method("GetVersion"), &emptypb.Empty{}, out, opts...)
	if err != nil {
		return "", err
	}

	return out.GetValue(), nil
}

func (c *APIClient) Shutdown(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, method("Shutdown"), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

func (c *APIClient) GetRoutes(ctx context.Context, addr string, opts ...grpc.CallOption) (route.Set, error) {
	out := new(structpb.ListValue)
	err := c.cc.Invoke(ctx, method("GetRoutes"), wrapperspb.String(addr), out, opts...)
	if err != nil {
		return nil, err
	}

	return listToSet(out)
}

func (c *APIClient) GetTransport(ctx context.Context, opts ...grpc.CallOption) (probe.Report, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, method("GetTransport"), &emptypb.Empty{}, out, opts...)
	if err != nil {
		return probe.Report{}, err
	}

	return structToReport(out)
}

// WatchTransport calls fn for every report the server sends until ctx is
// done, the server ends the stream, or fn returns an error.
func (c *APIClient) WatchTransport(ctx context.Context, fn func(probe.Report) error, opts ...grpc.CallOption) error {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], method("WatchTransport"), opts...)
	if err != nil {
		return err
	}

	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}

	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		r, err := structToReport(msg)
		if err != nil {
			return err
		}

		if err := fn(r); err != nil {
			return err
		}
	}
}
