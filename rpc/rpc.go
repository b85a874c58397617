// Package rpc defines the tunneld.API gRPC service. Messages are protobuf
// well-known types, so there's no generated code; the service descriptor
// below is written by hand.
package rpc

import (
	"context"

	"github.com/minizivpn/tunneld/probe"
	"github.com/minizivpn/tunneld/route"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "tunneld.API"

// APIService is what the daemon implements.
type APIService interface {
	GetVersion(ctx context.Context) (string, error)
	Shutdown(ctx context.Context) error

	// GetRoutes returns the routes excluding addr, or the configured
	// upstream endpoint if addr is empty.
	GetRoutes(ctx context.Context, addr string) (route.Set, error)

	GetTransport(ctx context.Context) (probe.Report, error)

	// WatchTransport calls send with the current report and then with every
	// new one until ctx is done or send fails.
	WatchTransport(ctx context.Context, send func(probe.Report) error) error
}

// APIServer is the wire-level interface registered with grpc.
type APIServer interface {
	GetVersion(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetRoutes(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	GetTransport(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchTransport(*emptypb.Empty, grpc.ServerStream) error
}

type Server struct {
	apiService APIService
}

func NewAPIServer(apiService APIService) *Server {
	return &Server{
		apiService: apiService,
	}
}

func RegisterAPIServer(s *grpc.Server, srv APIServer) {
	s.RegisterService(&serviceDesc, srv)
}

func (s *Server) GetVersion(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error) {
	version, err := s.apiService.GetVersion(ctx)
	if err != nil {
		return nil, err
	}

	return wrapperspb.String(version), nil
}

func (s *Server) Shutdown(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	err := s.apiService.Shutdown(ctx)
	if err != nil {
		return nil, err
	}

	return &emptypb.Empty{}, nil
}

func (s *Server) GetRoutes(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	set, err := s.apiService.GetRoutes(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}

	return setToList(set), nil
}

func (s *Server) GetTransport(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	r, err := s.apiService.GetTransport(ctx)
	if err != nil {
		return nil, err
	}

	return reportToStruct(r)
}

func (s *Server) WatchTransport(req *emptypb.Empty, stream grpc.ServerStream) error {
	return s.apiService.WatchTransport(stream.Context(), func(r probe.Report) error {
		msg, err := reportToStruct(r)
		if err != nil {
			return err
		}

		return stream.SendMsg(msg)
	})
}

func unaryHandler[Req any, Resp proto.Message, PReq interface {
	*Req
	proto.Message
}](method string, call func(APIServer, context.Context, PReq) (Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + serviceName + "/" + method

	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(APIServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(APIServer), ctx, req.(PReq))
		}

		return interceptor(ctx, in, info, handler)
	}
}

func watchTransportHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(APIServer).WatchTransport(in, stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*APIServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetVersion",
			Handler:    unaryHandler("GetVersion", APIServer.GetVersion),
		},
		{
			MethodName: "Shutdown",
			Handler:    unaryHandler("Shutdown", APIServer.Shutdown),
		},
		{
			MethodName: "GetRoutes",
			Handler:    unaryHandler("GetRoutes", APIServer.GetRoutes),
		},
		{
			MethodName: "GetTransport",
			Handler:    unaryHandler("GetTransport", APIServer.GetTransport),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchTransport",
			Handler:       watchTransportHandler,
			ServerStreams: true,
		},
	},
	Metadata: "rpc.go",
}
