package serve

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

// ToolServiceName is the fully-qualified gRPC service name.
const ToolServiceName = "sarcasm.v1.ToolService"

const (
	listToolsMethod = "/" + ToolServiceName + "/ListTools"
	callToolMethod  = "/" + ToolServiceName + "/CallTool"
)

// ToolServiceServer is the server API for the ToolService.
//
// ListTools returns Struct{tools: [descriptor...]}. CallTool takes
// Struct{name, arguments} and returns Struct{content}.
type ToolServiceServer interface {
	ListTools(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CallTool(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ToolServiceDesc describes the ToolService for grpc.Server.RegisterService.
var ToolServiceDesc = grpc.ServiceDesc{
	ServiceName: ToolServiceName,
	HandlerType: (*ToolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListTools",
			Handler:    listToolsHandler,
		},
		{
			MethodName: "CallTool",
			Handler:    callToolHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sarcasm/v1/tools.proto",
}

// RegisterToolService registers a ToolService backed by d on s.
func RegisterToolService(s grpc.ServiceRegistrar, d *dispatch.Dispatcher) {
	s.RegisterService(&ToolServiceDesc, &toolService{dispatcher: d})
}

func listToolsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServiceServer).ListTools(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: listToolsMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolServiceServer).ListTools(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func callToolHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServiceServer).CallTool(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: callToolMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolServiceServer).CallTool(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type toolService struct {
	dispatcher *dispatch.Dispatcher
}

func (s *toolService) ListTools(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	tools, err := jsonValue(s.dispatcher.ListTools())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode tools: %v", err)
	}
	out, err := structpb.NewStruct(map[string]any{"tools": tools})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode tools: %v", err)
	}
	return out, nil
}

func (s *toolService) CallTool(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.dispatcher.Call(ctx, req)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}

	content, err := jsonValue(res.Content)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode content: %v", err)
	}
	value, err := structpb.NewValue(content)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode content: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"content": value}}, nil
}

func requestFromStruct(in *structpb.Struct) (dispatch.Request, error) {
	fields := in.AsMap()

	name, ok := fields["name"].(string)
	if !ok {
		return dispatch.Request{}, fmt.Errorf("name must be a string, got %T", fields["name"])
	}

	req := dispatch.Request{Name: name}
	switch args := fields["arguments"].(type) {
	case nil:
	case map[string]any:
		req.Arguments = args
	default:
		return dispatch.Request{}, fmt.Errorf("arguments must be an object, got %T", args)
	}
	return req, nil
}

func grpcCode(err error) codes.Code {
	switch toolerr.CodeOf(err) {
	case toolerr.ErrCodeInvalidInput, toolerr.ErrCodeMalformedRequest:
		return codes.InvalidArgument
	case toolerr.ErrCodeTimeout:
		return codes.DeadlineExceeded
	case toolerr.ErrCodeDependencyMissing:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// jsonValue converts v into the JSON-like values structpb accepts.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToolServiceClient is the client API for the ToolService.
type ToolServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewToolServiceClient returns a client over cc.
func NewToolServiceClient(cc grpc.ClientConnInterface) *ToolServiceClient {
	return &ToolServiceClient{cc: cc}
}

// ListTools returns the tool descriptors as decoded JSON objects.
func (c *ToolServiceClient) ListTools(ctx context.Context, opts ...grpc.CallOption) ([]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listToolsMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	tools, _ := out.AsMap()["tools"].([]any)
	return tools, nil
}

// CallTool invokes name and returns the result envelope.
func (c *ToolServiceClient) CallTool(ctx context.Context, name string, args map[string]any, opts ...grpc.CallOption) (dispatch.Result, error) {
	fields := map[string]any{"name": name}
	if args != nil {
		normalized, err := jsonValue(args)
		if err != nil {
			return dispatch.Result{}, fmt.Errorf("encode arguments: %w", err)
		}
		fields["arguments"] = normalized
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("encode request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, callToolMethod, in, out, opts...); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Result{Content: out.AsMap()["content"]}, nil
}
