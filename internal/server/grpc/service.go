package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the collaborator service.
const ServiceName = "gophdrive.v1.Collaborator"

const (
	MethodGrantBonus       = "/" + ServiceName + "/GrantBonus"
	MethodAssignTier       = "/" + ServiceName + "/AssignTier"
	MethodIssueSpecialCode = "/" + ServiceName + "/IssueSpecialCode"
	MethodIssueFoundCode   = "/" + ServiceName + "/IssueFoundCode"
	MethodIssueAccessToken = "/" + ServiceName + "/IssueAccessToken"
)

// CollaboratorServer is implemented by services trusted to change quota
// state on behalf of other parts of the product. Requests and replies are
// free-form structs so the surface can grow without regenerating code.
type CollaboratorServer interface {
	GrantBonus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignTier(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IssueSpecialCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IssueFoundCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IssueAccessToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterCollaboratorServer(s grpc.ServiceRegistrar, srv CollaboratorServer) {
	s.RegisterService(&Collaborator_ServiceDesc, srv)
}

func unaryHandler(method string, call func(CollaboratorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CollaboratorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CollaboratorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Collaborator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CollaboratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GrantBonus",
			Handler:    unaryHandler(MethodGrantBonus, CollaboratorServer.GrantBonus),
		},
		{
			MethodName: "AssignTier",
			Handler:    unaryHandler(MethodAssignTier, CollaboratorServer.AssignTier),
		},
		{
			MethodName: "IssueSpecialCode",
			Handler:    unaryHandler(MethodIssueSpecialCode, CollaboratorServer.IssueSpecialCode),
		},
		{
			MethodName: "IssueFoundCode",
			Handler:    unaryHandler(MethodIssueFoundCode, CollaboratorServer.IssueFoundCode),
		},
		{
			MethodName: "IssueAccessToken",
			Handler:    unaryHandler(MethodIssueAccessToken, CollaboratorServer.IssueAccessToken),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// CollaboratorClient is the client side of the collaborator service.
type CollaboratorClient interface {
	GrantBonus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AssignTier(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	IssueSpecialCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	IssueFoundCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	IssueAccessToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type collaboratorClient struct {
	cc grpc.ClientConnInterface
}

func NewCollaboratorClient(cc grpc.ClientConnInterface) CollaboratorClient {
	return &collaboratorClient{cc}
}

func (c *collaboratorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *collaboratorClient) GrantBonus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGrantBonus, in, opts...)
}

func (c *collaboratorClient) AssignTier(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAssignTier, in, opts...)
}

func (c *collaboratorClient) IssueSpecialCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodIssueSpecialCode, in, opts...)
}

func (c *collaboratorClient) IssueFoundCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodIssueFoundCode, in, opts...)
}

func (c *collaboratorClient) IssueAccessToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodIssueAccessToken, in, opts...)
}
