package grpc

import (
	"context"

	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/dto"
	"google.golang.org/grpc"
)

// ServiceName — полное имя gRPC-сервиса.
const ServiceName = "redemption.v1.RedemptionService"

const (
	issueMethod     = "/" + ServiceName + "/Issue"
	verifyPinMethod = "/" + ServiceName + "/VerifyPin"
	finalizeMethod  = "/" + ServiceName + "/Finalize"
)

// RedemptionServiceServer — серверная сторона RedemptionService.
type RedemptionServiceServer interface {
	Issue(context.Context, *dto.IssueRequest) (*dto.IssueResponse, error)
	VerifyPin(context.Context, *dto.VerifyPinRequest) (*dto.VerifyPinResponse, error)
	Finalize(context.Context, *dto.FinalizeRequest) (*dto.FinalizeResponse, error)
}

// RegisterRedemptionServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterRedemptionServiceServer(s grpc.ServiceRegistrar, srv RedemptionServiceServer) {
	s.RegisterService(&RedemptionServiceDesc, srv)
}

// RedemptionServiceDesc описывает unary-методы сервиса. Сообщения — структуры dto,
// кодируются CodecName.
var RedemptionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RedemptionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Issue", Handler: issueHandler},
		{MethodName: "VerifyPin", Handler: verifyPinHandler},
		{MethodName: "Finalize", Handler: finalizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "redemption/v1/redemption",
}

func issueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(dto.IssueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RedemptionServiceServer).Issue(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: issueMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedemptionServiceServer).Issue(ctx, req.(*dto.IssueRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func verifyPinHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(dto.VerifyPinRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RedemptionServiceServer).VerifyPin(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: verifyPinMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedemptionServiceServer).VerifyPin(ctx, req.(*dto.VerifyPinRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func finalizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(dto.FinalizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RedemptionServiceServer).Finalize(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: finalizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedemptionServiceServer).Finalize(ctx, req.(*dto.FinalizeRequest))
	}

	return interceptor(ctx, in, info, handler)
}

// Client — клиент RedemptionService; всегда вызывает методы с CodecName.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Issue(ctx context.Context, in *dto.IssueRequest, opts ...grpc.CallOption) (*dto.IssueResponse, error) {
	out := new(dto.IssueResponse)
	if err := c.cc.Invoke(ctx, issueMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) VerifyPin(ctx context.Context, in *dto.VerifyPinRequest, opts ...grpc.CallOption) (*dto.VerifyPinResponse, error) {
	out := new(dto.VerifyPinResponse)
	if err := c.cc.Invoke(ctx, verifyPinMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) Finalize(ctx context.Context, in *dto.FinalizeRequest, opts ...grpc.CallOption) (*dto.FinalizeResponse, error) {
	out := new(dto.FinalizeResponse)
	if err := c.cc.Invoke(ctx, finalizeMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
