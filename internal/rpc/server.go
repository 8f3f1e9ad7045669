package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/funvibe/irslots/internal/config"
	"github.com/funvibe/irslots/internal/irvar"
	"github.com/funvibe/irslots/internal/layout"
	"github.com/funvibe/irslots/internal/pipeline"
)

// requestPath names inline layouts in error messages.
const requestPath = "request"

// Server serves SlotNaming.
type Server struct {
	grpc *grpc.Server
	sd   *desc.ServiceDescriptor
}

// NewServer builds a gRPC server with the SlotNaming service registered.
func NewServer(opts ...grpc.ServerOption) (*Server, error) {
	sd, err := loadService()
	if err != nil {
		return nil, err
	}
	s := &Server{grpc: grpc.NewServer(opts...), sd: sd}

	serviceDesc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods:     []grpc.MethodDesc{},
		Streams:     []grpc.StreamDesc{},
		Metadata:    sd.GetFile().GetName(),
	}
	for _, method := range sd.GetMethods() {
		md := method
		serviceDesc.Methods = append(serviceDesc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				h := srv.(*Server)
				if interceptor == nil {
					return h.handleUnary(ctx, md, dec)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + md.GetName()}
				return interceptor(ctx, nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
					return h.handleUnary(ctx, md, dec)
				})
			},
		})
	}
	s.grpc.RegisterService(serviceDesc, s)
	if !config.IsTestMode {
		log.Printf("registered %s with %d methods", ServiceName, len(serviceDesc.Methods))
	}
	return s, nil
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	log.Printf("serving %s on %s", ServiceName, lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop waits for pending requests and shuts the server down.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func (s *Server) handleUnary(ctx context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	inMsg := dynamic.NewMessage(md.GetInputType())
	if err := dec(inMsg); err != nil {
		return nil, err
	}

	source, _ := inMsg.GetFieldByName("layout").(string)
	binding, _ := inMsg.GetFieldByName("binding").(int32)
	var path []string
	if md.GetName() == "Part" {
		path = stringList(inMsg.GetFieldByName("path"))
	}

	listing, err := nameBinding(source, int(binding), path)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outMsg := dynamic.NewMessage(md.GetOutputType())
	components := make([]interface{}, len(listing.Components))
	for i, c := range listing.Components {
		components[i] = c
	}
	outMsg.SetFieldByName("label", listing.Label)
	outMsg.SetFieldByName("base_name", listing.BaseName)
	outMsg.SetFieldByName("type", listing.Type)
	outMsg.SetFieldByName("components", components)
	outMsg.SetFieldByName("list", listing.List)
	outMsg.SetFieldByName("size", int32(len(listing.Components)))
	return outMsg, nil
}

// nameBinding resolves an inline layout document and names one of its
// bindings, optionally narrowed by path.
func nameBinding(source string, binding int, path []string) (pipeline.Listing, error) {
	ctx := pipeline.NewPipelineContext(requestPath)
	ctx.Source = []byte(source)
	ctx = layout.NewProcessor().Process(ctx)
	if ctx.Failed() {
		return pipeline.Listing{}, errors.Join(ctx.Errors...)
	}
	if binding < 0 || binding >= len(ctx.Variables) {
		return pipeline.Listing{}, fmt.Errorf("binding %d out of range: layout has %d bindings", binding, len(ctx.Variables))
	}

	nv := ctx.Variables[binding]
	if len(path) > 0 {
		err := irvar.Catch(func() {
			for _, slot := range path {
				nv.Variable = nv.Variable.Part(slot)
			}
		})
		if err != nil {
			return pipeline.Listing{}, fmt.Errorf("%s: %w", nv.Label, err)
		}
		nv.Label += "." + strings.Join(path, ".")
	}

	naming := pipeline.NewPipelineContext(requestPath)
	naming.Variables = []pipeline.NamedVariable{nv}
	naming = pipeline.NewNamingProcessor().Process(naming)
	if naming.Failed() {
		return pipeline.Listing{}, errors.Join(naming.Errors...)
	}
	return naming.Listings[0], nil
}

func stringList(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
