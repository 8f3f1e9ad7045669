// Package rpc exposes slot naming as a gRPC service.
//
// The service schema is parsed from source at startup and messages are
// handled as dynamic messages, so no generated code is needed. Requests
// carry a complete layout document; the service is stateless.
package rpc

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	protoFile   = "irslots/v1/naming.proto"
	ServiceName = "irslots.v1.SlotNaming"
)

const protoSource = `syntax = "proto3";

package irslots.v1;

message FlattenRequest {
  string layout = 1;
  int32 binding = 2;
}

message PartRequest {
  string layout = 1;
  int32 binding = 2;
  repeated string path = 3;
}

message FlattenResponse {
  string label = 1;
  string base_name = 2;
  string type = 3;
  repeated string components = 4;
  string list = 5;
  int32 size = 6;
}

service SlotNaming {
  rpc Flatten(FlattenRequest) returns (FlattenResponse);
  rpc Part(PartRequest) returns (FlattenResponse);
}
`

type fieldShape struct {
	name     string
	typ      descriptorpb.FieldDescriptorProto_Type
	repeated bool
}

// shapes lists the fields the handlers read and write.
var shapes = map[string][]fieldShape{
	"irslots.v1.FlattenRequest": {
		{"layout", descriptorpb.FieldDescriptorProto_TYPE_STRING, false},
		{"binding", descriptorpb.FieldDescriptorProto_TYPE_INT32, false},
	},
	"irslots.v1.PartRequest": {
		{"layout", descriptorpb.FieldDescriptorProto_TYPE_STRING, false},
		{"binding", descriptorpb.FieldDescriptorProto_TYPE_INT32, false},
		{"path", descriptorpb.FieldDescriptorProto_TYPE_STRING, true},
	},
	"irslots.v1.FlattenResponse": {
		{"label", descriptorpb.FieldDescriptorProto_TYPE_STRING, false},
		{"base_name", descriptorpb.FieldDescriptorProto_TYPE_STRING, false},
		{"type", descriptorpb.FieldDescriptorProto_TYPE_STRING, false},
		{"components", descriptorpb.FieldDescriptorProto_TYPE_STRING, true},
		{"list", descriptorpb.FieldDescriptorProto_TYPE_STRING, false},
		{"size", descriptorpb.FieldDescriptorProto_TYPE_INT32, false},
	},
}

// loadService parses the service schema and checks the messages have the
// fields the handlers use.
func loadService() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: protoSource}),
	}
	fds, err := parser.ParseFiles(protoFile)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", protoFile, err)
	}
	fd := fds[0]

	for msgName, fields := range shapes {
		md := fd.FindMessage(msgName)
		if md == nil {
			return nil, fmt.Errorf("%s: message %s missing", protoFile, msgName)
		}
		for _, f := range fields {
			field := md.FindFieldByName(f.name)
			if field == nil {
				return nil, fmt.Errorf("%s: %s.%s missing", protoFile, msgName, f.name)
			}
			if field.GetType() != f.typ || field.IsRepeated() != f.repeated {
				return nil, fmt.Errorf("%s: %s.%s has type %v", protoFile, msgName, f.name, field.GetType())
			}
		}
	}

	sd := fd.FindService(ServiceName)
	if sd == nil {
		return nil, fmt.Errorf("%s: service %s missing", protoFile, ServiceName)
	}
	return sd, nil
}
