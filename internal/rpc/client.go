package rpc

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/irslots/internal/pipeline"
)

// Client calls a remote SlotNaming service.
type Client struct {
	conn *grpc.ClientConn
	sd   *desc.ServiceDescriptor
}

// Dial connects to the service at target without transport security.
func Dial(target string) (*Client, error) {
	sd, err := loadService()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &Client{conn: conn, sd: sd}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Flatten names all stack slots of a binding in the layout document.
func (c *Client) Flatten(ctx context.Context, layout string, binding int) (pipeline.Listing, error) {
	return c.invoke(ctx, "Flatten", map[string]interface{}{
		"layout":  layout,
		"binding": int32(binding),
	})
}

// Part names the stack slots of the part of a binding addressed by path.
func (c *Client) Part(ctx context.Context, layout string, binding int, path []string) (pipeline.Listing, error) {
	items := make([]interface{}, len(path))
	for i, p := range path {
		items[i] = p
	}
	return c.invoke(ctx, "Part", map[string]interface{}{
		"layout":  layout,
		"binding": int32(binding),
		"path":    items,
	})
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]interface{}) (pipeline.Listing, error) {
	md := c.sd.FindMethodByName(method)
	if md == nil {
		return pipeline.Listing{}, fmt.Errorf("method %s not found in %s", method, ServiceName)
	}

	reqMsg := dynamic.NewMessage(md.GetInputType())
	for name, v := range fields {
		if err := reqMsg.TrySetFieldByName(name, v); err != nil {
			return pipeline.Listing{}, fmt.Errorf("%s: %w", method, err)
		}
	}
	respMsg := dynamic.NewMessage(md.GetOutputType())

	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, reqMsg, respMsg); err != nil {
		return pipeline.Listing{}, err
	}

	listing := pipeline.Listing{
		Components: stringList(respMsg.GetFieldByName("components")),
	}
	listing.Label, _ = respMsg.GetFieldByName("label").(string)
	listing.BaseName, _ = respMsg.GetFieldByName("base_name").(string)
	listing.Type, _ = respMsg.GetFieldByName("type").(string)
	listing.List, _ = respMsg.GetFieldByName("list").(string)
	if size, _ := respMsg.GetFieldByName("size").(int32); int(size) != len(listing.Components) {
		return pipeline.Listing{}, fmt.Errorf("%s: response has %d components but size %d", method, len(listing.Components), size)
	}
	return listing, nil
}
