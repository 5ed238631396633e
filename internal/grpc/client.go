package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProgressQueryClient calls training.v1.ProgressQueryService.
type ProgressQueryClient struct {
	conn grpc.ClientConnInterface
}

func NewProgressQueryClient(conn grpc.ClientConnInterface) *ProgressQueryClient {
	return &ProgressQueryClient{conn: conn}
}

func (c *ProgressQueryClient) call(ctx context.Context, method string, fields map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ProgressQueryServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProgressQueryClient) GetFormationProgress(ctx context.Context, formationID, participantID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetFormationProgress", map[string]interface{}{
		fieldFormationID:   formationID,
		fieldParticipantID: participantID,
	}, opts...)
}

func (c *ProgressQueryClient) GetLevelProgress(ctx context.Context, formationID, participantID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetLevelProgress", map[string]interface{}{
		fieldFormationID:   formationID,
		fieldParticipantID: participantID,
	}, opts...)
}

func (c *ProgressQueryClient) CheckEligibility(ctx context.Context, userID, formationID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "CheckEligibility", map[string]interface{}{
		fieldUserID:      userID,
		fieldFormationID: formationID,
	}, opts...)
}

func (c *ProgressQueryClient) GetFormationStats(ctx context.Context, formationID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetFormationStats", map[string]interface{}{
		fieldFormationID: formationID,
	}, opts...)
}
