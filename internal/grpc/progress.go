package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"astba/training/internal/logging"
	"astba/training/internal/operations"
)

const ProgressQueryServiceName = "training.v1.ProgressQueryService"

// Request fields.
const (
	fieldFormationID   = "formation_id"
	fieldParticipantID = "participant_id"
	fieldUserID        = "user_id"
)

// ProgressQueryService is the server side of training.v1.ProgressQueryService.
// Requests and responses are free-form structs keyed by snake_case request
// fields and the JSON names of the operations results.
type ProgressQueryService interface {
	GetFormationProgress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLevelProgress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEligibility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetFormationStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type ProgressQueryServer struct {
	svc *operations.Service
	log *zap.Logger
}

func NewProgressQueryServer(svc *operations.Service, log *zap.Logger) *ProgressQueryServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressQueryServer{svc: svc, log: log}
}

func RegisterProgressQueryService(s grpc.ServiceRegistrar, srv ProgressQueryService) {
	s.RegisterService(&progressQueryServiceDesc, srv)
}

func (s *ProgressQueryServer) GetFormationProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	formationID, err := requireField(req, fieldFormationID)
	if err != nil {
		return nil, err
	}
	participantID, err := requireField(req, fieldParticipantID)
	if err != nil {
		return nil, err
	}
	progress, err := s.svc.FormationProgress(ctx, formationID, participantID)
	if err != nil {
		return nil, s.statusFromError("GetFormationProgress", err)
	}
	return toStruct(progress)
}

func (s *ProgressQueryServer) GetLevelProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	formationID, err := requireField(req, fieldFormationID)
	if err != nil {
		return nil, err
	}
	participantID, err := requireField(req, fieldParticipantID)
	if err != nil {
		return nil, err
	}
	levels, err := s.svc.LevelProgress(ctx, formationID, participantID)
	if err != nil {
		return nil, s.statusFromError("GetLevelProgress", err)
	}
	if levels == nil {
		levels = []operations.LevelProgress{}
	}
	return toStruct(map[string]interface{}{"levels": levels})
}

func (s *ProgressQueryServer) CheckEligibility(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireField(req, fieldUserID)
	if err != nil {
		return nil, err
	}
	formationID, err := requireField(req, fieldFormationID)
	if err != nil {
		return nil, err
	}
	eligibility, err := s.svc.CheckEligibility(ctx, userID, formationID)
	if err != nil {
		return nil, s.statusFromError("CheckEligibility", err)
	}
	return toStruct(eligibility)
}

func (s *ProgressQueryServer) GetFormationStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	formationID, err := requireField(req, fieldFormationID)
	if err != nil {
		return nil, err
	}
	stats, err := s.svc.FormationStatsForAllEnrolled(ctx, formationID)
	if err != nil {
		return nil, s.statusFromError("GetFormationStats", err)
	}
	if stats == nil {
		stats = []operations.ParticipantStats{}
	}
	return toStruct(map[string]interface{}{"participants": stats})
}

func requireField(req *structpb.Struct, name string) (string, error) {
	value := req.GetFields()[name].GetStringValue()
	if value == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s required", name)
	}
	return value, nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func (s *ProgressQueryServer) statusFromError(op string, err error) error {
	var opErr *operations.Error
	if !errors.As(err, &opErr) {
		s.log.Error("grpc query failed", zap.String(logging.FieldOperation, op), zap.NamedError(logging.FieldError, err))
		return status.Error(codes.Internal, "query failed")
	}
	switch opErr.Kind {
	case operations.KindNotFound:
		return status.Error(codes.NotFound, opErr.Code)
	case operations.KindInvalidArgument, operations.KindNotEnrolled:
		return status.Error(codes.InvalidArgument, opErr.Code)
	case operations.KindConflict, operations.KindAlreadyExists:
		return status.Error(codes.AlreadyExists, opErr.Code)
	case operations.KindCapacityExceeded:
		return status.Error(codes.ResourceExhausted, opErr.Code)
	case operations.KindAccessDenied:
		return status.Error(codes.PermissionDenied, opErr.Code)
	default:
		return status.Error(codes.Unknown, opErr.Code)
	}
}

func unaryHandler(method string, call func(ProgressQueryService, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ProgressQueryService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ProgressQueryServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ProgressQueryService), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var progressQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ProgressQueryServiceName,
	HandlerType: (*ProgressQueryService)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetFormationProgress", ProgressQueryService.GetFormationProgress),
		unaryHandler("GetLevelProgress", ProgressQueryService.GetLevelProgress),
		unaryHandler("CheckEligibility", ProgressQueryService.CheckEligibility),
		unaryHandler("GetFormationStats", ProgressQueryService.GetFormationStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "training/v1/progress.proto",
}
