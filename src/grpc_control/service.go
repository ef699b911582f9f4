package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"usage-watch/src/helpers"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements AnomalyControlServer on top of a run controller
type ControlService struct {
	Controller interfaces.IRunController
	Logger     *logger.Logger
}

func NewControlService(controller interfaces.IRunController, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewLogger(nil, "ControlService")
	}
	return &ControlService{Controller: controller, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out := map[string]interface{}{"service": ServiceName}

	summary, ok := s.Controller.LastSummary()
	if ok {
		last, err := toValue(summary)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode summary: %v", err)
		}
		out["last_run"] = last
	} else {
		out["last_run"] = nil
	}
	return newStruct(out)
}

// -----------------------------------------------------------------------------

// TriggerRun accepts optional string fields customer_id, utility_type,
// from and to.
func (s *ControlService) TriggerRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := helpers.ParseReadingQuery(
		stringField(req, "customer_id"),
		stringField(req, "utility_type"),
		stringField(req, "from"),
		stringField(req, "to"),
	)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	summary, err := s.Controller.TriggerRun(ctx, query)
	if err != nil {
		var sinkErr *helpers.SinkError
		if !errors.As(err, &sinkErr) {
			s.Logger.Error("gRPC: TriggerRun failed: %v", err)
			return nil, status.Errorf(codes.Internal, "run failed: %v", err)
		}
		// Detection finished; only reporting failed
		s.Logger.Warning("gRPC: TriggerRun finished with sink errors: %v", err)
	}

	value, err := toValue(summary)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode summary: %v", err)
	}
	s.Logger.Info("gRPC: TriggerRun %s emitted %d records", summary.RunID, summary.RecordsEmitted)
	return newStruct(value.(map[string]interface{}))
}

// -----------------------------------------------------------------------------

// ListAnomalies accepts optional customer_id, utility_type, min_severity
// and a numeric limit.
func (s *ControlService) ListAnomalies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := ""
	if v, ok := req.GetFields()["limit"]; ok {
		limit = strconv.Itoa(int(v.GetNumberValue()))
	}

	filter, err := helpers.ParseRecordFilter(
		stringField(req, "customer_id"),
		stringField(req, "utility_type"),
		stringField(req, "min_severity"),
		limit,
	)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	records, err := s.Controller.ListAnomalies(ctx, filter)
	if err != nil {
		s.Logger.Error("gRPC: ListAnomalies failed: %v", err)
		return nil, status.Errorf(codes.Internal, "list anomalies: %v", err)
	}

	value, err := toValue(records)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode records: %v", err)
	}
	if value == nil {
		value = []interface{}{}
	}
	return newStruct(map[string]interface{}{"records": value, "count": len(records)})
}

// -----------------------------------------------------------------------------

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

// toValue converts v into the generic JSON shape structpb understands.
func toValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return st, nil
}
