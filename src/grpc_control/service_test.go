package grpc_control

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubController struct {
	last      *models.MRunSummary
	records   []models.MAnomalyRecord
	runErr    error
	lastQuery models.MReadingQuery
	lastFilt  models.MRecordFilter
}

func (c *stubController) TriggerRun(_ context.Context, q models.MReadingQuery) (models.MRunSummary, error) {
	c.lastQuery = q
	return models.MRunSummary{RunID: "run-7", RecordsEmitted: 2}, c.runErr
}

func (c *stubController) LastSummary() (models.MRunSummary, bool) {
	if c.last == nil {
		return models.MRunSummary{}, false
	}
	return *c.last, true
}

func (c *stubController) Profiles(string) []models.MUsageProfile { return nil }

func (c *stubController) ListAnomalies(_ context.Context, f models.MRecordFilter) ([]models.MAnomalyRecord, error) {
	c.lastFilt = f
	return c.records, nil
}

func (c *stubController) UsageTotals(context.Context, models.MUtilityType) ([]models.MUsageTotal, error) {
	return nil, nil
}

func dial(t *testing.T, ctrl *stubController) *grpc.ClientConn {
	t.Helper()
	core, _ := observer.New(zapcore.DebugLevel)
	log := logger.NewLoggerWithCore(core, "ControlService")

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(&models.MConfig{}, NewControlService(ctrl, log), log)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestGetStatus(t *testing.T) {
	ctrl := &stubController{}
	client := NewAnomalyControlClient(dial(t, ctrl))

	resp, err := client.GetStatus(ctx(t), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, ServiceName, resp.Fields["service"].GetStringValue())
	_, isNull := resp.Fields["last_run"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)

	ctrl.last = &models.MRunSummary{RunID: "abc", PairsProcessed: 4}
	resp, err = client.GetStatus(ctx(t), &emptypb.Empty{})
	require.NoError(t, err)
	last := resp.Fields["last_run"].GetStructValue()
	assert.Equal(t, "abc", last.Fields["run_id"].GetStringValue())
	assert.Equal(t, 4.0, last.Fields["pairs_processed"].GetNumberValue())
}

func TestTriggerRun(t *testing.T) {
	ctrl := &stubController{}
	client := NewAnomalyControlClient(dial(t, ctrl))

	req, err := structpb.NewStruct(map[string]interface{}{"customer_id": "C1", "utility_type": "gas", "from": "2024-01"})
	require.NoError(t, err)
	resp, err := client.TriggerRun(ctx(t), req)
	require.NoError(t, err)
	assert.Equal(t, "run-7", resp.Fields["run_id"].GetStringValue())
	assert.Equal(t, models.UtilityGas, ctrl.lastQuery.UtilityType)
	assert.Equal(t, time.January, ctrl.lastQuery.From.Month())

	bad, _ := structpb.NewStruct(map[string]interface{}{"utility_type": "steam"})
	_, err = client.TriggerRun(ctx(t), bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	ctrl.runErr = helpers.NewSinkError("kafka", errors.New("down"))
	resp, err = client.TriggerRun(ctx(t), &structpb.Struct{})
	require.NoError(t, err, "sink failures do not fail the run")
	assert.Equal(t, 2.0, resp.Fields["records_emitted"].GetNumberValue())

	ctrl.runErr = errors.New("store unreachable")
	_, err = client.TriggerRun(ctx(t), &structpb.Struct{})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestListAnomalies(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ctrl := &stubController{records: []models.MAnomalyRecord{{
		ID: "r1", CustomerID: "C1", UtilityType: models.UtilityWater,
		PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0),
		MaxSeverity: models.SeverityHigh, MemberCount: 1,
	}}}
	client := NewAnomalyControlClient(dial(t, ctrl))

	req, _ := structpb.NewStruct(map[string]interface{}{"min_severity": "high", "limit": 10})
	resp, err := client.ListAnomalies(ctx(t), req)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Fields["count"].GetNumberValue())
	records := resp.Fields["records"].GetListValue().GetValues()
	require.Len(t, records, 1)
	assert.Equal(t, "high", records[0].GetStructValue().Fields["max_severity"].GetStringValue())
	assert.Equal(t, models.MRecordFilter{MinSeverity: models.SeverityHigh, Limit: 10}, ctrl.lastFilt)

	ctrl.records = nil
	resp, err = client.ListAnomalies(ctx(t), &structpb.Struct{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Fields["records"].GetListValue())
}

func TestHealthService(t *testing.T) {
	conn := dial(t, &stubController{})
	resp, err := healthpb.NewHealthClient(conn).Check(ctx(t), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
