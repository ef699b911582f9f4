package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSink struct {
	name     string
	failures int
	calls    int
	got      []models.MAnomalyRecord
}

func (f *fakeSink) Name() string { return f.name }
func (f *fakeSink) Publish(_ context.Context, records []models.MAnomalyRecord) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("unavailable")
	}
	f.got = records
	return nil
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}
func (w *fakeWriter) Close() error { w.closed = true; return nil }

type fakeStore struct{ saved []models.MAnomalyRecord }

func (s *fakeStore) SaveAnomalyRecords(_ context.Context, records []models.MAnomalyRecord) error {
	s.saved = append(s.saved, records...)
	return nil
}
func (s *fakeStore) ListAnomalyRecords(context.Context, models.MRecordFilter) ([]models.MAnomalyRecord, error) {
	return s.saved, nil
}

func testRecords() []models.MAnomalyRecord {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.MAnomalyRecord{{
		ID:                     "rec-1",
		CustomerID:             "C1",
		UtilityType:            models.UtilityElectric,
		PeriodStart:            start,
		PeriodEnd:              start.AddDate(0, 1, 0),
		MaxSeverity:            models.SeverityHigh,
		RepresentativeScore:    134.7,
		RepresentativeStrategy: models.StrategyZScore,
		MemberCount:            1,
	}}
}

func quietLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewLoggerWithCore(core, "Sinks"), logs
}

func TestMultiSinkRetriesAndContinues(t *testing.T) {
	log, _ := quietLogger()
	flaky := &fakeSink{name: "flaky", failures: 1}
	dead := &fakeSink{name: "dead", failures: 100}
	healthy := &fakeSink{name: "healthy"}

	m := NewMultiSink(log, 3, flaky, dead, healthy)
	m.BaseDelay = time.Millisecond

	err := m.Publish(context.Background(), testRecords())
	require.Error(t, err)

	var sinkErr *helpers.SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Contains(t, sinkErr.Error(), "dead")

	assert.Equal(t, 2, flaky.calls)
	assert.Len(t, flaky.got, 1)
	assert.Equal(t, 3, dead.calls)
	assert.Len(t, healthy.got, 1, "a failing sink must not starve the next one")
}

func TestMultiSinkAllHealthy(t *testing.T) {
	log, _ := quietLogger()
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b"}
	m := NewMultiSink(log, 1)
	m.Add(a)
	m.Add(b)

	require.NoError(t, m.Publish(context.Background(), testRecords()))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestKafkaSinkEncodesRecords(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{Topic: "usage-anomalies", writer: w}

	require.NoError(t, s.Publish(context.Background(), testRecords()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("C1"), w.msgs[0].Key)

	var decoded models.MAnomalyRecord
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.SeverityHigh, decoded.MaxSeverity)
	assert.Contains(t, string(w.msgs[0].Value), `"max_severity":"high"`)

	require.NoError(t, s.Publish(context.Background(), nil))
	assert.Len(t, w.msgs, 1)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaSinkValidates(t *testing.T) {
	_, err := NewKafkaSink(models.MKafkaSinkConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewKafkaSink(models.MKafkaSinkConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	s, err := NewKafkaSink(models.MKafkaSinkConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, "kafka", s.Name())
}

func TestLogSink(t *testing.T) {
	log, logs := quietLogger()
	require.NoError(t, NewLogSink(log).Publish(context.Background(), testRecords()))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "customer=C1")
	assert.Contains(t, logs.All()[0].Message, "severity=high")
}

func TestDatabaseSink(t *testing.T) {
	store := &fakeStore{}
	require.NoError(t, NewDatabaseSink(store).Publish(context.Background(), testRecords()))
	assert.Len(t, store.saved, 1)
}
