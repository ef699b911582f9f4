package utils

import (
	"testing"
	"time"

	"usage-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(month int, q float64) models.MWindowSample {
	return models.MWindowSample{
		PeriodStart: time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		Quantity:    q,
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 1; i <= 5; i++ {
		rb.Append(sample(i, float64(i*10)))
	}

	require.Equal(t, 3, rb.Size())
	assert.Equal(t, []float64{30, 40, 50}, rb.Quantities())
	assert.Equal(t, time.March, rb.GetAll()[0].PeriodStart.Month())

	latest := rb.GetLatest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, 40.0, latest[0].Quantity)
	assert.Equal(t, 50.0, latest[1].Quantity)
}

func TestRingBufferZeroCapacity(t *testing.T) {
	rb := NewRingBuffer(0)
	rb.Append(sample(1, 1))
	assert.Equal(t, 0, rb.Size())
	assert.Empty(t, rb.GetAll())
}

func TestRingBufferFromKeepsNewest(t *testing.T) {
	rb := NewRingBufferFrom(4, []models.MWindowSample{sample(1, 1), sample(2, 2), sample(3, 3), sample(4, 4), sample(5, 5)})
	assert.Equal(t, []float64{2, 3, 4, 5}, rb.Quantities())

	rb.Append(sample(6, 6))
	assert.Equal(t, []float64{3, 4, 5, 6}, rb.Quantities())
}
