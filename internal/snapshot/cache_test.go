package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops-map-backend/internal/model"
)

type countingSource struct {
	calls int
	snap  model.RawSnapshot
	err   error
}

func (s *countingSource) Fetch(context.Context) (model.RawSnapshot, error) {
	s.calls++
	return s.snap, s.err
}

func TestCache_FetchFallsThroughOnce(t *testing.T) {
	live := &countingSource{snap: model.RawSnapshot{WorkOrders: []model.RawRecord{{ID: "rec1"}}}}
	c := New(live, time.Minute)

	for i := 0; i < 3; i++ {
		snap, err := c.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "rec1", snap.WorkOrders[0].ID)
	}
	assert.Equal(t, 1, live.calls)
}

func TestCache_PutAndClear(t *testing.T) {
	live := &countingSource{err: errors.New("upstream down")}
	c := New(live, 0)

	c.Put(model.RawSnapshot{Technicians: []model.RawRecord{{ID: "tec1"}}})
	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Technicians, 1)
	assert.Equal(t, 0, live.calls)

	c.Clear()
	_, ok := c.Get()
	assert.False(t, ok)

	_, err = c.Fetch(context.Background())
	assert.EqualError(t, err, "upstream down")
	assert.Equal(t, 1, live.calls)
}

func TestCache_Expiry(t *testing.T) {
	live := &countingSource{}
	c := New(live, 20*time.Millisecond)
	c.Put(model.RawSnapshot{})

	_, ok := c.Get()
	require.True(t, ok)
	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get()
	assert.False(t, ok)
}
