package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeJSON(t *testing.T) {
	c := Change{Entity: "goals", Op: OpContribute, ID: 4, Version: 7, Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	data, err := c.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity":"goals","op":"contribute","id":4,"version":7,"timestamp":"2024-01-01T12:00:00Z"}`, string(data))

	back, err := ChangeFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, c.Entity, back.Entity)
	assert.True(t, c.Timestamp.Equal(back.Timestamp))

	_, err = ChangeFromJSON([]byte(`{"version":"x"}`))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, NewChange("transactions", OpRefresh, 0, 1)))
	require.NoError(t, r.Publish(ctx, NewChange("budgets", OpCreate, 3, 1)))
	require.NoError(t, r.Publish(ctx, NewChange("transactions", OpDelete, 9, 2)))

	assert.Len(t, r.Changes(), 3)
	assert.Equal(t, []Op{OpRefresh, OpDelete}, r.Ops("transactions"))
	assert.NoError(t, Discard{}.Publish(ctx, Change{}))
}
