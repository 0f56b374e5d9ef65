package kafka

import (
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

func TestMapMessageToRawRequest(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"request_id":"req-1"}`),
		Topic:     "assessment-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("clinic-7")},
		},
	}

	raw := mapMessageToRawRequest(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"request_id":"req-1"}`, string(raw.Value))
	assert.Equal(t, "assessment-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "clinic-7", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	a := domain.Assessment{
		ID:        "a-1",
		RequestID: "req-1",
		Selected: &domain.ScoredPathogen{
			PathogenScore: domain.PathogenScore{PathogenID: "flu", Score: 75, IsViable: true},
			R0:            1.3,
			Vector:        domain.VectorAirborne,
		},
		FieldPoints: 120,
		GeneratedAt: now,
	}

	msg, err := serializeToMessage(a)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "assessment_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("a-1"), msg.Headers[0].Value)
	assert.Equal(t, "pathogen_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("flu"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded domain.Assessment
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "flu", decoded.Selected.PathogenID)
	assert.Equal(t, 120, decoded.FieldPoints)
}

func TestSerializeToMessage_NoCandidate(t *testing.T) {
	msg, err := serializeToMessage(domain.Assessment{ID: "a-2", RequestID: "req-2"})
	require.NoError(t, err)
	assert.Empty(t, msg.Headers[1].Value)
	assert.NotContains(t, string(msg.Value), `"selected"`)
}
