package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropoutMessage_RoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	in := Dropout{RunID: "r1", EnrollmentID: 42, CourseID: 1, StudentID: 5, DroppedAt: at}

	msg, err := NewDropoutMessage(in)
	require.NoError(t, err)
	assert.Equal(t, TypeDropout, msg.Type)

	out, err := DecodeDropout(deserialize(serialize(msg)))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeDropout_RejectsOtherTypes(t *testing.T) {
	_, err := DecodeDropout(Message{Type: "checkin", Body: []byte("{}")})
	assert.Error(t, err)
}

func TestDeserialize_BodyMayContainSeparator(t *testing.T) {
	msg := deserialize("t|a|b")
	assert.Equal(t, "t", msg.Type)
	assert.Equal(t, "a|b", string(msg.Body))

	raw := deserialize("no-separator")
	assert.Empty(t, raw.Type)
	assert.Equal(t, "no-separator", string(raw.Body))
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewInMemory(4)

	require.NoError(t, q.Publish(ctx, Message{Type: TypeDropout, Body: []byte("1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeDropout, Body: []byte("2")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", string((<-msgs).Body))
	assert.Equal(t, "2", string((<-msgs).Body))

	cancel()
	for range msgs {
	}
}

func TestInMemory_PublishHonoursContextWhenFull(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{}), context.DeadlineExceeded)
}
