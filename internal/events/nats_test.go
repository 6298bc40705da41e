package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainscope.io/dashboard/internal/dashboard"
	"chainscope.io/dashboard/internal/metrics"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs    []published
	err     error
	drained bool
	closed  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data})
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"session-1", "session-1"},
		{" a b ", "a_b"},
		{"a.b>c*d/e", "a_b_c_d_e"},
		{"", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectToken(tt.in))
		})
	}
}

func TestNotifyPublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	m := metrics.NewCollector()
	p := NewNATSPublisher(conn, "", nil, m)

	ev := dashboard.Event{
		SessionID: "user.42",
		FileID:    "f1",
		Phase:     dashboard.PhaseReady,
		Anomalies: 3,
		Time:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Notify(context.Background(), ev))

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "chainscope.dashboard.user_42.ready", conn.msgs[0].subject)

	var got dashboard.Event
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &got))
	assert.Equal(t, ev, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")))
}

func TestNotifyReportsPublishErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection closed")}
	m := metrics.NewCollector()
	p := NewNATSPublisher(conn, "custom", nil, m)

	err := p.Notify(context.Background(), dashboard.Event{SessionID: "s", Phase: dashboard.PhaseError})
	assert.ErrorContains(t, err, "custom.s.error")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
}

func TestNotifyHonoursCancelledContext(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Notify(ctx, dashboard.Event{SessionID: "s"}), context.Canceled)
	assert.Empty(t, conn.msgs)
}

func TestCloseDrainsConnection(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "", nil, nil)
	p.Close()
	assert.True(t, conn.drained)
	assert.True(t, conn.closed)
}
