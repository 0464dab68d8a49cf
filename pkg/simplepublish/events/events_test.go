package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

var (
	_ simplepublish.EventSink = (*LogSink)(nil)
	_ simplepublish.EventSink = (*CloudEventSink)(nil)
	_ simplepublish.EventSink = Multi(nil)
)

type received struct {
	ceType  string
	subject string
	source  string
	body    []byte
}

func newReceiver(t *testing.T, status int) (*httptest.Server, func() []received) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []received
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, received{
			ceType:  r.Header.Get("Ce-Type"),
			subject: r.Header.Get("Ce-Subject"),
			source:  r.Header.Get("Ce-Source"),
			body:    body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), got...)
	}
}

func TestCloudEventSink_RecordPublished(t *testing.T) {
	srv, got := newReceiver(t, http.StatusAccepted)
	sink, err := NewCloudEventSink(srv.URL, WithSource("blog-test"))
	require.NoError(t, err)

	record := &simplepublish.Record{Slug: "hello", Kind: simplepublish.RecordKindPost, Title: "Hello", Body: "secret draft text"}
	require.NoError(t, sink.RecordPublished(context.Background(), record))

	events := got()
	require.Len(t, events, 1)
	assert.Equal(t, TypeRecordPublished, events[0].ceType)
	assert.Equal(t, "hello", events[0].subject)
	assert.Equal(t, "blog-test", events[0].source)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(events[0].body, &payload))
	assert.Equal(t, "hello", payload["slug"])
	assert.NotContains(t, string(events[0].body), "secret draft text", "body is not shipped")
}

func TestCloudEventSink_Failures(t *testing.T) {
	srv, _ := newReceiver(t, http.StatusInternalServerError)
	sink, err := NewCloudEventSink(srv.URL)
	require.NoError(t, err)

	err = sink.RecordDeleted(context.Background(), "gone")
	assert.Error(t, err)

	unreachable, err := NewCloudEventSink("http://127.0.0.1:1")
	require.NoError(t, err)
	assert.Error(t, unreachable.MirrorFailed(context.Background(), "x", errors.New("boom")))

	_, err = NewCloudEventSink("")
	assert.Error(t, err)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	require.NoError(t, sink.RecordPublished(ctx, &simplepublish.Record{Slug: "a"}))
	require.NoError(t, sink.MirrorFailed(ctx, "a", errors.New("disk full")))
	require.NoError(t, sink.FeedbackReceived(ctx, &simplepublish.Feedback{ID: uuid.New()}))

	out := buf.String()
	assert.Contains(t, out, TypeRecordPublished)
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, TypeFeedbackReceived)
}

type failingSink struct {
	simplepublish.NoopEventSink
}

func (failingSink) RecordDeleted(context.Context, string) error {
	return errors.New("sink down")
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	multi := Multi{&failingSink{}, NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))}

	err := multi.RecordDeleted(context.Background(), "gone")
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), TypeRecordDeleted, "later sinks still run")

	assert.NoError(t, multi.RecordUpdated(context.Background(), &simplepublish.Record{Slug: "x"}))
}
