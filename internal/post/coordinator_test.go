package post

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdroplab/voxdrop/internal/api"
	"github.com/voxdroplab/voxdrop/internal/audio"
	"github.com/voxdroplab/voxdrop/internal/config"
	"github.com/voxdroplab/voxdrop/internal/dsp"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Capture.SampleRate = 8000
	cfg.Capture.Channels = 1
	cfg.Capture.MaxSeconds = 10
	return cfg
}

func testRecorder(seconds float64) (*audio.Capture, *audio.SyntheticBackend) {
	backend := &audio.SyntheticBackend{Seconds: seconds, Frequency: 440}
	return audio.NewCapture(testConfig(), backend, nil), backend
}

func testAPIClient(t *testing.T, baseURL string) *api.Client {
	t.Helper()
	client, err := api.NewClient(&config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 5})
	require.NoError(t, err)
	return client
}

// recordClip drives the coordinator through Recording into Previewing.
func recordClip(t *testing.T, c *Coordinator, capture *audio.Capture, seconds float64) *audio.Clip {
	t.Helper()

	require.NoError(t, c.StartRecording())
	assert.Equal(t, StateRecording, c.State())

	deadline := time.Now().Add(5 * time.Second)
	for capture.Elapsed() < seconds && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	clip, err := c.StopRecording()
	require.NoError(t, err)
	require.NotNil(t, clip)
	assert.Equal(t, StatePreviewing, c.State())
	return clip
}

func TestFullPipeline(t *testing.T) {
	var received struct {
		filename string
		duration string
		channel  string
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(8<<20))
		_, header, err := r.FormFile("audio")
		require.NoError(t, err)
		received.filename = header.Filename
		received.duration = r.FormValue("duration")
		received.channel = r.FormValue("channel_id")
		json.NewEncoder(w).Encode(api.Post{ID: "post-1", DurationSeconds: 2})
	}))
	defer ts.Close()

	capture, _ := testRecorder(2)
	client := testAPIClient(t, ts.URL)

	var invalidated []string
	c := NewCoordinator(capture, client, func(keys ...string) {
		invalidated = append(invalidated, keys...)
	})
	assert.Equal(t, StateIdle, c.State())

	clip := recordClip(t, c, capture, 2.0)
	assert.InDelta(t, 2.0, clip.Duration, 0.15)

	effect, err := dsp.Preset("pitch-up")
	require.NoError(t, err)
	require.NoError(t, c.SelectEffect(effect))
	c.SetChannel("music")

	created, err := c.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "post-1", created.ID)

	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.LastError())
	assert.Nil(t, c.Clip(), "clip is discarded after a successful upload")

	assert.Equal(t, "audio.wav", received.filename)
	assert.Equal(t, "2", received.duration)
	assert.Equal(t, "music", received.channel)

	assert.Contains(t, invalidated, api.FeedPath)
	assert.Contains(t, invalidated, api.ChannelFeedPath("music"))
}

func TestDeviceUnavailable(t *testing.T) {
	backend := &audio.SyntheticBackend{Unplugged: true}
	capture := audio.NewCapture(testConfig(), backend, nil)
	c := NewCoordinator(capture, nil, nil)

	err := c.StartRecording()
	require.Error(t, err)
	assert.Equal(t, KindDeviceUnavailable, KindOf(err))

	assert.Equal(t, StateIdle, c.State())
	assert.False(t, capture.Active(), "no session may exist after a failed start")
	assert.NotEmpty(t, c.LastError())
}

func TestTransmitFailureFallsBackToPreviewing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "stash full"}`))
	}))
	defer ts.Close()

	capture, _ := testRecorder(1)
	c := NewCoordinator(capture, testAPIClient(t, ts.URL), nil)

	recordClip(t, c, capture, 1.0)

	_, err := c.Upload(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindTransmitFailure, KindOf(err))
	assert.Contains(t, err.Error(), "stash full")

	assert.Equal(t, StatePreviewing, c.State(), "clip is still usable, so the user can retry")
	assert.NotNil(t, c.Clip())
	assert.NotEmpty(t, c.LastError())

	// No automatic retry happened; a manual one can succeed later.
	_, err = c.Upload(context.Background())
	require.Error(t, err)
}

func TestDecodeFailure(t *testing.T) {
	capture, _ := testRecorder(1)
	c := NewCoordinator(capture, nil, nil)

	require.NoError(t, c.LoadClip(&audio.Clip{Data: []byte("not a wav at all"), Duration: 1}))

	_, err := c.Upload(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindDecodeFailure, KindOf(err))
	assert.Equal(t, StatePreviewing, c.State())
}

// blockingTransmitter holds uploads open until released.
type blockingTransmitter struct {
	mu       sync.Mutex
	entered  chan struct{}
	release  chan struct{}
	requests int
}

func (b *blockingTransmitter) CreatePost(ctx context.Context, clip api.ClipUpload) (*api.Post, error) {
	b.mu.Lock()
	b.requests++
	b.mu.Unlock()
	close(b.entered)
	<-b.release
	return &api.Post{ID: "slow-post"}, nil
}

func TestSingleUploadInFlight(t *testing.T) {
	capture, _ := testRecorder(1)
	tx := &blockingTransmitter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewCoordinator(capture, tx, nil)

	recordClip(t, c, capture, 1.0)

	done := make(chan error, 1)
	go func() {
		_, err := c.Upload(context.Background())
		done <- err
	}()
	<-tx.entered
	assert.Equal(t, StateUploading, c.State())

	_, err := c.Upload(context.Background())
	require.Error(t, err, "second upload must be rejected while one is in flight")

	err = c.SelectEffect(dsp.None())
	assert.Error(t, err, "effect changes are rejected mid-upload")

	close(tx.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, tx.requests)
}

func TestReplyInvalidatesThreadAndClosesAffordance(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.Post{ID: "reply-1", ParentID: "parent-7"})
	}))
	defer ts.Close()

	capture, _ := testRecorder(1)

	var invalidated []string
	c := NewCoordinator(capture, testAPIClient(t, ts.URL), func(keys ...string) {
		invalidated = append(invalidated, keys...)
	})

	var closedParent string
	c.OnReplyPosted = func(parentID string) { closedParent = parentID }

	recordClip(t, c, capture, 1.0)
	c.SetParent("parent-7")

	_, err := c.Upload(context.Background())
	require.NoError(t, err)

	assert.Contains(t, invalidated, api.FeedPath)
	assert.Contains(t, invalidated, api.RepliesPath("parent-7"))
	assert.Equal(t, "parent-7", closedParent)
}

func TestStopRecordingOutsideRecordingIsNoOp(t *testing.T) {
	capture, _ := testRecorder(1)
	c := NewCoordinator(capture, nil, nil)

	clip, err := c.StopRecording()
	assert.NoError(t, err)
	assert.Nil(t, clip)
	assert.Equal(t, StateIdle, c.State())
}

func TestDiscardReturnsToIdle(t *testing.T) {
	capture, _ := testRecorder(1)
	c := NewCoordinator(capture, nil, nil)

	recordClip(t, c, capture, 1.0)
	c.Discard()

	assert.Equal(t, StateIdle, c.State())
	assert.Nil(t, c.Clip())
	assert.Equal(t, dsp.None(), c.Effect())
}

func TestLoadClipRequiresIdle(t *testing.T) {
	capture, _ := testRecorder(1)
	c := NewCoordinator(capture, nil, nil)

	buf, err := audio.NewBuffer(1, 800, 8000)
	require.NoError(t, err)
	data, err := audio.EncodeWAV(buf)
	require.NoError(t, err)
	clip := &audio.Clip{Data: data, Duration: 0.1}

	require.NoError(t, c.LoadClip(clip))
	assert.Equal(t, StatePreviewing, c.State())

	assert.Error(t, c.LoadClip(clip), "loading over a previewed clip must fail")
	assert.Error(t, c.LoadClip(nil))
}
