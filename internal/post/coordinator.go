package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/voxdroplab/voxdrop/internal/api"
	"github.com/voxdroplab/voxdrop/internal/audio"
	"github.com/voxdroplab/voxdrop/internal/dsp"
	"github.com/voxdroplab/voxdrop/internal/metrics"
)

// State is the coordinator's user-visible phase.
type State string

const (
	StateIdle       State = "IDLE"
	StateRecording  State = "RECORDING"
	StatePreviewing State = "PREVIEWING"
	StateProcessing State = "PROCESSING"
	StateUploading  State = "UPLOADING"
)

// Recorder is the capture surface the coordinator drives.
type Recorder interface {
	Start() error
	Stop() (*audio.Clip, error)
	Cleanup()
}

// Transmitter posts a finished clip to the feed service.
type Transmitter interface {
	CreatePost(ctx context.Context, clip api.ClipUpload) (*api.Post, error)
}

// InvalidateFunc is the cache invalidation port: called with the resource
// keys a successful post makes stale. Implemented outside the pipeline,
// typically by the API client's response cache.
type InvalidateFunc func(keys ...string)

// Coordinator sequences capture, decode, effect render, PCM encode and
// transmission, and owns the user-visible progress and error state.
type Coordinator struct {
	recorder   Recorder
	tx         Transmitter
	invalidate InvalidateFunc

	// OnReplyPosted is called after a reply uploads successfully, so the
	// surface owning the parent's reply affordance can close it.
	OnReplyPosted func(parentID string)

	mu        sync.Mutex
	state     State
	clip      *audio.Clip
	effect    dsp.Effect
	channelID string
	parentID  string
	lastError string
	uploading bool
}

// NewCoordinator wires the pipeline. invalidate may be nil when no cache
// is attached.
func NewCoordinator(recorder Recorder, tx Transmitter, invalidate InvalidateFunc) *Coordinator {
	return &Coordinator{
		recorder:   recorder,
		tx:         tx,
		invalidate: invalidate,
		state:      StateIdle,
		effect:     dsp.None(),
	}
}

// StartRecording moves Idle to Recording by delegating to the recorder.
// On device failure the state stays Idle and the error is recorded.
func (c *Coordinator) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("cannot start recording in state %s", c.state)
	}

	metrics.Default().RecordCaptureStarted()
	if err := c.recorder.Start(); err != nil {
		metrics.Default().RecordCaptureFailed()
		perr := err
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			perr = pipelineErr(KindDeviceUnavailable, err)
		}
		c.lastError = perr.Error()
		return perr
	}

	c.state = StateRecording
	c.clip = nil
	c.lastError = ""
	return nil
}

// StopRecording finalizes the capture and moves to Previewing. Calling it
// outside Recording is a no-op returning the current clip, if any.
func (c *Coordinator) StopRecording() (*audio.Clip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return c.clip, nil
	}

	clip, err := c.recorder.Stop()
	if err != nil {
		c.state = StateIdle
		c.lastError = err.Error()
		return nil, err
	}

	c.clip = clip
	c.state = StatePreviewing
	if clip != nil {
		metrics.Default().RecordClipFinalized(clip.Duration)
	}
	return clip, nil
}

// LoadClip previews an already-recorded clip, moving Idle to Previewing.
// Used when posting an existing take instead of a fresh capture.
func (c *Coordinator) LoadClip(clip *audio.Clip) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("cannot load a clip in state %s", c.state)
	}
	if clip == nil || len(clip.Data) == 0 {
		return fmt.Errorf("clip is empty")
	}

	c.clip = clip
	c.state = StatePreviewing
	c.lastError = ""
	return nil
}

// SelectEffect sets the effect applied when the clip is uploaded. Allowed
// any time before Processing begins.
func (c *Coordinator) SelectEffect(e dsp.Effect) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uploading {
		return fmt.Errorf("cannot change effect while an upload is in flight")
	}
	c.effect = e
	return nil
}

// SetChannel targets the upload at a channel feed. Empty means the global
// feed only.
func (c *Coordinator) SetChannel(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
}

// SetParent marks the upload as a reply to the given post.
func (c *Coordinator) SetParent(parentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parentID = parentID
}

// Upload runs decode, effect render, PCM encode and transmission in strict
// sequence. Only one upload may be in flight; a second request while one
// is running is rejected without touching pipeline state. On failure the
// coordinator falls back to Previewing while the clip is still usable, so
// the user can retry manually.
func (c *Coordinator) Upload(ctx context.Context) (*api.Post, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, fmt.Errorf("an upload is already in flight")
	}
	if c.state != StatePreviewing || c.clip == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("no clip to upload in state %s", c.state)
	}
	c.uploading = true
	c.state = StateProcessing
	clip := c.clip
	effect := c.effect
	channelID := c.channelID
	parentID := c.parentID
	c.mu.Unlock()

	started := time.Now()
	created, err := c.runPipeline(ctx, clip, effect, channelID, parentID)

	c.mu.Lock()
	c.uploading = false
	if err != nil {
		c.lastError = err.Error()
		if c.clip != nil {
			c.state = StatePreviewing
		} else {
			c.state = StateIdle
		}
		c.mu.Unlock()
		metrics.Default().RecordUpload(string(KindOf(err)), time.Since(started).Seconds())
		slog.Error("Upload failed", "kind", KindOf(err), "error", err)
		return nil, err
	}

	c.clip = nil
	c.effect = dsp.None()
	c.channelID = ""
	c.parentID = ""
	c.lastError = ""
	c.state = StateIdle
	c.mu.Unlock()

	metrics.Default().RecordUpload("success", time.Since(started).Seconds())

	if c.invalidate != nil {
		c.invalidate(staleKeys(channelID, parentID)...)
	}
	if parentID != "" && c.OnReplyPosted != nil {
		c.OnReplyPosted(parentID)
	}

	slog.Info("Clip posted", "post_id", created.ID, "duration", created.DurationSeconds)
	return created, nil
}

// runPipeline executes the steps of one upload attempt. Each step is
// awaited before the next begins; no partial audio is ever transmitted.
func (c *Coordinator) runPipeline(ctx context.Context, clip *audio.Clip, effect dsp.Effect, channelID, parentID string) (*api.Post, error) {
	buf, err := audio.DecodeWAV(clip.Data)
	if err != nil {
		return nil, pipelineErr(KindDecodeFailure, err)
	}

	renderStart := time.Now()
	rendered, err := dsp.Apply(ctx, buf, effect)
	if err != nil {
		return nil, pipelineErr(KindEffectRenderFailure, err)
	}
	metrics.Default().RecordEffectRender(effect.Kind.String(), time.Since(renderStart).Seconds())

	data, err := audio.EncodeWAV(rendered)
	if err != nil {
		return nil, pipelineErr(KindEncodeFailure, err)
	}

	c.mu.Lock()
	c.state = StateUploading
	c.mu.Unlock()

	created, err := c.tx.CreatePost(ctx, api.ClipUpload{
		Audio:           data,
		DurationSeconds: int(math.Round(clip.Duration)),
		ChannelID:       channelID,
		ParentID:        parentID,
	})
	if err != nil {
		return nil, pipelineErr(KindTransmitFailure, err)
	}
	return created, nil
}

// staleKeys names the cached views a new post makes stale.
func staleKeys(channelID, parentID string) []string {
	keys := []string{api.FeedPath}
	if channelID != "" {
		keys = append(keys, api.ChannelFeedPath(channelID))
	}
	if parentID != "" {
		keys = append(keys, api.RepliesPath(parentID))
	}
	return keys
}

// Discard drops the previewed clip and returns to Idle. No-op while an
// upload is in flight.
func (c *Coordinator) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uploading {
		return
	}
	c.clip = nil
	c.effect = dsp.None()
	c.channelID = ""
	c.parentID = ""
	c.state = StateIdle
}

// State returns the current phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Clip returns the previewed clip, nil outside Previewing.
func (c *Coordinator) Clip() *audio.Clip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clip
}

// Effect returns the currently selected effect.
func (c *Coordinator) Effect() dsp.Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effect
}

// LastError returns the most recent failure message, empty when none.
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Close tears the pipeline down, releasing any active capture.
func (c *Coordinator) Close() {
	c.recorder.Cleanup()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.clip = nil
	c.state = StateIdle
}
