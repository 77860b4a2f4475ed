package eventstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

const appendTimeout = 2 * time.Second

// Recorder appends discovery sessions to a store and keeps a projection
// current. It implements discovery.Listener.
type Recorder struct {
	store      Store
	projection *SessionHistoryProjection
	logger     *slog.Logger
}

var _ discovery.Listener = (*Recorder)(nil)

func NewRecorder(store Store, projection *SessionHistoryProjection, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, projection: projection, logger: logger}
}

func (r *Recorder) SessionStarted(info discovery.SessionInfo) {
	r.append(info.ID, TypeDiscoveryStarted, StartedPayload{
		Quiet:      info.Quiet,
		Reason:     info.Reason,
		Candidates: info.Plan.Len(),
	})
}

func (r *Recorder) Progress(discovery.Progress) {}

func (r *Recorder) ProbeFinished(string, int, companion.ProbeResult) {}

func (r *Recorder) SessionFinished(res discovery.Result) {
	payload := FinishedPayload{Checked: res.Checked, DurationMS: res.Duration.Milliseconds()}
	if res.Err != nil {
		payload.Error = res.Err.Error()
	}

	var eventType string
	switch res.Outcome {
	case discovery.Found:
		eventType = TypeServerDiscovered
		payload.Host, payload.Port = res.Identity.Host, res.Identity.Port
		payload.Name, payload.Version = res.Identity.Name, res.Identity.Version
	case discovery.Exhausted:
		eventType = TypeDiscoveryExhausted
	case discovery.Cancelled:
		eventType = TypeDiscoveryCancelled
	default:
		eventType = TypeDiscoveryFailed
	}
	r.append(res.SessionID, eventType, payload)
}

func (r *Recorder) append(sessionID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal discovery event", logfields.SessionID(sessionID), logfields.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := r.store.Append(ctx, sessionID, eventType, data, nil); err != nil {
		r.logger.Warn("Failed to record discovery event",
			logfields.SessionID(sessionID), slog.String("event_type", eventType), logfields.Error(err))
		return
	}

	if r.projection != nil {
		r.projection.Apply(&BaseEvent{
			EventSessionID: sessionID,
			EventType:      eventType,
			EventTimestamp: time.Now(),
			EventPayload:   data,
		})
	}
}
