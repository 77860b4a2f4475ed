package metrics

import "time"

// Recorder defines the observability hooks of the daemon.
type Recorder interface {
	IncProbeResult(result string)
	ObserveSessionDuration(outcome string, d time.Duration)
	IncSessionOutcome(outcome string)
	SetSessionInProgress(running bool)
	SetConnected(connected bool)
	IncReconnectScheduled()
	IncSignal(signalType string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncProbeResult(string)                        {}
func (NoopRecorder) ObserveSessionDuration(string, time.Duration) {}
func (NoopRecorder) IncSessionOutcome(string)                     {}
func (NoopRecorder) SetSessionInProgress(bool)                    {}
func (NoopRecorder) SetConnected(bool)                            {}
func (NoopRecorder) IncReconnectScheduled()                       {}
func (NoopRecorder) IncSignal(string)                             {}
