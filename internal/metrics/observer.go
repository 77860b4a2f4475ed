package metrics

import (
	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	"git.home.luguber.info/inful/bridgewatch/internal/supervisor"
)

// Observer feeds discovery and connection callbacks into a Recorder.
type Observer struct {
	rec Recorder
}

var (
	_ discovery.Listener  = Observer{}
	_ supervisor.Observer = Observer{}
)

func NewObserver(rec Recorder) Observer {
	if rec == nil {
		rec = NoopRecorder{}
	}
	return Observer{rec: rec}
}

func (o Observer) SessionStarted(discovery.SessionInfo) { o.rec.SetSessionInProgress(true) }

func (o Observer) Progress(discovery.Progress) {}

func (o Observer) ProbeFinished(_ string, _ int, res companion.ProbeResult) {
	o.rec.IncProbeResult(res.Outcome.String())
}

func (o Observer) SessionFinished(res discovery.Result) {
	outcome := res.Outcome.String()
	o.rec.IncSessionOutcome(outcome)
	o.rec.ObserveSessionDuration(outcome, res.Duration)
	o.rec.SetSessionInProgress(false)
}

func (o Observer) ConnectionStateChanged(st supervisor.ConnectionState) {
	o.rec.SetConnected(st.Connected)
}
