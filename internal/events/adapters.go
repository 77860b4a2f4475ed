package events

import (
	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/discovery"
	"git.home.luguber.info/inful/bridgewatch/internal/settings"
	"git.home.luguber.info/inful/bridgewatch/internal/supervisor"
)

// Publisher turns component callbacks into notifications on a bus. It
// implements settings.Observer, supervisor.Observer and discovery.Listener.
type Publisher struct {
	bus *Bus
}

func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

var (
	_ settings.Observer   = (*Publisher)(nil)
	_ supervisor.Observer = (*Publisher)(nil)
	_ discovery.Listener  = (*Publisher)(nil)
)

func (p *Publisher) SettingsUpdated(s settings.Settings) {
	p.bus.Publish(Notification{Type: SettingsUpdated, Data: s})
}

func (p *Publisher) ConnectionStateChanged(st supervisor.ConnectionState) {
	msg := "Disconnected"
	if st.Connected && st.Identity != nil {
		msg = "Connected to " + st.Identity.Name + " v" + st.Identity.Version + " at " + st.Identity.Endpoint()
	}
	p.bus.Publish(Notification{Type: ConnectionStateChanged, Message: msg, Data: st})
}

func (p *Publisher) SessionStarted(info discovery.SessionInfo) {
	p.bus.Publish(Notification{
		Type:      DiscoveryStarted,
		SessionID: info.ID,
		Data:      StartedData{Quiet: info.Quiet, Reason: info.Reason, Candidates: info.Plan.Len()},
	})
}

func (p *Publisher) Progress(pr discovery.Progress) {
	data := ProgressData{Phase: pr.Phase}
	if pr.Target.Host != "" {
		data.Target = pr.Target.String()
	}
	p.bus.Publish(Notification{Type: DiscoveryProgress, SessionID: pr.SessionID, Message: pr.Message, Data: data})
}

// ProbeFinished is not forwarded; progress already names every target.
func (p *Publisher) ProbeFinished(string, int, companion.ProbeResult) {}

func (p *Publisher) SessionFinished(res discovery.Result) {
	data := FinishedData{
		Outcome:    res.Outcome.String(),
		Checked:    res.Checked,
		DurationMS: res.Duration.Milliseconds(),
	}
	var msg string
	switch res.Outcome {
	case discovery.Found:
		data.Host, data.Port = res.Identity.Host, res.Identity.Port
		msg = "Found server at " + res.Identity.Endpoint()
	case discovery.Exhausted:
		msg = "No server found. Will retry automatically."
	case discovery.Failed:
		msg = "Discovery failed"
	}
	if res.Err != nil && res.Outcome != discovery.Cancelled {
		data.Error = res.Err.Error()
	}
	p.bus.Publish(Notification{Type: DiscoveryFinished, SessionID: res.SessionID, Message: msg, Data: data})
}

// Status publishes a free-form status line.
func (p *Publisher) Status(msg string) {
	p.bus.Publish(Notification{Type: StatusMessage, Message: msg})
}
