package discovery

import (
	"context"
	"time"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
)

// scan walks a plan strictly sequentially.
type scan struct {
	session  *session
	prober   Prober
	listener Listener
	timeout  time.Duration
}

func (sc *scan) run(plan Plan, res *Result) {
	s := sc.session
	for i, targets := range [][]Target{plan.Phase1, plan.Phase2} {
		phase := i + 1
		if phase == 2 && s.req.Quiet {
			sc.listener.Progress(Progress{SessionID: s.id, Phase: phase, Message: "Searching for server..."})
		}
		for _, t := range targets {
			if s.ctx.Err() != nil {
				res.Outcome = Cancelled
				res.Err = context.Cause(s.ctx)
				return
			}
			if !(s.req.Quiet && phase == 1) {
				sc.listener.Progress(Progress{
					SessionID: s.id,
					Phase:     phase,
					Target:    t,
					Message:   "Checking " + t.String() + "...",
				})
			}

			pr := sc.prober.Check(s.ctx, t.Host, t.Port, sc.timeout)
			res.Checked++
			sc.listener.ProbeFinished(s.id, phase, pr)

			if s.ctx.Err() != nil || pr.Outcome == companion.Cancelled {
				res.Outcome = Cancelled
				res.Err = context.Cause(s.ctx)
				return
			}
			if pr.Outcome == companion.Matched {
				res.Outcome = Found
				res.Identity = pr.Identity
				return
			}
		}
	}
	res.Outcome = Exhausted
}
