package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by every package.
const (
	KeyHost        = "host"
	KeyPort        = "port"
	KeySessionID   = "session_id"
	KeyPhase       = "phase"
	KeyProbeResult = "probe_result"
	KeyOutcome     = "outcome"
	KeyReason      = "reason"
	KeyQuiet       = "quiet"
	KeyAttempt     = "attempt"
	KeyDurationMS  = "duration_ms"
	KeyStatusCode  = "status_code"
	KeySignal      = "signal"
	KeyJobID       = "job_id"
	KeyPath        = "path"
	KeyError       = "error"
)

func Host(h string) slog.Attr              { return slog.String(KeyHost, h) }
func Port(p int) slog.Attr                 { return slog.Int(KeyPort, p) }
func SessionID(id string) slog.Attr        { return slog.String(KeySessionID, id) }
func Phase(p int) slog.Attr                { return slog.Int(KeyPhase, p) }
func ProbeResult(r string) slog.Attr       { return slog.String(KeyProbeResult, r) }
func Outcome(o string) slog.Attr           { return slog.String(KeyOutcome, o) }
func Reason(r string) slog.Attr            { return slog.String(KeyReason, r) }
func Quiet(q bool) slog.Attr               { return slog.Bool(KeyQuiet, q) }
func Attempt(n int) slog.Attr              { return slog.Int(KeyAttempt, n) }
func StatusCode(c int) slog.Attr           { return slog.Int(KeyStatusCode, c) }
func Signal(s string) slog.Attr            { return slog.String(KeySignal, s) }
func JobID(id string) slog.Attr            { return slog.String(KeyJobID, id) }
func Path(p string) slog.Attr              { return slog.String(KeyPath, p) }
func Duration(d time.Duration) slog.Attr   { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func DurationMS(ms float64) slog.Attr      { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
