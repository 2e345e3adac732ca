package workspace

import (
	"context"
	"time"
)

// DefaultIdleThreshold is how long the agent's output may stay unchanged
// before a live workspace is reported as Waiting.
const DefaultIdleThreshold = 5 * time.Second

// Detector infers a workspace's status from its agent handle.
//
// The agent exposes no "thinking" or "idle" signal, so liveness plus output
// recency is the only observable proxy. The result is an approximation: a
// quietly computing agent can show as Waiting until it produces output again.
type Detector struct {
	// IdleThreshold is the quiet period after which a live workspace is
	// considered Waiting. Zero means DefaultIdleThreshold.
	IdleThreshold time.Duration
}

// Detect evaluates one transition of the status state machine for ws and
// updates its Status, Fingerprint, and LastActivityAt in place.
//
// Detection never returns an error: any handle-query failure degrades the
// workspace to Done so one broken handle cannot abort the poll tick for the
// rest of the registry.
func (d *Detector) Detect(ctx context.Context, ws *Workspace, now time.Time) Status {
	// Terminal states stick. The handle is dead and no longer polled.
	if ws.Status.IsTerminal() {
		return ws.Status
	}

	if ws.Handle == nil {
		ws.Status = StatusDone
		return ws.Status
	}

	live, err := ws.Handle.IsLive(ctx)
	if err != nil {
		ws.Status = StatusDone
		return ws.Status
	}

	if !live {
		code, err := ws.Handle.ExitCode(ctx)
		if err != nil || code == 0 {
			ws.Status = StatusDone
		} else {
			ws.Status = StatusError
		}
		return ws.Status
	}

	fp, err := ws.Handle.ActivityFingerprint(ctx)
	if err != nil {
		ws.Status = StatusDone
		return ws.Status
	}

	if fp != ws.Fingerprint {
		ws.Fingerprint = fp
		ws.LastActivityAt = now
		ws.Status = StatusRunning
		return ws.Status
	}

	// Waiting requires the quiet period to STRICTLY exceed the threshold:
	// at exactly the threshold the workspace still reads Running.
	if now.Sub(ws.LastActivityAt) > d.threshold() {
		ws.Status = StatusWaiting
	} else {
		ws.Status = StatusRunning
	}
	return ws.Status
}

func (d *Detector) threshold() time.Duration {
	if d.IdleThreshold <= 0 {
		return DefaultIdleThreshold
	}
	return d.IdleThreshold
}
