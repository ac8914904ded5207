package monitor

import (
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/shotdata"
)

// burst accumulates the frames of a single device burst (§4.5).
type burst struct {
	final   *shotdata.BallData // D4, last one wins
	partial *shotdata.BallData // E8
	club    *shotdata.ClubData
	spin    *shotdata.SpinData
}

// Accumulator fuses a session's frame bursts into ShotData, per-source,
// assigning strictly increasing 1-based shot numbers only on emission.
type Accumulator struct {
	current    burst
	shotNumber uint64
}

// Feed records a single frame into the in-progress burst. D4 wins over E8
// when both are present; the last D4 of multiple wins.
func (a *Accumulator) Feed(frame Frame) {
	switch frame.Kind {
	case FramePartialEstimate:
		a.current.partial = frame.Ball
	case FrameFinalBallFlight:
		a.current.final = frame.Ball
	case FrameClubData:
		a.current.club = frame.Club
	case FrameSpinData:
		a.current.spin = frame.Spin
	}
}

// EndBurst closes the in-progress burst and decides whether to emit a
// ShotData, per the tie-break and partial-policy rules in §4.5. Exactly
// one ShotData or zero results from a single burst (§8).
func (a *Accumulator) EndBurst(source string, policy config.UsePartialPolicy, mode bus.DetectionMode) (*shotdata.ShotData, bool) {
	b := a.current
	a.current = burst{}

	if b.final != nil {
		a.shotNumber++
		return &shotdata.ShotData{
			Source:     source,
			ShotNumber: a.shotNumber,
			Ball:       *b.final,
			Club:       b.club,
			Spin:       b.spin,
			Estimated:  false,
		}, true
	}

	if b.partial != nil && partialAllowed(policy, mode) {
		a.shotNumber++
		return &shotdata.ShotData{
			Source:     source,
			ShotNumber: a.shotNumber,
			Ball:       *b.partial,
			Club:       b.club,
			Spin:       b.spin,
			Estimated:  true,
		}, true
	}

	return nil, false
}

// partialAllowed implements the use_partial policy combined with the
// current global detection mode (§4.5 scenario 2).
func partialAllowed(policy config.UsePartialPolicy, mode bus.DetectionMode) bool {
	switch policy {
	case config.PartialAlways:
		return true
	case config.PartialChippingOnly:
		return mode == bus.ModeChipping
	case config.PartialNever:
		return false
	default:
		return false
	}
}
