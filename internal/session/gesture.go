package session

// Slide-to-end thresholds, in percent of the track
const (
	GestureMax             = 100
	GestureCommitThreshold = 90
)

// GestureState is the observable state of the end-session slider
type GestureState struct {
	Position  int  `json:"position"`
	Committed bool `json:"committed"`
	Active    bool `json:"active"`
}

// GestureOutcome is what a single input did to the slider
type GestureOutcome int

const (
	GestureMoved GestureOutcome = iota
	GestureCommitted
	GestureSnappedBack
	GestureIgnored
)

// Gesture turns a continuous drag into a discrete commit. It is not safe for
// concurrent use; Session serializes access.
type Gesture struct {
	state GestureState
}

// DragStart marks the gesture as held
func (g *Gesture) DragStart() GestureState {
	if !g.state.Committed {
		g.state.Active = true
	}
	return g.state
}

// PositionChanged moves the slider. A value of 100, or 90 and above while the
// gesture is held, commits immediately. Once committed only a full-scale value
// is accepted, and it leaves the gesture committed.
func (g *Gesture) PositionChanged(p int) (GestureState, GestureOutcome) {
	p = clampPosition(p)

	if g.state.Committed {
		if p == GestureMax {
			return g.state, GestureMoved
		}
		return g.state, GestureIgnored
	}

	g.state.Position = p
	if p == GestureMax || (p >= GestureCommitThreshold && g.state.Active) {
		g.commit()
		return g.state, GestureCommitted
	}
	return g.state, GestureMoved
}

// DragEnd releases the slider: below the threshold it snaps back to 0,
// otherwise it commits.
func (g *Gesture) DragEnd() (GestureState, GestureOutcome) {
	if g.state.Committed {
		return g.state, GestureIgnored
	}

	g.state.Active = false
	if g.state.Position < GestureCommitThreshold {
		g.state.Position = 0
		return g.state, GestureSnappedBack
	}
	g.commit()
	return g.state, GestureCommitted
}

// Reset returns the slider to its initial uncommitted state
func (g *Gesture) Reset() GestureState {
	g.state = GestureState{}
	return g.state
}

// State returns the current slider state
func (g *Gesture) State() GestureState {
	return g.state
}

func (g *Gesture) commit() {
	g.state = GestureState{Position: GestureMax, Committed: true}
}

func clampPosition(p int) int {
	if p < 0 {
		return 0
	}
	if p > GestureMax {
		return GestureMax
	}
	return p
}
