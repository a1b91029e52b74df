package pageocr

// Phase is a stage of a capture-and-OCR run.
type Phase string

// Phases reported through [Observer.OnPhase].
const (
	PhaseCapturing  Phase = "capturing"
	PhaseExtracting Phase = "extracting"
	PhaseCleaning   Phase = "cleaning"
	PhaseDone       Phase = "done"
)

// Observer receives progress from a Capturer or an OCR run. Calls are
// serialized; implementations need no locking of their own.
//
// During capture OnProgress counts captured segments. During extraction it
// counts settled chunks, in completion order rather than chunk order.
type Observer interface {
	OnPhase(p Phase)
	OnProgress(completed, total int)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are
// skipped.
type ObserverFuncs struct {
	Phase    func(p Phase)
	Progress func(completed, total int)
}

// OnPhase implements Observer.
func (f ObserverFuncs) OnPhase(p Phase) {
	if f.Phase != nil {
		f.Phase(p)
	}
}

// OnProgress implements Observer.
func (f ObserverFuncs) OnProgress(completed, total int) {
	if f.Progress != nil {
		f.Progress(completed, total)
	}
}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return ObserverFuncs{}
	}
	return o
}
