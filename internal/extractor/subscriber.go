package extractor

import "github.com/timvw/config-puller/internal/model"

// Subscriber receives the notifications of an extraction session. Calls
// are made from the session's worker goroutine, in the order the events
// happen; implementations that touch UI state must hand off to their own
// event loop.
type Subscriber interface {
	OnProgress(percent int)
	OnLog(event model.LogEvent)
	OnComplete()
	OnError(err error)
}

// Hooks adapts plain functions to Subscriber. Nil fields are ignored.
type Hooks struct {
	Progress func(percent int)
	Log      func(event model.LogEvent)
	Complete func()
	Error    func(err error)
}

func (h Hooks) OnProgress(percent int) {
	if h.Progress != nil {
		h.Progress(percent)
	}
}

func (h Hooks) OnLog(event model.LogEvent) {
	if h.Log != nil {
		h.Log(event)
	}
}

func (h Hooks) OnComplete() {
	if h.Complete != nil {
		h.Complete()
	}
}

func (h Hooks) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}
