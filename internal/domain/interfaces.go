package domain

// Observer is notified synchronously after every committed state mutation.
// Implementations must not dispatch back into the container from OnChange.
type Observer interface {
	OnChange(state State)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(State)

func (f ObserverFunc) OnChange(s State) { f(s) }

// NoOpObserver discards changes (for testing/batch operations).
type NoOpObserver struct{}

func (NoOpObserver) OnChange(State) {}
