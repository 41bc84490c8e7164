package tui

import "github.com/mmcdole/zenread/internal/domain"

// ChannelObserver adapts domain.Observer to a channel for Bubble Tea.
// The channel holds at most the latest snapshot; older unread ones are dropped.
type ChannelObserver struct {
	ch chan domain.State
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan domain.State, 1)}
}

// OnChange replaces any pending snapshot with s without blocking.
// The container notifies from one goroutine at a time.
func (o *ChannelObserver) OnChange(s domain.State) {
	select {
	case o.ch <- s:
		return
	default:
	}
	// Drop the stale snapshot; the reader may have taken it meanwhile
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- s:
	default:
	}
}

// Updates returns the receive side of the channel
func (o *ChannelObserver) Updates() <-chan domain.State {
	return o.ch
}
