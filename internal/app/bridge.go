package app

import tea "github.com/charmbracelet/bubbletea"

// bridge funnels callbacks from the client layer into the Bubble Tea
// message loop. Emit never blocks: if the queue is full a wake-up is
// already pending, and handlers re-read current state anyway.
type bridge struct {
	ch chan tea.Msg
}

func newBridge() *bridge {
	return &bridge{ch: make(chan tea.Msg, 64)}
}

func (b *bridge) emit(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

// wait blocks until the next bridged message. The Update loop re-arms
// it after consuming one.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}
