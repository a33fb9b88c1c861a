package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/ashureev/caficafe-chat/internal/chatclient"
	"github.com/ashureev/caficafe-chat/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const timeLayout = "15:04"

// renderer prints client events to a terminal. It implements
// chatclient.Observer; the monitor goroutine and the REPL both write through it.
type renderer struct {
	mu sync.Mutex
	w  io.Writer

	connected bool
	seen      bool

	timeStyle   lipgloss.Style
	userStyle   lipgloss.Style
	botStyle    lipgloss.Style
	systemStyle lipgloss.Style
	onStyle     lipgloss.Style
	offStyle    lipgloss.Style
	dimStyle    lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	lr := lipgloss.NewRenderer(w)
	return &renderer{
		w:           w,
		timeStyle:   lr.NewStyle().Foreground(lipgloss.Color("241")),
		userStyle:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("173")),
		botStyle:    lr.NewStyle().Bold(true).Foreground(lipgloss.Color("108")),
		systemStyle: lr.NewStyle().Foreground(lipgloss.Color("203")),
		onStyle:     lr.NewStyle().Foreground(lipgloss.Color("42")),
		offStyle:    lr.NewStyle().Foreground(lipgloss.Color("196")),
		dimStyle:    lr.NewStyle().Faint(true),
	}
}

// OnMessage implements chatclient.Observer.
func (r *renderer) OnMessage(msg domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := r.timeStyle.Render(msg.Timestamp.Local().Format(timeLayout))
	switch msg.Sender {
	case domain.SenderUser:
		fmt.Fprintf(r.w, "%s %s %s\n", stamp, r.userStyle.Render("You:"), msg.Text)
	case domain.SenderBot:
		fmt.Fprintf(r.w, "%s %s %s\n", stamp, r.botStyle.Render("CafiCafe:"), msg.Text)
	default:
		fmt.Fprintf(r.w, "%s %s\n", stamp, r.systemStyle.Render("! "+msg.Text))
	}
}

// OnConnectionChange implements chatclient.Observer. Only transitions are printed.
func (r *renderer) OnConnectionChange(state chatclient.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen && state.Connected == r.connected {
		return
	}
	r.seen = true
	r.connected = state.Connected
	if state.Connected {
		fmt.Fprintln(r.w, r.onStyle.Render("● online"))
		return
	}
	fmt.Fprintln(r.w, r.offStyle.Render("● offline"))
}

// OnBusyChange implements chatclient.Observer.
func (r *renderer) OnBusyChange(busy bool) {
	if !busy {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, r.dimStyle.Render("…"))
}

// info prints a faint informational line.
func (r *renderer) info(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, r.dimStyle.Render(fmt.Sprintf(format, args...)))
}

var _ chatclient.Observer = (*renderer)(nil)
