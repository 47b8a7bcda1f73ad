package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleSystem  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleState   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleAlert   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func classStyle(class lib.Classification) lipgloss.Style {
	switch class {
	case lib.ClassError:
		return styleError
	case lib.ClassWarn:
		return styleWarn
	case lib.ClassInfo:
		return styleInfo
	case lib.ClassSystem:
		return styleSystem
	case lib.ClassSuccess:
		return styleSuccess
	default:
		return lipgloss.NewStyle()
	}
}

// renderEvent formats one event as a console line.
func renderEvent(event lib.Event) string {
	stamp := event.Time.Local().Format("15:04:05")

	switch event.Kind {
	case lib.EventStatus:
		return stamp + " " + styleState.Render("["+strings.ToUpper(event.State.String())+"]")
	case lib.EventCrashAlert:
		return stamp + " " + styleAlert.Render(fmt.Sprintf("!! server crashed %d times, automatic restart disabled", event.Attempts))
	default:
		return stamp + " " + classStyle(event.Line.Classification).Render(event.Line.Text)
	}
}

func printStatusTable(w io.Writer, st lib.Status) {
	pid, launch, started, exit := "-", "-", "-", "-"
	if st.PID != 0 {
		pid = strconv.Itoa(st.PID)
	}
	if st.LaunchID != "" {
		launch = lib.ShortID(st.LaunchID)
	}
	if !st.StartTime.IsZero() {
		started = humanize.Time(st.StartTime)
	}
	if st.LastExit != nil {
		if st.LastExit.Signal != "" {
			exit = "signal " + st.LastExit.Signal
		} else {
			exit = "code " + strconv.Itoa(st.LastExit.Code)
		}
	}

	headers := []string{"STATE", "PID", "LAUNCH", "STARTED", "CRASHES", "LAST EXIT"}
	values := []string{st.State.String(), pid, launch, started, strconv.Itoa(st.CrashAttempts), exit}

	widths := make([]int, len(headers))
	for i := range headers {
		widths[i] = max(len(headers[i]), len(values[i]))
	}

	var sep strings.Builder
	for _, width := range widths {
		sep.WriteString("+-" + strings.Repeat("-", width) + "-")
	}
	sep.WriteString("+\n")

	row := func(cells []string) string {
		var b strings.Builder
		for i, cell := range cells {
			b.WriteString("| " + pad(cell, widths[i]) + " ")
		}
		b.WriteString("|\n")
		return b.String()
	}

	fmt.Fprint(w, sep.String())
	fmt.Fprint(w, row(headers))
	fmt.Fprint(w, sep.String())
	fmt.Fprint(w, row(values))
	fmt.Fprint(w, sep.String())
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
