package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/steveyegge/brain/internal/types"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("encoding output: %v", err)
	}
	fmt.Println(string(data))
}

func header(title string) {
	fmt.Printf("\n%s\n\n", cyan("=== "+title+" ==="))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return gray("never")
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func statusColor(status types.ObserverStatus) string {
	if status == types.StatusHalted {
		return red(string(status))
	}
	return green(string(status))
}

func severityColor(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return red(string(s))
	case types.SeverityHigh:
		return yellow(string(s))
	default:
		return string(s)
	}
}

func priorityColor(p types.Priority) string {
	if p == types.PriorityHigh {
		return red(string(p))
	}
	return yellow(string(p))
}

// parseScores turns "category=score" arguments into a score map
func parseScores(args []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: score must look like category=score (got %q)", types.ErrInvalidInput, arg)
		}
		if _, dup := scores[name]; dup {
			return nil, fmt.Errorf("%w: category %q given twice", types.ErrInvalidInput, name)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: score for %q is not a number: %v", types.ErrInvalidInput, name, err)
		}
		scores[name] = f
	}
	return scores, nil
}
