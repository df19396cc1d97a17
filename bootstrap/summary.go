package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/demandflow/component"
)

// StageInfo describes one stage of the run shown in the summary.
type StageInfo struct {
	Name    string // "source", "transform", "sink"
	Kind    string // e.g. "file", "table", "topic"
	Details string
}

// Summary collects what the application started and prints it once startup
// is complete.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	stages          []StageInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackStage adds a pipeline stage to the summary.
func (s *Summary) TrackStage(name, kind, details string) {
	s.stages = append(s.stages, StageInfo{Name: name, Kind: kind, Details: details})
}

// Stages returns the tracked stages.
func (s *Summary) Stages() []StageInfo {
	return s.stages
}

// Display writes the summary to w. Infrastructure, routes and live health
// are collected from registry, which may be nil.
func (s *Summary) Display(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var (
		infra  []component.Description
		routes []component.Route
		health []component.Health
	)
	if registry != nil {
		for _, c := range registry.All() {
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name == "" {
					desc.Name = c.Name()
				}
				infra = append(infra, desc)
			}
			if rp, ok := c.(component.RouteProvider); ok {
				routes = append(routes, rp.Routes()...)
			}
		}
		health = registry.HealthAll(context.Background())
	}

	if len(infra) > 0 {
		fmt.Fprintf(w, "\n📊 Infrastructure\n")
		for i, d := range infra {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s %s: %s\n", treePrefix(i, len(infra)), d.Name, details)
		}
	}

	if len(s.stages) > 0 {
		fmt.Fprintf(w, "\n🔀 Pipeline\n")
		for i, st := range s.stages {
			line := fmt.Sprintf("%s %s [%s]", stageIcon(st.Name), st.Name, st.Kind)
			if st.Details != "" {
				line += " " + st.Details
			}
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(s.stages)), line)
		}
	}

	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	if len(health) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		for i, h := range health {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(health)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
		}
	}

	if len(infra) == 0 && len(s.stages) == 0 && len(health) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n")
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}

func stageIcon(name string) string {
	switch name {
	case "source":
		return "📥"
	case "transform":
		return "⚙️"
	case "sink":
		return "📤"
	default:
		return "🔹"
	}
}
