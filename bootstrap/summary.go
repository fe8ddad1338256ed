package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kbukum/flowtorch/observability"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	styleSection = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleUp      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleDown    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	methodStyles = map[string]lipgloss.Style{
		"GET":  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"POST": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// InfrastructureInfo describes a backing service the app uses.
type InfrastructureInfo struct {
	Name    string
	Kind    string // e.g. "server", "storage", "formatter", "registry"
	Details string
}

// RouteInfo describes a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary collects what the app started and renders it once startup is
// done.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
	health          *observability.ServiceHealth
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records how long startup took.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// SetHealth records the ready check result.
func (s *Summary) SetHealth(sh *observability.ServiceHealth) {
	s.health = sh
}

// TrackInfrastructure adds a backing service.
func (s *Summary) TrackInfrastructure(name, kind, details string) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{Name: name, Kind: kind, Details: details})
}

// TrackRoute adds an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Render returns the summary as styled text.
func (s *Summary) Render() string {
	var b strings.Builder
	title := s.serviceName
	if s.version != "" {
		title += " " + s.version
	}
	fmt.Fprintf(&b, "\n%s %s\n", styleTitle.Render(title),
		styleMuted.Render(fmt.Sprintf("started in %s", s.startupDuration.Round(time.Millisecond))))

	if len(s.infrastructure) > 0 {
		b.WriteString("\n" + styleSection.Render("Infrastructure") + "\n")
		for i, inf := range s.infrastructure {
			fmt.Fprintf(&b, "  %s %s %s %s\n", treePrefix(i, len(s.infrastructure)),
				inf.Name, styleMuted.Render("["+inf.Kind+"]"), inf.Details)
		}
	}

	if len(s.routes) > 0 {
		b.WriteString("\n" + styleSection.Render(fmt.Sprintf("Routes (%d)", len(s.routes))) + "\n")
		for i, r := range s.routes {
			fmt.Fprintf(&b, "  %s %s %s %s\n", treePrefix(i, len(s.routes)),
				methodStyle(r.Method).Render(fmt.Sprintf("%-6s", r.Method)), r.Path, styleMuted.Render("→ "+r.Handler))
		}
	}

	if s.health != nil && len(s.health.Components) > 0 {
		b.WriteString("\n" + styleSection.Render("Health") + " " + statusText(s.health.Status) + "\n")
		for i, h := range s.health.Components {
			line := fmt.Sprintf("  %s %s %s", treePrefix(i, len(s.health.Components)), h.Name, statusText(h.Status))
			if h.Message != "" {
				line += " " + styleMuted.Render(h.Message)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	return b.String()
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func methodStyle(method string) lipgloss.Style {
	if st, ok := methodStyles[method]; ok {
		return st
	}
	return styleMuted
}

func statusText(status observability.HealthStatus) string {
	switch status {
	case observability.HealthStatusUp:
		return styleUp.Render(string(status))
	case observability.HealthStatusDegraded:
		return styleWarn.Render(string(status))
	default:
		return styleDown.Render(string(status))
	}
}
