// Package mode defines the page controller interface and shared services.
package mode

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel/trace"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/config"
	"github.com/sbrink/flowdash/internal/stats"
	"github.com/sbrink/flowdash/internal/unsaved"
)

// Route identifies an application page.
type Route string

const (
	RouteSettings  Route = "/settings"
	RouteStreams   Route = "/streams"
	RouteBandwidth Route = "/bandwidth"
)

// Controller defines the interface all pages must implement.
type Controller interface {
	// Init returns initial commands for the page.
	Init() tea.Cmd

	// Update handles messages and returns updated model and commands.
	Update(msg tea.Msg) (Controller, tea.Cmd)

	// View renders the page's UI.
	View() string

	// SetSize handles terminal resize events.
	SetSize(width, height int) Controller
}

// Services contains shared dependencies injected into page controllers.
type Services struct {
	API        *api.Client
	Config     *config.Config
	ConfigPath string
	Unsaved    *unsaved.Coordinator
	Stats      *stats.Store
	Tracer     trace.Tracer
}
