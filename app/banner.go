// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"rivaas.dev/restkit/metrics"
)

var methodColors = map[string]string{
	http.MethodGet:     "10",
	http.MethodPost:    "12",
	http.MethodPut:     "11",
	http.MethodDelete:  "9",
	http.MethodPatch:   "13",
	http.MethodHead:    "14",
	http.MethodOptions: "7",
}

// colorWriter downsamples ANSI colors to what w supports. Production output
// is always stripped.
func (a *App) colorWriter(w io.Writer) *colorprofile.Writer {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if a.config.environment == EnvironmentProduction {
		cpw.Profile = colorprofile.NoTTY
	}

	return cpw
}

func (a *App) bannerWriter() io.Writer {
	if a.config.bannerOut != nil {
		return a.config.bannerOut
	}

	return os.Stdout
}

// printStartupBanner prints the service title, the listen address, the
// metrics provider and, in development, the route table.
func (a *App) printStartupBanner() {
	out := a.bannerWriter()
	w := a.colorWriter(out)

	gradient := []string{"10", "11"}
	if a.config.environment == EnvironmentDevelopment {
		gradient = []string{"12", "14", "10", "11"}
	}

	var art strings.Builder
	for _, line := range figure.NewFigure(a.config.serviceName, "", false).Slicify() {
		if strings.TrimSpace(line) == "" {
			art.WriteString("\n")
			continue
		}
		for i, char := range line {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[i%len(gradient)])).Bold(true)
			art.WriteString(style.Render(string(char)))
		}
		art.WriteString("\n")
	}

	category := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14).PaddingLeft(2)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	addr := a.config.server.address
	if ln := a.engine.Addr(); ln != nil {
		addr = ln.String()
	}
	addr = "http://" + displayHost(addr)

	var b strings.Builder
	b.WriteString(category.Render("Service") + "\n")
	b.WriteString(label.Render("Version:") + "  " + value.Foreground(lipgloss.Color("14")).Render(a.config.serviceVersion) + "\n")
	b.WriteString(label.Render("Environment:") + "  " + value.Foreground(lipgloss.Color("11")).Render(a.config.environment) + "\n")
	b.WriteString(label.Render("Address:") + "  " + value.Foreground(lipgloss.Color("10")).Render(addr) + "\n")
	if a.config.server.h2c {
		b.WriteString(label.Render("Protocol:") + "  " + value.Render("h2c") + "\n")
	}

	b.WriteString("\n" + category.Render("Observability") + "\n")
	switch {
	case a.metrics == nil:
		b.WriteString(label.Render("Metrics:") + "  " + dim.Render("Disabled") + "\n")
	case a.metrics.Provider() == metrics.PrometheusProvider:
		b.WriteString(label.Render("Metrics:") + "  " +
			value.Foreground(lipgloss.Color("13")).Render(addr+a.config.metricsPath) + "  " +
			dim.Render(fmt.Sprintf("[%s]", a.metrics.Provider())) + "\n")
	default:
		b.WriteString(label.Render("Metrics:") + "  " +
			value.Foreground(lipgloss.Color("13")).Render("Enabled") + "  " +
			dim.Render(fmt.Sprintf("[%s]", a.metrics.Provider())) + "\n")
	}
	if a.tracing == nil {
		b.WriteString(label.Render("Tracing:") + "  " + dim.Render("Disabled") + "\n")
	} else {
		b.WriteString(label.Render("Tracing:") + "  " +
			value.Foreground(lipgloss.Color("13")).Render("Enabled") + "  " +
			dim.Render(fmt.Sprintf("[%s]", a.tracing.Provider())) + "\n")
	}
	b.WriteString(label.Render("Health:") + "  " + value.Render(addr+a.config.healthPath) + "\n")

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, art.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, b.String())

	if a.config.environment == EnvironmentDevelopment && len(a.router.Routes()) > 0 {
		_, _ = fmt.Fprintln(w)
		a.renderRoutesTable(w, out, 80)
	}
	_, _ = fmt.Fprintln(w)
}

// displayHost turns ":8080" into "0.0.0.0:8080".
func displayHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "0.0.0.0" + addr
	}

	return addr
}

// PrintRoutes writes the route table to w.
//
// Example output:
//
//	╭────────┬──────────────────┬──────────────────────────────╮
//	│ Method │ Path             │ Selectors                    │
//	├────────┼──────────────────┼──────────────────────────────┤
//	│ GET    │ /articles/{id}   │ /articles/{id} GET           │
//	╰────────┴──────────────────┴──────────────────────────────╯
func (a *App) PrintRoutes(w io.Writer) {
	if len(a.router.Routes()) == 0 {
		_, _ = fmt.Fprintln(w, "No routes registered")
		return
	}
	a.renderRoutesTable(a.colorWriter(w), w, 120)
}

// renderRoutesTable renders the routes to w. raw is the underlying writer,
// used to detect the terminal width.
func (a *App) renderRoutesTable(w, raw io.Writer, width int) {
	routes := a.router.Routes()
	useColors := a.config.environment == EnvironmentDevelopment

	rows := make([][]string, 0, len(routes))
	contentWidth := len("Method") + len("Path") + len("Selectors")
	for _, rt := range routes {
		method := rt.Method
		if method == "" {
			method = "*"
		}
		display := method
		if color, ok := methodColors[method]; ok && useColors {
			display = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(method)
		}
		contentWidth = max(contentWidth, len(method)+len(rt.Path)+len(rt.Selectors))
		rows = append(rows, []string{display, rt.Path, rt.Selectors})
	}

	// Borders (2), separators (2) and padding (6) around the content.
	tableWidth := max(contentWidth+10, width)
	if f, ok := raw.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			tableWidth = min(tableWidth, tw)
		}
	}
	tableWidth = max(60, tableWidth)

	border := lipgloss.NewStyle()
	if useColors {
		border = border.Foreground(lipgloss.Color("240"))
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Align(lipgloss.Left).Padding(0, 1)
			if row == table.HeaderRow && useColors {
				style = style.Bold(true).Foreground(lipgloss.Color("230"))
			}

			return style
		}).
		Headers("Method", "Path", "Selectors").
		Rows(rows...).
		Width(tableWidth)

	_, _ = fmt.Fprintln(w, t.Render())
}
