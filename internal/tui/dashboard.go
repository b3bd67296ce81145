package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/portalwatch/internal/detector"
	"github.com/user/portalwatch/internal/model"
)

// DashboardData holds data for the dashboard view.
type DashboardData struct {
	Snapshot   model.Snapshot
	Networks   []detector.Record
	LastNotice string
	Notices    int
}

// Dashboard is the main dashboard view.
type Dashboard struct {
	data   *DashboardData
	width  int
	height int
}

// NewDashboard creates a new dashboard.
func NewDashboard(data *DashboardData, width, height int) *Dashboard {
	return &Dashboard{
		data:   data,
		width:  width,
		height: height,
	}
}

// SetSize updates the dashboard size.
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Width(d.width).Render("Portal Watch"))
	sb.WriteString("\n\n")
	sb.WriteString(d.renderActiveSection())
	sb.WriteString("\n")
	sb.WriteString(d.renderDetectionSection())
	sb.WriteString("\n")
	sb.WriteString(d.renderNetworksSection())
	sb.WriteString("\n")
	sb.WriteString(HelpStyle.Render("'r' recheck • 'e' enable/disable • 's' session • 'x' error screen • 'q' quit"))

	return sb.String()
}

func (d *Dashboard) sectionWidth() int {
	w := d.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

func (d *Dashboard) renderActiveSection() string {
	snap := d.data.Snapshot
	network := string(snap.ActiveNetwork)
	if snap.ActiveNetwork == model.NoNetwork {
		network = "none"
	}
	usable := "connecting"
	if snap.Usable {
		usable = "connected"
	}

	content := fmt.Sprintf(
		"%s %s\n%s %s\n%s %s",
		LabelStyle.Render("Network:"),
		ValueStyle.Render(network),
		LabelStyle.Render("Link:"),
		ValueStyle.Render(usable),
		LabelStyle.Render("Status:"),
		RenderStatus(snap.State),
	)

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Active Network") + "\n" + content)
}

func (d *Dashboard) renderDetectionSection() string {
	snap := d.data.Snapshot
	notice := d.data.LastNotice
	if notice == "" {
		notice = "-"
	}

	content := fmt.Sprintf(
		"%s %s\n%s %s\n%s %s\n%s %s\n%s %s",
		LabelStyle.Render("Detection:"),
		RenderEnabled(snap.Enabled),
		LabelStyle.Render("Phase:"),
		ValueStyle.Render(snap.Phase),
		LabelStyle.Render("Context:"),
		ValueStyle.Render(snap.Context.String()),
		LabelStyle.Render("Attempts:"),
		ValueStyle.Render(fmt.Sprintf("%d", snap.Attempts)),
		LabelStyle.Render("Last Notice:"),
		ValueStyle.Render(fmt.Sprintf("%s (%d total)", notice, d.data.Notices)),
	)

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Detection") + "\n" + content)
}

func (d *Dashboard) renderNetworksSection() string {
	if len(d.data.Networks) == 0 {
		return SectionStyle.Width(d.sectionWidth()).Render(
			SectionTitleStyle.Render("Known Networks") + "\n" + DimStyle.Render("No networks seen yet"))
	}

	records := append([]detector.Record(nil), d.data.Networks...)
	sort.Slice(records, func(i, j int) bool { return records[i].Identity < records[j].Identity })

	var rows []string
	rows = append(rows, fmt.Sprintf("%-32s %s", "Network", "Status"))
	rows = append(rows, strings.Repeat("─", 50))

	maxRows := 10
	if len(records) < maxRows {
		maxRows = len(records)
	}
	for _, rec := range records[:maxRows] {
		name := string(rec.Identity)
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		rows = append(rows, fmt.Sprintf("%-32s %s", name, rec.State))
	}
	if len(records) > maxRows {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("... and %d more", len(records)-maxRows)))
	}

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Known Networks") + "\n" + strings.Join(rows, "\n"))
}
