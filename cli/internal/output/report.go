package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/proboscis/claude-block-checker/cli/internal/report"
	"github.com/proboscis/claude-block-checker/internal/blocks"
)

var (
	profileStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	idleStyle    = lipgloss.NewStyle().Faint(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)

	urgentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	comfortStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// headroomStyle picks the style for a minutes-until-limit estimate:
// red under an hour, yellow under three, green otherwise.
func headroomStyle(minutes int64) lipgloss.Style {
	switch {
	case minutes < 60:
		return urgentStyle
	case minutes < 180:
		return warningStyle
	default:
		return comfortStyle
	}
}

// ReportOptions controls profile report rendering.
type ReportOptions struct {
	Detailed bool
}

// PrintProfile renders one profile's usage view.
func PrintProfile(usage report.ProfileUsage, opts ReportOptions) {
	fmt.Println(profileStyle.Render(usage.Name))

	block := usage.ActiveBlock
	if block == nil {
		fmt.Printf("  %s\n", idleStyle.Render("no active block"))
		return
	}

	fmt.Printf("  %s  %s - %s\n",
		activeStyle.Render("● active"),
		block.StartTime.Local().Format("15:04"),
		block.EndTime.Local().Format("15:04"))
	fmt.Printf("  %s %s tokens  $%.4f\n",
		labelStyle.Render("usage:"),
		FormatNumber(usage.TotalTokens),
		usage.TotalCost)

	if len(usage.ModelsUsed) > 0 {
		short := make([]string, len(usage.ModelsUsed))
		for i, m := range usage.ModelsUsed {
			short[i] = ShortenModelName(m)
		}
		fmt.Printf("  %s %s\n", labelStyle.Render("models:"), strings.Join(short, ", "))
	}

	if usage.MinutesUntilLimit != nil {
		minutes := *usage.MinutesUntilLimit
		fmt.Printf("  %s %s\n",
			labelStyle.Render("until limit:"),
			headroomStyle(minutes).Render(blocks.FormatMinutes(minutes)))
	}

	if opts.Detailed && block.BurnRate != nil {
		rate := block.BurnRate
		fmt.Printf("  %s %s tokens/min  $%.4f/hr  (%s elapsed)\n",
			labelStyle.Render("burn rate:"),
			FormatNumber(rate.TokensPerMinute),
			rate.CostPerHour,
			blocks.FormatMinutes(rate.ElapsedMinutes))
		fmt.Printf("  %s %s tokens  $%.4f by block end\n",
			labelStyle.Render("projected:"),
			FormatNumber(rate.ProjectedTokens),
			rate.ProjectedCost)
	}
}

// PrintProfiles renders all profile views followed by the run summary.
func PrintProfiles(usages []report.ProfileUsage, summary report.Summary, opts ReportOptions) {
	if len(usages) == 0 {
		fmt.Println("No profiles found.")
		return
	}

	for _, usage := range usages {
		PrintProfile(usage, opts)
		fmt.Println()
	}

	fmt.Printf("%d/%d profiles active  %s tokens  $%.4f\n",
		summary.ActiveProfiles,
		summary.TotalProfiles,
		FormatNumber(summary.TotalTokens),
		summary.TotalCost)
	if rec := summary.RecommendedProfile; rec != nil {
		fmt.Printf("recommended: %s (%s of headroom)\n",
			profileStyle.Render(rec.Name),
			blocks.FormatMinutes(rec.MinutesUntilLimit))
	}
}

// ProfileJSON is the JSON shape for an all-profiles check.
type ProfileJSON struct {
	Profiles []report.ProfileUsage `json:"profiles"`
	Summary  report.Summary        `json:"summary"`
}

// PrintProfilesJSON outputs profile views and the summary as JSON.
func PrintProfilesJSON(usages []report.ProfileUsage, summary report.Summary) {
	if usages == nil {
		usages = []report.ProfileUsage{}
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(ProfileJSON{Profiles: usages, Summary: summary})
}

// PrintProfileJSON outputs a single profile view as JSON.
func PrintProfileJSON(usage report.ProfileUsage) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(usage)
}
