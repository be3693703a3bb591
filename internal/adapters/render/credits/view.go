package credits

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	// PoolLimit sizes the free pool bar. Zero hides the bar.
	PoolLimit int64
}

func RenderCredits(snapshots []domain.CreditSnapshot, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return creditsView(snapshots, opts, s)
	})
}

func RenderAnalysis(result domain.AnalysisResult) (string, error) {
	return run(func(s styles) string {
		return analysisView(result, s)
	})
}

func creditsView(snapshots []domain.CreditSnapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Credits"),
		s.header.Render(fmt.Sprintf("devices: %d", len(snapshots))),
	}

	if len(snapshots) == 0 {
		lines = append(lines, s.empty.Render("No devices to show."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, snapshot := range snapshots {
		lines = append(lines, s.section.Render(deviceBlock(snapshot, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func deviceBlock(snapshot domain.CreditSnapshot, opts RenderOptions, s styles) string {
	free := s.warning.Render("used today")
	switch {
	case snapshot.FreeAvailableToday:
		free = s.good.Render("available")
	case snapshot.FreePoolRemaining == 0:
		free = s.warning.Render("pool exhausted")
	}

	parts := []string{
		s.device.Render(string(snapshot.DeviceID)),
		s.detail.Render(fmt.Sprintf("paid credits: %d (purchased %d, used %d)",
			snapshot.PaidCredits, snapshot.PaidCreditsPurchased, snapshot.PaidCreditsUsed)),
		s.key.Render("free today: ") + free,
		s.detail.Render(fmt.Sprintf("free conversations used: %d", snapshot.FreeCreditsUsed)),
		s.detail.Render("price: " + formatPrice(snapshot.UnitPrice, snapshot.Currency) + " per credit"),
	}

	if opts.PoolLimit > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.key.Render("free pool:"),
			" ",
			renderProgressBar(snapshot.FreePoolRemaining, opts.PoolLimit, 24, s),
			" ",
			lipgloss.NewStyle().Foreground(interpolateColor(float64(snapshot.FreePoolRemaining), 0, float64(opts.PoolLimit))).
				Render(fmt.Sprintf("%d/%d left", snapshot.FreePoolRemaining, opts.PoolLimit)),
		))
	} else {
		parts = append(parts, s.detail.Render(fmt.Sprintf("free pool: %d left", snapshot.FreePoolRemaining)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func analysisView(result domain.AnalysisResult, s styles) string {
	sections := []string{s.title.Render(result.Topic)}

	sections = append(sections, s.section.Render(bulletBlock("Common ground", result.SummaryBullets, result.SummaryLinks, s)))
	sections = append(sections, s.section.Render(bulletBlock(result.PerspectiveALabel, result.PerspectiveABullets, result.PerspectiveALinks, s)))
	sections = append(sections, s.section.Render(bulletBlock(result.PerspectiveBLabel, result.PerspectiveBBullets, result.PerspectiveBLinks, s)))

	if narration := strings.TrimSpace(result.Narration); narration != "" {
		sections = append(sections, s.section.Render(s.detail.Render(narration)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func bulletBlock(title string, bullets []string, links []domain.Link, s styles) string {
	lines := []string{s.device.Render(title)}
	if len(bullets) == 0 {
		lines = append(lines, s.empty.Render("  nothing yet"))
	}
	for _, bullet := range bullets {
		lines = append(lines, s.bullet.Render("• "+bullet))
	}
	for _, link := range links {
		lines = append(lines, s.link.Render(fmt.Sprintf("↗ %s <%s>", link.Title, link.URL)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// formatPrice prints an amount in minor units, e.g. 20 eur as "0.20 EUR".
func formatPrice(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, strings.ToUpper(currency))
}

func renderProgressBar(remaining, limit int64, width int, s styles) string {
	if width <= 0 || limit <= 0 {
		return ""
	}

	fraction := float64(remaining) / float64(limit)
	filled := int(math.Round(float64(width) * fraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, faded 240 up to bright 255.
	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
