package telegram

import (
	"fmt"
	"strings"

	"github.com/zombor/cleanscan/internal/waste"
)

// maxMessageLen keeps replies under the Telegram limit of 4096 characters
const maxMessageLen = 3900

// Format renders a report as a plain-text chat message
func Format(report *waste.ScanReport) string {
	var b strings.Builder

	b.WriteString("♻️ Scan results\n")

	if len(report.Groups) == 0 {
		b.WriteString("\nNo waste items detected.\n")
	}
	for _, g := range report.Groups {
		fmt.Fprintf(&b, "\n%s %s\n", g.Emoji, g.Label)
		for _, item := range g.Items {
			b.WriteString("• " + item.Description)
			if item.PlasticType != "" {
				fmt.Fprintf(&b, " [%s]", item.PlasticType)
			}
			fmt.Fprintf(&b, " (%.0f%%)\n", item.Confidence)
		}
	}

	if p := report.Plastic; p != nil {
		if p.PlasticType != "" {
			fmt.Fprintf(&b, "\nPlastic type: %s\n", p.PlasticType)
		}
		if len(p.UpcyclingIdeas) > 0 {
			b.WriteString("\n💡 Upcycling ideas\n")
			for _, idea := range p.UpcyclingIdeas {
				b.WriteString("• " + idea + "\n")
			}
		}
		if len(p.NearbyCenters) > 0 {
			b.WriteString("\n📍 Nearby recycling centers")
			if report.Location != nil {
				fmt.Fprintf(&b, " (%s, %s)", report.Location.City, report.Location.State)
			}
			b.WriteString("\n")
			for _, c := range p.NearbyCenters {
				fmt.Fprintf(&b, "• %s (%s), %s\n", c.Name, c.Type, c.Address)
			}
		}
	}

	if report.Result != nil && len(report.Result.Tips) > 0 {
		b.WriteString("\n📝 Tips\n")
		for _, tip := range report.Result.Tips {
			b.WriteString("• " + tip + "\n")
		}
	}

	if report.Summary.Total > 1 {
		fmt.Fprintf(&b, "\n%d items, %d%% recyclable\n", report.Summary.Total, report.Summary.RecyclableRate)
	}

	if report.LocationNotice != "" {
		fmt.Fprintf(&b, "\nℹ️ %s\n", report.LocationNotice)
	}

	return truncate(strings.TrimRight(b.String(), "\n"))
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLen {
		return text
	}
	return string(runes[:maxMessageLen]) + "…"
}
