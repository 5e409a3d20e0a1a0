package main

import (
	"fmt"
	"sort"
	"strings"

	"deskmate/internal/levels"
	"deskmate/internal/trace"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderProfile shows attribute levels with progress bars plus the skill list.
func renderProfile(lm *levels.Manager) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Attributes"))
	sb.WriteString("\n")

	attrs := lm.Attributes()
	for _, attr := range attrs {
		level := lm.AttributeLevel(attr)
		ratio := lm.ProgressRatio(attr)
		remaining := lm.XPToNextLevel(attr)

		filled := int(ratio * 20)
		bar := barStyle.Render(strings.Repeat("█", filled)) +
			dimStyle.Render(strings.Repeat("░", 20-filled))

		sb.WriteString(fmt.Sprintf("  %-14s %s  %s\n",
			valueStyle.Render(attr),
			bar,
			labelStyle.Render(fmt.Sprintf("lvl %2d (%d xp to next)", level, remaining)),
		))
	}

	skills := lm.Skills()
	if len(skills) == 0 {
		sb.WriteString(dimStyle.Render("\nNo skills tracked yet."))
		return sb.String()
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Skills"))
	sb.WriteString("\n")
	for _, name := range names {
		info := skills[name]
		sb.WriteString(fmt.Sprintf("  %-20s %s\n",
			valueStyle.Render(name),
			labelStyle.Render(fmt.Sprintf("%d xp → %s", info.Experience, info.Attribute)),
		))
	}
	return sb.String()
}

// renderStatus shows the effective configuration.
func renderStatus(a *app) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("deskmate " + a.cfg.Version))
	sb.WriteString("\n")

	row := func(label, value string) {
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-16s", label)), valueStyle.Render(value)))
	}
	row("provider", a.cfg.LLM.Provider)
	row("model", a.cfg.LLM.Model)
	row("tick interval", a.cfg.TickInterval)
	row("chat frequency", fmt.Sprintf("%s (every %d ticks)",
		a.settings.ChatFrequency, a.settings.ChatFrequencyDivisor()))
	row("multimodal", fmt.Sprintf("%v", a.settings.UseMultimodal))
	row("tts", fmt.Sprintf("%v", a.settings.UseTTS))
	row("personality", orNone(a.personas.SelectedName()))
	row("data dir", a.cfg.DataDir)
	return sb.String()
}

// renderCalls shows recent model calls from the trace store.
func renderCalls(records []trace.Record) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Recent model calls"))
	sb.WriteString("\n")
	for _, r := range records {
		outcome := barStyle.Render("ok")
		if !r.Success {
			outcome = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render("failed")
		}
		sb.WriteString(fmt.Sprintf("  tick %-5d %-7s %-8s %5dms  %s\n",
			r.Tick, r.Kind, outcome, r.DurationMs,
			dimStyle.Render(r.CreatedAt.Format("15:04:05"))))
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
