package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/creditbar/internal/models"
)

func TestApplyTheme(t *testing.T) {
	prev := lipgloss.HasDarkBackground()
	t.Cleanup(func() { lipgloss.SetHasDarkBackground(prev) })

	ApplyTheme(models.ThemeLight)
	if lipgloss.HasDarkBackground() {
		t.Error("light theme should clear the dark background flag")
	}

	ApplyTheme(models.ThemeDark)
	if !lipgloss.HasDarkBackground() {
		t.Error("dark theme should set the dark background flag")
	}

	ApplyTheme(models.ThemeSystem)
	if !lipgloss.HasDarkBackground() {
		t.Error("system theme should leave detection alone")
	}
}

func TestGetStatusStyle(t *testing.T) {
	if !GetStatusStyle(models.StatusCritical).GetBlink() {
		t.Error("critical balances should blink")
	}
	if GetStatusStyle(models.StatusHealthy).GetBlink() {
		t.Error("healthy balances should not blink")
	}
	if GetStatusStyle(models.StatusUnknown).GetBold() {
		t.Error("unknown status should be plain")
	}
}

func TestCenterBoth(t *testing.T) {
	out := CenterBoth("x", 9, 3)
	if lipgloss.Height(out) != 3 || lipgloss.Width(out) != 9 {
		t.Errorf("CenterBoth size = %dx%d", lipgloss.Width(out), lipgloss.Height(out))
	}
}
