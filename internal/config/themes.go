package config

import (
	"sort"

	"github.com/ivlev/quotereel/internal/content"
)

// Theme - цветовая тема ролика.
type Theme struct {
	ID             string
	Name           string
	PrimaryText    string
	HighlightText  string
	OverlayOpacity float64
	ParticleColor  string
	ParticleGlow   string
	GradientStart  string
	GradientEnd    string
}

// DefaultTheme - темный градиент, частицы по настроению категории.
var DefaultTheme = Theme{
	ID:             "default",
	Name:           "Default",
	PrimaryText:    "#ffffff",
	HighlightText:  "#fbbf24",
	OverlayOpacity: 0.5,
	GradientStart:  "#1c1917",
	GradientEnd:    "#0c0a09",
}

var themes = map[string]Theme{
	"golden-heaven": {
		ID: "golden-heaven", Name: "Cielo Dorado",
		PrimaryText: "#FFD700", HighlightText: "#FFF4E6", OverlayOpacity: 0.5,
		ParticleColor: "#FFD700", ParticleGlow: "#FFA500",
		GradientStart: "#1a1410", GradientEnd: "#2d1f0f",
	},
	"mystic-blue": {
		ID: "mystic-blue", Name: "Azul Místico",
		PrimaryText: "#87CEEB", HighlightText: "#E0F7FF", OverlayOpacity: 0.55,
		ParticleColor: "#87CEEB", ParticleGlow: "#4A90E2",
		GradientStart: "#0a0e1a", GradientEnd: "#1a1f3a",
	},
	"royal-purple": {
		ID: "royal-purple", Name: "Púrpura Real",
		PrimaryText: "#DA70D6", HighlightText: "#F8E5FF", OverlayOpacity: 0.5,
		ParticleColor: "#DA70D6", ParticleGlow: "#9370DB",
		GradientStart: "#14001e", GradientEnd: "#2a0f3a",
	},
	"emerald-peace": {
		ID: "emerald-peace", Name: "Paz Esmeralda",
		PrimaryText: "#50C878", HighlightText: "#E8FFF0", OverlayOpacity: 0.5,
		ParticleColor: "#50C878", ParticleGlow: "#2ECC71",
		GradientStart: "#0a1a14", GradientEnd: "#0f2a1f",
	},
}

// LookupTheme возвращает тему по имени; неизвестное имя дает тему по умолчанию.
func LookupTheme(id string) (Theme, bool) {
	if t, ok := themes[id]; ok {
		return t, true
	}
	return DefaultTheme, false
}

// ThemeFor выбирает тему задания: явная тема задания, затем тема цитаты.
func ThemeFor(job *content.Job) Theme {
	if t, ok := LookupTheme(job.Theme); ok {
		return t
	}
	t, _ := LookupTheme(job.Quote.Theme)
	return t
}

func ThemeIDs() []string {
	ids := make([]string, 0, len(themes))
	for id := range themes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
