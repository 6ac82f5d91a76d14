package logging

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// ANSI palette for access log badges
var (
	blue    = lipgloss.Color("4")
	cyan    = lipgloss.Color("6")
	yellow  = lipgloss.Color("3")
	magenta = lipgloss.Color("5")
	red     = lipgloss.Color("1")
	green   = lipgloss.Color("2")
	black   = lipgloss.Color("0")
)

type styles struct {
	methods map[string]lipgloss.Style
	unknown lipgloss.Style

	serverError lipgloss.Style
	clientError lipgloss.Style
	redirect    lipgloss.Style
	success     lipgloss.Style
	plain       lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *styles {
	badge := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Foreground(c).Bold(true)
	}

	return &styles{
		methods: map[string]lipgloss.Style{
			"GET":    badge(blue),
			"POST":   badge(cyan),
			"PUT":    badge(yellow),
			"PATCH":  badge(magenta),
			"DELETE": badge(red),
		},
		unknown:     badge(black),
		serverError: badge(red),
		clientError: badge(yellow),
		redirect:    badge(cyan),
		success:     badge(green),
		plain:       r.NewStyle(),
	}
}

func (s *styles) method(m string) string {
	if st, ok := s.methods[m]; ok {
		return st.Render(m)
	}
	return s.unknown.Render(m)
}

func (s *styles) status(code int) string {
	text := strconv.Itoa(code)
	switch {
	case code >= 500:
		return s.serverError.Render(text)
	case code >= 400:
		return s.clientError.Render(text)
	case code >= 300:
		return s.redirect.Render(text)
	case code >= 200:
		return s.success.Render(text)
	default:
		return s.plain.Render(text)
	}
}
