package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skypro1111/audio-cnn-visualizer/internal/render"
	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

var (
	nord3  = lipgloss.Color("#4C566A")
	nord4  = lipgloss.Color("#D8DEE9")
	nord8  = lipgloss.Color("#88C0D0")
	nord9  = lipgloss.Color("#81A1C1")
	nord11 = lipgloss.Color("#BF616A")
	nord13 = lipgloss.Color("#EBCB8B")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(nord8)
	sectionStyle = lipgloss.NewStyle().MarginTop(1).Foreground(nord9)
	primaryStyle = lipgloss.NewStyle().Bold(true).Foreground(nord13)
	faintStyle   = lipgloss.NewStyle().Faint(true).Foreground(nord4)
	warnStyle    = lipgloss.NewStyle().Foreground(nord11)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(nord3).Padding(0, 1)
)

const legendSteps = 21

// Write renders v to w
func Write(w io.Writer, v *view.View) error {
	_, err := io.WriteString(w, Render(v))
	return err
}

// Render returns the terminal form of v
func Render(v *view.View) string {
	var b strings.Builder

	title := "Audio CNN Visualizer"
	if v.FileName != "" {
		title += " · " + v.FileName
	}
	fmt.Fprintln(&b, titleStyle.Render(title))

	fmt.Fprintln(&b, sectionStyle.Render("Top Predictions"))
	for _, p := range v.Predictions {
		line := fmt.Sprintf("%s %-20s %6s", p.Glyph, p.DisplayName, p.Percent)
		if p.Primary {
			line = primaryStyle.Render(line)
		}
		fmt.Fprintln(&b, " "+line)
	}

	fmt.Fprintln(&b, sectionStyle.Render("Input Spectrogram"))
	fmt.Fprintln(&b, card(v.Spectrogram.Title, v.Spectrogram.Grid))

	fmt.Fprintln(&b, sectionStyle.Render("Audio Waveform"))
	fmt.Fprintln(&b, card(v.Waveform.Title, v.Waveform.Grid))

	fmt.Fprintln(&b, sectionStyle.Render("Convolutional Layer Outputs"))
	for _, layer := range v.Layers {
		parts := []string{card(layer.Name, layer.Grid)}
		for _, in := range layer.Internals {
			parts = append(parts, card(in.ShortName, in.Grid))
		}
		fmt.Fprintln(&b, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	fmt.Fprintln(&b, sectionStyle.Render("Colour Scale"))
	fmt.Fprintln(&b, " "+legend(v.Scale))

	if len(v.Diagnostics) > 0 {
		fmt.Fprintln(&b, sectionStyle.Render("Diagnostics"))
		for _, d := range v.Diagnostics {
			fmt.Fprintln(&b, " "+warnStyle.Render(fmt.Sprintf("%s [%s] %s", d.Layer, d.Kind, d.Message)))
		}
	}

	return b.String()
}

// card draws a titled grid, or a placeholder when rendering failed
func card(title string, g *render.Grid) string {
	if g == nil {
		return boxStyle.Render(title + "\n" + warnStyle.Render("unavailable"))
	}

	subtitle := g.Label
	if g.Rows*g.Cols < shapeSize(g.Shape) {
		subtitle += fmt.Sprintf(" (shown %d x %d)", g.Rows, g.Cols)
	}

	return boxStyle.Render(title + " " + faintStyle.Render(subtitle) + "\n" + cells(g))
}

func shapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func cells(g *render.Grid) string {
	rows := make([]string, len(g.Cells))
	for r, row := range g.Cells {
		var line strings.Builder
		for _, hex := range row {
			line.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  "))
		}
		rows[r] = line.String()
	}
	return strings.Join(rows, "\n")
}

func legend(l scale.Legend) string {
	s, err := scale.New(l.Min, l.Max)
	if err != nil {
		s = scale.Default()
	}

	var bar strings.Builder
	for i := 0; i < legendSteps; i++ {
		v := l.Min + (l.Max-l.Min)*float64(i)/float64(legendSteps-1)
		bar.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(s.Hex(v))).Render(" "))
	}

	return fmt.Sprintf("%g %s %g", l.Min, bar.String(), l.Max)
}
