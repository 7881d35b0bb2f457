// Package export renders computed frequency responses to SVG for
// reports and offline inspection.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/fpgakit/pidhost/internal/response"
)

// BodeToSVG renders a two-panel Bode plot (magnitude in dB over a
// log frequency axis, phase in degrees below it) of the given
// response. Singular samples are skipped, breaking the trace there.
func BodeToSVG(pts []response.Point, width, height int) string {
	finite := make([]response.Point, 0, len(pts))
	for _, p := range pts {
		if !p.Singular && p.Frequency > 0 {
			finite = append(finite, p)
		}
	}
	if len(finite) < 2 {
		return ""
	}

	panelH := height / 2
	mags := response.MagnitudesDB(finite)
	phases := response.Phases(finite)
	for i := range phases {
		phases[i] *= 180 / math.Pi
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	writePanel(&sb, finite, mags, width, 0, panelH, "#00ff88", "magnitude [dB]")
	writePanel(&sb, finite, phases, width, panelH, panelH, "#ffaa00", "phase [deg]")

	sb.WriteString("</svg>")
	return sb.String()
}

func writePanel(sb *strings.Builder, pts []response.Point, ys []float64, width, top, height int, stroke, label string) {
	logMin := math.Log10(pts[0].Frequency)
	logMax := math.Log10(pts[len(pts)-1].Frequency)
	if logMax == logMin {
		logMax = logMin + 1
	}

	minY, maxY := ys[0], ys[0]
	for _, y := range ys {
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	// Decade grid lines.
	for d := math.Ceil(logMin); d <= logMax; d++ {
		x := (d - logMin) / (logMax - logMin) * float64(width)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#222" stroke-width="1"/>
`, x, top, x, top+height))
	}

	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke))
	for i, p := range pts {
		x := (math.Log10(p.Frequency) - logMin) / (logMax - logMin) * float64(width)
		y := float64(top) + float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")

	sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="#888" font-family="monospace" font-size="12">%s</text>
`, top+16, label))
}
