package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

// ConfigurationSVG draws the particles as filled dots and the quasiholes as
// rings on a square canvas of size pixels. The view is centred on the origin
// and fitted to the outermost point.
func ConfigurationSVG(c plasma.Configuration, qh plasma.QuasiholeSet, size int) string {
	extent := 0.0
	for _, z := range c {
		extent = math.Max(extent, math.Max(math.Abs(real(z)), math.Abs(imag(z))))
	}
	for _, w := range qh {
		extent = math.Max(extent, math.Max(math.Abs(real(w)), math.Abs(imag(w))))
	}
	if extent == 0 || math.IsInf(extent, 0) || math.IsNaN(extent) {
		extent = 1
	}
	extent *= 1.1

	s := float64(size)
	toPx := func(z complex128) (float64, float64) {
		x := (real(z) + extent) / (2 * extent) * s
		y := s - (imag(z)+extent)/(2*extent)*s
		return x, y
	}
	dot := math.Max(1.5, s/150)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size))

	// axes through the origin
	ox, oy := toPx(0)
	sb.WriteString(fmt.Sprintf(`<g stroke="#333344" stroke-width="1">
<line x1="0" y1="%.1f" x2="%d" y2="%.1f"/>
<line x1="%.1f" y1="0" x2="%.1f" y2="%d"/>
</g>
`, oy, size, oy, ox, ox, size))

	sb.WriteString(`<g fill="#00ccff">` + "\n")
	for _, z := range c {
		x, y := toPx(z)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", x, y, dot))
	}
	sb.WriteString("</g>\n")

	if len(qh) > 0 {
		sb.WriteString(`<g fill="none" stroke="#ff00ff" stroke-width="1.5">` + "\n")
		for _, w := range qh {
			x, y := toPx(w)
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", x, y, 2*dot))
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// DensitySVG renders the density of h as a heat map with one square of cell
// pixels per histogram bin, brightest at the maximum density. Empty bins are
// left as background.
func DensitySVG(h *metrics.Histogram, n int, cell int) string {
	nb := h.Meta.NBins
	size := nb * cell
	rho := h.Density(n)

	peak := 0.0
	for _, row := range rho {
		for _, v := range row {
			peak = math.Max(peak, v)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size))

	if peak > 0 {
		for ix, row := range rho {
			for iy, v := range row {
				if v == 0 {
					continue
				}
				level := int(math.Round(255 * v / peak))
				// y grows downwards in svg
				sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="#%02x%02x%02x"/>`+"\n",
					ix*cell, (nb-1-iy)*cell, cell, cell, level/4, level, level))
			}
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}
