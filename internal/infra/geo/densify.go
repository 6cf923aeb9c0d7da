package geo

import "github.com/paulmach/orb"

// Densify returns a copy of line with interpolated points inserted along
// every edge longer than spacingMeters, so that no two consecutive points
// are farther apart than the spacing. Original points are preserved in
// order; an edge of length d gains floor(d/spacing) evenly spaced points,
// linearly interpolated in lon/lat (acceptable at city scale). Zero-length
// edges from duplicate consecutive points add nothing.
//
// Densification exists to bound the gap between index points: without it a
// route point querying a small buffer could skip over a segment that
// passes between two widely spaced raw points.
func (p *Projector) Densify(line orb.LineString, spacingMeters float64) orb.LineString {
	if spacingMeters <= 0 {
		return line.Clone()
	}

	dense := make(orb.LineString, 0, len(line))
	for i := range line {
		dense = append(dense, line[i])

		if i+1 >= len(line) {
			break
		}

		dist := p.Distance(line[i], line[i+1])
		if dist <= spacingMeters {
			continue
		}

		nInterp := int(dist / spacingMeters)
		for j := 1; j <= nInterp; j++ {
			frac := float64(j) / float64(nInterp+1)
			dense = append(dense, orb.Point{
				line[i][0] + frac*(line[i+1][0]-line[i][0]),
				line[i][1] + frac*(line[i+1][1]-line[i][1]),
			})
		}
	}

	return dense
}
