package contour

// Style is the display hint attached to a polygon.
type Style struct {
	Color   string
	Opacity float64
}

// styleBands maps a threshold/max ratio to a style, highest band first.
var styleBands = []struct {
	minRatio float64
	style    Style
}{
	{0.8, Style{Color: "#800026", Opacity: 0.8}},
	{0.5, Style{Color: "#e31a1c", Opacity: 0.7}},
	{0.2, Style{Color: "#fd8d3c", Opacity: 0.55}},
	{0.05, Style{Color: "#fed976", Opacity: 0.4}},
}

// ratioSlack absorbs rounding in threshold/max for the default fractions.
const ratioSlack = 1e-9

var faintest = Style{Color: "#ffffcc", Opacity: 0.3}

// StyleFor returns the style for a contour at ratio of the field maximum.
func StyleFor(ratio float64) Style {
	for _, b := range styleBands {
		if ratio+ratioSlack >= b.minRatio {
			return b.style
		}
	}
	return faintest
}
