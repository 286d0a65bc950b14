package nodes

import "math"

// Functions in this file are shared by the interpreter and generated
// units: their source is embedded and copied into every unit that uses
// them, so they may only depend on the standard library and the node
// library types.

// asciiRender maps every pixel to the palette entry at brightness*(len-1),
// clamped to the palette.
func asciiRender(img Canvas, palette string) []string {
	p := []rune(palette)
	lines := make([]string, img.Rows)
	for row := 0; row < img.Rows; row++ {
		line := make([]rune, img.Cols)
		for col := 0; col < img.Cols; col++ {
			idx := int(img.Pix[row*img.Cols+col] * float64(len(p)-1))
			if idx < 0 {
				idx = 0
			}
			if idx > len(p)-1 {
				idx = len(p) - 1
			}
			line[col] = p[idx]
		}
		lines[row] = string(line)
	}
	return lines
}

// gridSpan counts the samples lo, lo+step, ... that do not exceed hi.
func gridSpan(lo, hi, step float64) int {
	if step <= 0 || hi < lo {
		return 0
	}
	return int(math.Floor((hi-lo)/step+1e-9)) + 1
}
