package export

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// gridGap is the spacing between grid cells in pixels.
const gridGap = 8

// ComposeGrid places frames row by row on one image. Cells take the size
// of the first frame; other frames are scaled to fit.
func ComposeGrid(frames []image.Image, grid GridSize) image.Image {
	if len(frames) == 0 || grid.Cols == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	cell := frames[0].Bounds().Size()
	width := grid.Cols*cell.X + (grid.Cols+1)*gridGap
	height := grid.Rows*cell.Y + (grid.Rows+1)*gridGap

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, frame := range frames {
		col, row := i%grid.Cols, i/grid.Cols
		x := gridGap + col*(cell.X+gridGap)
		y := gridGap + row*(cell.Y+gridGap)
		r := image.Rect(x, y, x+cell.X, y+cell.Y)

		if frame.Bounds().Size() == cell {
			draw.Draw(dst, r, frame, frame.Bounds().Min, draw.Src)
		} else {
			draw.ApproxBiLinear.Scale(dst, r, frame, frame.Bounds(), draw.Src, nil)
		}
	}
	return dst
}
