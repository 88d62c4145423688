package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"gamepal/governor"
)

var (
	colorProcessing = color.RGBA{255, 175, 0, 255}
	colorReady      = color.RGBA{0, 215, 135, 255}
	colorError      = color.RGBA{255, 59, 48, 255}
	colorIdle       = color.RGBA{180, 180, 180, 255}
)

func statusColor(st governor.State) color.RGBA {
	switch st {
	case governor.StateProcessing:
		return colorProcessing
	case governor.StateReady:
		return colorReady
	case governor.StateError:
		return colorError
	}
	return colorIdle
}

// backgroundAlpha converts the overlay opacity setting to an alpha byte.
func backgroundAlpha(opacity float64) uint8 {
	if opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return 255
	}
	return uint8(math.Round(opacity * 255))
}

// iconPNG draws the tray icon: a controller-red core inside a dark ring.
func iconPNG(size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scale := float64(size) / 22
	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center + 0.5
			dy := float64(y) - center + 0.5
			dist := math.Sqrt(dx*dx+dy*dy) / scale

			switch {
			case dist < 4:
				img.Set(x, y, color.RGBA{255, 50, 50, 255})
			case dist < 7:
				t := (dist - 4) / 3
				img.Set(x, y, color.RGBA{uint8(255 - t*100), uint8(50 + t*50), 0, 255})
			case dist < 9:
				img.Set(x, y, color.RGBA{80, 20, 20, 255})
			case dist < 10:
				img.Set(x, y, color.RGBA{40, 10, 10, 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("iconPNG: " + err.Error())
	}
	return buf.Bytes()
}
