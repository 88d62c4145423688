//go:build gui

package gui

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const indicatorSize = 14

// Indicator is a status dot that breathes while a request is running.
type Indicator struct {
	widget.BaseWidget
	mu     sync.Mutex
	frame  int
	color  color.RGBA
	pulse  bool
	stopCh chan struct{}
}

func NewIndicator() *Indicator {
	i := &Indicator{color: colorIdle, stopCh: make(chan struct{})}
	i.ExtendBaseWidget(i)
	go i.animate()
	return i
}

func (i *Indicator) Set(c color.RGBA, pulse bool) {
	i.mu.Lock()
	i.color = c
	i.pulse = pulse
	i.mu.Unlock()
}

func (i *Indicator) Stop() {
	select {
	case <-i.stopCh:
	default:
		close(i.stopCh)
	}
}

func (i *Indicator) animate() {
	ticker := time.NewTicker(66 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-i.stopCh:
			return
		case <-ticker.C:
			i.mu.Lock()
			pulse := i.pulse
			i.frame++
			i.mu.Unlock()
			if pulse {
				fyne.Do(i.Refresh)
			}
		}
	}
}

func (i *Indicator) MinSize() fyne.Size {
	return fyne.NewSize(indicatorSize, indicatorSize)
}

func (i *Indicator) CreateRenderer() fyne.WidgetRenderer {
	return &indicatorRenderer{ind: i, dot: canvas.NewCircle(colorIdle)}
}

type indicatorRenderer struct {
	ind *Indicator
	dot *canvas.Circle
}

func (r *indicatorRenderer) Layout(size fyne.Size) {
	r.dot.Resize(size)
}

func (r *indicatorRenderer) MinSize() fyne.Size {
	return r.ind.MinSize()
}

func (r *indicatorRenderer) Refresh() {
	r.ind.mu.Lock()
	c := r.ind.color
	frame := r.ind.frame
	pulse := r.ind.pulse
	r.ind.mu.Unlock()

	fill := color.NRGBA{c.R, c.G, c.B, 255}
	if pulse {
		fill.A = uint8(150 + 105*(0.5+0.5*math.Sin(float64(frame)*0.3)))
	}
	r.dot.FillColor = fill
	r.dot.Refresh()
}

func (r *indicatorRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.dot}
}

func (r *indicatorRenderer) Destroy() {
	r.ind.Stop()
}
