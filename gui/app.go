//go:build gui

package gui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"

	"gamepal/governor"
	"gamepal/settings"
	"gamepal/voice"
)

const (
	windowWidth  = 420
	windowHeight = 360
	margin       = 24
)

// Actions are the overlay's buttons and tray items.
type Actions struct {
	Ask        func(string)
	Screenshot func()
	Record     func()
	Clear      func()
	CopyLast   func()
	Overlay    func()
}

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	theme   *darkTheme
	onReady func()

	indicator *Indicator
	status    *canvas.Text
	response  *widget.Label
	entry     *widget.Entry
	footer    *widget.Label

	audioBox  *fyne.Container
	audioSize *widget.Label
	playBtn   *widget.Button

	mu       sync.Mutex
	actions  Actions
	controls voice.Controls
	onTop    bool
	posX     int
	posY     int
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady, theme: &darkTheme{alpha: 230}, onTop: true}
}

// Configure applies the overlay settings. Call before Run or from any goroutine.
func (a *App) Configure(s settings.Settings) {
	a.mu.Lock()
	a.theme.alpha = backgroundAlpha(s.OverlayOpacity)
	a.onTop = s.AlwaysOnTop
	a.mu.Unlock()
	if a.fyneApp != nil {
		fyne.Do(func() { a.fyneApp.Settings().SetTheme(a.theme) })
	}
}

func (a *App) SetActions(act Actions) {
	a.mu.Lock()
	a.actions = act
	a.mu.Unlock()
}

func (a *App) action(pick func(Actions) func()) func() {
	return func() {
		a.mu.Lock()
		fn := pick(a.actions)
		a.mu.Unlock()
		if fn != nil {
			go fn()
		}
	}
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.gamepal.overlay")
	a.fyneApp.Settings().SetTheme(a.theme)

	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("gamepal",
			fyne.NewMenuItem("Show/Hide Overlay", a.action(func(x Actions) func() { return x.Overlay })),
			fyne.NewMenuItem("Take Screenshot", a.action(func(x Actions) func() { return x.Screenshot })),
			fyne.NewMenuItem("Record Question", a.action(func(x Actions) func() { return x.Record })),
			fyne.NewMenuItem("Copy Last Response", a.action(func(x Actions) func() { return x.CopyLast })),
		)
		desk.SetSystemTrayMenu(menu)
		desk.SetSystemTrayIcon(fyne.NewStaticResource("tray.png", iconPNG(44)))
	}

	var screenW int
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		_, _, screenW, _ = monitor.GetWorkarea()
	} else {
		screenW = 1920
	}
	a.posX = screenW - windowWidth - margin
	a.posY = margin

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.window = drv.CreateSplashWindow()
	} else {
		a.window = a.fyneApp.NewWindow("gamepal")
	}

	a.window.SetContent(a.build())
	a.window.SetFixedSize(true)
	a.window.Resize(fyne.NewSize(windowWidth, windowHeight))
	a.window.SetCloseIntercept(func() { a.SetVisible(false) })

	a.fyneApp.Lifecycle().SetOnStarted(func() {
		a.SetVisible(true)
		go a.onReady()
	})

	a.fyneApp.Run()
	return nil
}

func (a *App) build() fyne.CanvasObject {
	a.indicator = NewIndicator()
	a.status = canvas.NewText("Ready", colorReady)
	a.status.TextStyle = fyne.TextStyle{Bold: true}

	a.response = widget.NewLabel("")
	a.response.Wrapping = fyne.TextWrapWord

	a.entry = widget.NewEntry()
	a.entry.SetPlaceHolder("Ask about the game...")
	a.entry.OnSubmitted = func(text string) {
		a.mu.Lock()
		ask := a.actions.Ask
		a.mu.Unlock()
		if ask == nil {
			return
		}
		a.entry.SetText("")
		go ask(text)
	}

	a.audioSize = widget.NewLabel("")
	a.playBtn = widget.NewButton("Play", func() { a.control(func(c voice.Controls) error { return c.Play() }) })
	send := widget.NewButton("Send", func() {
		a.control(func(c voice.Controls) error { return c.Send(context.Background()) })
	})
	del := widget.NewButton("Delete", func() { a.control(func(c voice.Controls) error { return c.Delete() }) })
	a.audioBox = container.NewHBox(a.audioSize, a.playBtn, send, del)
	a.audioBox.Hide()

	a.footer = widget.NewLabel("")
	a.footer.TextStyle = fyne.TextStyle{Italic: true}

	buttons := container.NewHBox(
		widget.NewButton("Screenshot", a.action(func(x Actions) func() { return x.Screenshot })),
		widget.NewButton("Record", a.action(func(x Actions) func() { return x.Record })),
		widget.NewButton("Clear", a.action(func(x Actions) func() { return x.Clear })),
	)

	top := container.NewHBox(a.indicator, a.status)
	bottom := container.NewVBox(a.audioBox, a.entry, buttons, a.footer)
	return container.NewBorder(top, bottom, nil, nil, container.NewVScroll(a.response))
}

func (a *App) control(fn func(voice.Controls) error) {
	a.mu.Lock()
	c := a.controls
	a.mu.Unlock()
	if c.Play == nil {
		return
	}
	go fn(c)
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// Display implementation. Widget updates are marshalled onto the Fyne
// goroutine with fyne.Do.

func (a *App) Status(text string, st governor.State) {
	fyne.Do(func() {
		a.status.Text = text
		a.status.Color = statusColor(st)
		a.status.Refresh()
		a.indicator.Set(statusColor(st), st == governor.StateProcessing)
		a.indicator.Refresh()
	})
}

func (a *App) Response(text string) {
	fyne.Do(func() { a.response.SetText(text) })
}

func (a *App) ClearResponse() {
	fyne.Do(func() { a.response.SetText("") })
}

func (a *App) ShowAudioControls(sizeKB float64, c voice.Controls) {
	a.mu.Lock()
	a.controls = c
	a.mu.Unlock()
	fyne.Do(func() {
		a.audioSize.SetText(fmt.Sprintf("%.1f KB", sizeKB))
		a.playBtn.SetText("Play")
		a.audioBox.Show()
	})
}

func (a *App) HideAudioControls() {
	a.mu.Lock()
	a.controls = voice.Controls{}
	a.mu.Unlock()
	fyne.Do(func() { a.audioBox.Hide() })
}

func (a *App) PlaybackChanged(playing bool) {
	fyne.Do(func() {
		if playing {
			a.playBtn.SetText("Pause")
		} else {
			a.playBtn.SetText("Play")
		}
	})
}

func (a *App) Footer(text string) {
	fyne.Do(func() { a.footer.SetText(text) })
}

func (a *App) SetVisible(shown bool) {
	a.mu.Lock()
	onTop := a.onTop
	a.mu.Unlock()

	fyne.Do(func() {
		if a.window == nil {
			return
		}
		if !shown {
			a.window.Hide()
			return
		}
		if glfwWin := glfw.GetCurrentContext(); glfwWin != nil {
			glfwWin.SetPos(a.posX, a.posY)
			glfwWin.SetAttrib(glfw.FocusOnShow, glfw.False)
			if onTop {
				glfwWin.SetAttrib(glfw.Floating, glfw.True)
			}
		}
		a.window.Show()
	})
}
