//go:build gui

package main

import (
	"runtime"

	"gamepal/gui"
	"gamepal/settings"
)

var guiApp *gui.App

// initGUI hands the main thread to Fyne and starts run() once the window
// exists.
func initGUI() {
	runtime.LockOSThread()

	guiApp = gui.NewApp(func() {
		run()
		guiApp.Quit()
	})
	if err := gui.Run(guiApp); err != nil {
		panic(err)
	}
}

func guiSurface() Display {
	if guiApp == nil {
		return nil
	}
	return guiApp
}

func configureGUI(s settings.Settings) {
	guiApp.Configure(s)
}

func bindGUI(a *app) {
	guiApp.SetActions(gui.Actions{
		Ask:        a.ask,
		Screenshot: a.screenshot,
		Record:     a.toggleRecording,
		Clear:      a.clear,
		CopyLast:   a.copyLast,
		Overlay:    a.toggleOverlay,
	})
}

func quitGUI() {
	if guiApp != nil {
		guiApp.Quit()
	}
}
