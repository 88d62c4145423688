//go:build darwin || windows

package tray

import (
	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"

	"gamepal/log"
	"gamepal/login"
)

var (
	mOverlay    *systray.MenuItem
	mScreenshot *systray.MenuItem
	mRecord     *systray.MenuItem
	mCopy       *systray.MenuItem
	mLogin      *systray.MenuItem
	mQuit       *systray.MenuItem
)

func Init() <-chan struct{} {
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
	return quitCh
}

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTooltip("gamepal")

	mu.Lock()
	shown, rec, b, answer := visible, recording, busy, hasAnswer
	mu.Unlock()

	mOverlay = systray.AddMenuItem(overlayTitle(shown), "Ctrl+Shift+G")
	systray.AddSeparator()
	mScreenshot = systray.AddMenuItem("Take Screenshot", "Ctrl+Shift+S")
	mRecord = systray.AddMenuItem(recordTitle(rec), "Ctrl+Shift+Space")
	mCopy = systray.AddMenuItem("Copy Last Response", "")
	systray.AddSeparator()
	loginClicked := make(chan struct{})
	if login.Supported() {
		mLogin = systray.AddMenuItemCheckbox("Start at Login", "", login.Enabled())
		loginClicked = mLogin.ClickedCh
	}
	mQuit = systray.AddMenuItem("Quit", "")

	updateBusy(b)
	updateCopy(answer)

	go func() {
		for {
			select {
			case <-mOverlay.ClickedCh:
				call(func(h Handlers) func() { return h.ToggleOverlay })
			case <-mScreenshot.ClickedCh:
				call(func(h Handlers) func() { return h.Screenshot })
			case <-mRecord.ClickedCh:
				call(func(h Handlers) func() { return h.Record })
			case <-mCopy.ClickedCh:
				call(func(h Handlers) func() { return h.CopyLast })
			case <-loginClicked:
				toggleLogin()
			case <-mQuit.ClickedCh:
				Quit()
				return
			}
		}
	}()
}

func onExit() {}

func toggleLogin() {
	if mLogin.Checked() {
		if err := login.Disable(); err != nil {
			log.Errorf("login item disable: %v", err)
			SetError(err.Error())
			return
		}
		mLogin.Uncheck()
		return
	}
	if err := login.Enable(); err != nil {
		log.Errorf("login item enable: %v", err)
		SetError(err.Error())
		return
	}
	mLogin.Check()
}

func updateRecording(rec bool) {
	if mRecord == nil {
		return
	}
	if rec {
		systray.SetIcon(iconRecHi)
	} else {
		systray.SetTemplateIcon(iconIdleHi, iconIdle)
	}
	mRecord.SetTitle(recordTitle(rec))
}

func updateBusy(b bool) {
	if mScreenshot == nil {
		return
	}
	if b {
		systray.SetIcon(iconBusyHi)
		mScreenshot.Disable()
	} else {
		mScreenshot.Enable()
		mu.Lock()
		rec := recording
		mu.Unlock()
		updateRecording(rec)
	}
}

func updateOverlay(shown bool) {
	if mOverlay != nil {
		mOverlay.SetTitle(overlayTitle(shown))
	}
}

func updateCopy(ok bool) {
	if mCopy == nil {
		return
	}
	if ok {
		mCopy.Enable()
	} else {
		mCopy.Disable()
	}
}

func updateTooltip(msg string) {
	if mQuit == nil {
		return
	}
	systray.SetTooltip(msg)
}
