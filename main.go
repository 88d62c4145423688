package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"gopkg.in/yaml.v3"

	"gamepal/audio"
	"gamepal/backend"
	"gamepal/doctor"
	"gamepal/hotkey"
	"gamepal/log"
	"gamepal/settings"
	"gamepal/shutdown"
	"gamepal/sound"
	"gamepal/tray"
	"gamepal/voice"
)

var version = "dev"

const footerEvery = 30 * time.Second

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func loadStore(flagPath string) *settings.Store {
	path, err := settings.ResolvePath(flagPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store, err := settings.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	return store
}

// runSettings prints the settings file, or applies key=value updates to it.
func runSettings(args []string) int {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	pathFlag := fs.String("settings", "", "settings file path (default: user config dir)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store := loadStore(*pathFlag)
	s := store.Get()
	if fs.NArg() > 0 {
		u, err := settings.ParseUpdate(fs.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if s, err = store.Update(u); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		log.Infof("settings updated: %s", store.Path())
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("# %s\n%sapi_key_configured: %t\n", store.Path(), out, s.APIKeyConfigured)
	return 0
}

func findDevice(ctx audio.Context, name string) *audio.DeviceInfo {
	devices, err := ctx.Devices()
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
		return nil
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i]
		}
	}
	log.Warnf("device not found: %s", name)
	fmt.Printf("Warning: microphone %q not found, using system default\n", name)
	return nil
}

func registerHotkey(b hotkey.Binding) hotkey.Hotkey {
	hk := hotkey.New(b)
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey %s register error: %v", b, err)
		fmt.Fprintf(os.Stderr, "Warning: %s unavailable: %v\n", b, err)
		return nil
	}
	return hk
}

func keydown(hk hotkey.Hotkey) <-chan struct{} {
	if hk == nil {
		return nil
	}
	return hk.Keydown()
}

func keyup(hk hotkey.Hotkey) <-chan struct{} {
	if hk == nil {
		return nil
	}
	return hk.Keyup()
}

func run() {
	if len(os.Args) > 1 && os.Args[1] == "settings" {
		os.Exit(runSettings(os.Args[2:]))
	}

	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	backendFlag := flag.String("backend", "", "backend URL (default: $GAMEPAL_BACKEND_URL or "+backend.DefaultURL+")")
	settingsFlag := flag.String("settings", "", "settings file path (default: $GAMEPAL_SETTINGS or user config dir)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	autoCaptureFlag := flag.Bool("autocapture", false, "Take a screenshot every screenshot_interval_ms")
	noCuesFlag := flag.Bool("nocues", false, "Disable recording sound cues")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Long-press threshold for push-to-talk vs tap (e.g., 350ms)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Bool("gui", false, "Run the Fyne overlay window (requires -tags gui)")
	flag.Parse()

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}
	if *versionFlag {
		fmt.Printf("gamepal %s\n", version)
		os.Exit(0)
	}
	if *noCuesFlag {
		sound.Disable()
	}

	client := backend.New(backend.ResolveURL(*backendFlag))
	store := loadStore(*settingsFlag)

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: gamepal -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], client, store, *longPressFlag)
		return
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if *deviceFlag != "" {
		device = findDevice(actx, *deviceFlag)
	} else if *setupFlag {
		device, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			device = nil
		}
	}

	if *doctorFlag {
		os.Exit(doctor.Run(doctor.Config{Backend: client, Device: device}))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.SessionStart(client.BaseURL(), settings.APIKeyConfigured())

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	var display Display
	switch {
	case guiSurface() != nil:
		display = guiSurface()
		configureGUI(store.Get())
	case *tuiFlag:
		display = tuiSink{}
	default:
		display = &lineDisplay{w: os.Stdout}
	}

	a := newApp(ctx, client, store, voice.FromSource(audio.NewSource(actx, device)), display, nil)
	bindGUI(a)

	if *tuiFlag && guiSurface() == nil {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(a.tuiActions())
		tuiMu.Unlock()
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			stop()
		}()
	}

	// the Fyne app owns the tray when the overlay window runs
	var trayQuit <-chan struct{}
	if guiSurface() == nil {
		tray.SetHandlers(a.trayHandlers())
		trayQuit = tray.Init()
	}

	go sound.Init()
	go a.watchFooter(footerEvery)
	if *autoCaptureFlag {
		go a.autoCapture()
	}

	shotKey := registerHotkey(hotkey.Screenshot)
	overlayKey := registerHotkey(hotkey.Overlay)
	voiceKey := registerHotkey(hotkey.Voice)
	var voiceStart, voiceStop <-chan struct{}
	if voiceKey != nil {
		hy := hotkey.NewHybrid(voiceKey, *longPressFlag)
		defer hy.Close()
		voiceStart, voiceStop = hy.Start(), hy.StopChan()
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-trayQuit:
			break loop
		case <-keydown(shotKey):
			log.Info("hotkey_screenshot")
			go a.screenshot()
		case <-keyup(shotKey):
		case <-keydown(overlayKey):
			a.toggleOverlay()
		case <-keyup(overlayKey):
		case <-voiceStart:
			log.Info("hotkey_voice_start")
			a.startRecording()
		case <-voiceStop:
			log.Info("hotkey_voice_stop")
			a.stopRecording()
		}
	}

	for _, hk := range []hotkey.Hotkey{shotKey, overlayKey, voiceKey} {
		if hk != nil {
			hk.Unregister()
		}
	}
	log.SessionEnd(a.close())
	log.Close()
	tray.Quit()
	tuiMu.Lock()
	if tuiProgram != nil {
		tuiProgram.Quit()
	}
	tuiMu.Unlock()
	quitGUI()
}
