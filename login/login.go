// Package login registers gamepal to start with the user session.
package login

import (
	"errors"
	"fmt"
	"html"
	"os"
	"strings"
)

const label = "io.gamepal.overlay"

var ErrUnsupported = errors.New("start at login is not supported on this platform")

// envKeys are forwarded to the login item so it finds the same backend.
var envKeys = []string{"GAMEPAL_BACKEND_URL", "GAMEPAL_SETTINGS", "GAMEPAL_LOG_PATH", "OPENAI_API_KEY"}

// Args starts the login item without a terminal UI.
var Args = []string{"-tui=false"}

func renderPlist(exe string, args []string, getenv func(string) string) string {
	var prog strings.Builder
	for _, a := range append([]string{exe}, args...) {
		fmt.Fprintf(&prog, "\t\t<string>%s</string>\n", html.EscapeString(a))
	}

	var env strings.Builder
	for _, key := range envKeys {
		if v := getenv(key); v != "" {
			fmt.Fprintf(&env, "\t\t<key>%s</key>\n\t\t<string>%s</string>\n", key, html.EscapeString(v))
		}
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
%s	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>LimitLoadToSessionType</key>
	<string>Aqua</string>
	<key>EnvironmentVariables</key>
	<dict>
%s	</dict>
</dict>
</plist>
`, label, prog.String(), env.String())
}

func plist() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return renderPlist(exe, Args, os.Getenv), nil
}
