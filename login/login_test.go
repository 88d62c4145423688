package login

import (
	"strings"
	"testing"
)

func TestRenderPlist(t *testing.T) {
	env := map[string]string{
		"GAMEPAL_BACKEND_URL": "http://127.0.0.1:9000",
		"OPENAI_API_KEY":      "sk-<secret>&",
	}
	got := renderPlist("/Applications/gamepal", []string{"-tui=false", "-autocapture"}, func(k string) string { return env[k] })

	for _, want := range []string{
		"<string>io.gamepal.overlay</string>",
		"<string>/Applications/gamepal</string>\n\t\t<string>-tui=false</string>\n\t\t<string>-autocapture</string>",
		"<key>GAMEPAL_BACKEND_URL</key>\n\t\t<string>http://127.0.0.1:9000</string>",
		"<string>sk-&lt;secret&gt;&amp;</string>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("plist missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "GAMEPAL_SETTINGS") {
		t.Error("unset variables must not be written")
	}
}
