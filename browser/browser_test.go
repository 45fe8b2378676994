package browser

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

func TestResourceFilter(t *testing.T) {
	f := newResourceFilter([]string{"images", " Fonts ", "ping", "scripts", "bogus"})
	tests := []struct {
		typ  proto.NetworkResourceType
		want bool
	}{
		{proto.NetworkResourceTypeImage, true},
		{proto.NetworkResourceTypeFont, true},
		{proto.NetworkResourceTypePing, true},
		{proto.NetworkResourceTypeStylesheet, false},
		{proto.NetworkResourceTypeMedia, false},
		{proto.NetworkResourceTypeDocument, false},
		{proto.NetworkResourceTypeScript, false},
		{proto.NetworkResourceTypeXHR, false},
	}
	for _, tt := range tests {
		if got := f.blocks(tt.typ); got != tt.want {
			t.Errorf("blocks(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
	if len(newResourceFilter(nil)) != 0 {
		t.Error("no names, no filter")
	}
}

func TestURLMatches(t *testing.T) {
	tests := []struct {
		url, match string
		want       bool
	}{
		{"https://ceac.state.gov/GenNIV/General/complete/complete_personal.aspx", "ceac.state.gov", true},
		{"https://CEAC.state.gov/GenNIV/", "ceac.state.gov", true},
		{"https://example.com/", "ceac.state.gov", false},
		{"about:blank", "", false},
		{"chrome://newtab/", "", false},
		{"https://example.com/", "", true},
	}
	for _, tt := range tests {
		if got := urlMatches(tt.url, tt.match); got != tt.want {
			t.Errorf("urlMatches(%q, %q) = %v, want %v", tt.url, tt.match, got, tt.want)
		}
	}
}

func TestDecodeOptions(t *testing.T) {
	opts, err := decodeOptions(`[{"value":"","text":"- SELECT ONE -","selected":true},{"value":"M","text":"MALE","selected":false}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 || opts[1].Value != "M" || opts[1].Text != "MALE" || !opts[0].Selected {
		t.Fatalf("options: %+v", opts)
	}
	if _, err := decodeOptions("not json"); err == nil {
		t.Fatal("invalid JSON should error")
	}
}

func TestConfigDefaults(t *testing.T) {
	m := NewManager(Config{})
	if m.cfg.XvfbDisplay != ":99" {
		t.Errorf("display: got %q", m.cfg.XvfbDisplay)
	}
	if m.cfg.NavTimeout != 30*time.Second {
		t.Errorf("nav timeout: got %v", m.cfg.NavTimeout)
	}
	if m.cfg.Logger == nil {
		t.Error("logger should default")
	}
	if m.Browser() != nil {
		t.Error("browser before Start should be nil")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("headless") != ModeHeadless {
		t.Error("headless")
	}
	if ParseMode("headful") != ModeHeadful || ParseMode("") != ModeHeadful {
		t.Error("headful default")
	}
	if ModeHeadless.String() != "headless" {
		t.Error("String")
	}
}

func TestClosedManagerRefusesStart(t *testing.T) {
	m := NewManager(Config{})
	m.Close()
	if _, err := m.Start(t.Context()); err != ErrClosed {
		t.Fatalf("Start after Close: got %v, want ErrClosed", err)
	}
}

func TestDisplaySocket(t *testing.T) {
	for in, want := range map[string]string{
		":99":   "/tmp/.X11-unix/X99",
		":0.0":  "/tmp/.X11-unix/X0",
		":1234": "/tmp/.X11-unix/X1234",
	} {
		if got := displaySocket(in); got != want {
			t.Errorf("displaySocket(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestWaitDisplayTimesOut(t *testing.T) {
	err := waitDisplay(context.Background(), ":987654", 120*time.Millisecond)
	if err == nil {
		t.Fatal("missing display should time out")
	}
}
