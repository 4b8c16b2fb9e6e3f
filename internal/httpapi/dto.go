package httpapi

import (
	"time"

	"github.com/dgnsrekt/webreplay/internal/browserdrv"
)

// launchOptionsDTO is the wire shape of launchOptions in request bodies,
// mapping 1:1 onto browserdrv.LaunchOptions.
type launchOptionsDTO struct {
	ExecutablePath string   `json:"executablePath" required:"true" doc:"Path to a Chromium/Chrome binary."`
	Headless       bool     `json:"headless,omitempty"`
	UserDataDir    string   `json:"userDataDir,omitempty"`
	WindowWidth    int      `json:"windowWidth,omitempty"`
	WindowHeight   int      `json:"windowHeight,omitempty"`
	ExtraArgs      []string `json:"extraArgs,omitempty"`
	CDPPort        int      `json:"cdpPort,omitempty"`
}

func (o launchOptionsDTO) toDomain() browserdrv.LaunchOptions {
	return browserdrv.LaunchOptions{
		ExecutablePath: o.ExecutablePath,
		Headless:       o.Headless,
		UserDataDir:    o.UserDataDir,
		WindowWidth:    o.WindowWidth,
		WindowHeight:   o.WindowHeight,
		ExtraArgs:      o.ExtraArgs,
		CDPPort:        o.CDPPort,
	}
}

// gotoOptionsDTO overrides the default navigation timeout.
type gotoOptionsDTO struct {
	TimeoutMS int `json:"timeoutMs,omitempty" doc:"Navigation timeout in milliseconds."`
}

func (g *gotoOptionsDTO) timeout() time.Duration {
	if g == nil || g.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(g.TimeoutMS) * time.Millisecond
}
