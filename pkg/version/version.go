package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set through -ldflags "-X github.com/NeuralTrust/CareGuard/pkg/version.Commit=..."
var (
	Version   = "0.3.0"
	AppName   = "CareGuard"
	Commit    = "dev"
	BuildDate = "unknown"
)

type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s+%s (%s, built %s)", i.AppName, i.Version, i.Commit, i.Platform, i.BuildDate)
}

// ClientID identifies this build to brokers and peers, e.g. "careguard-engine/0.3.0".
func ClientID(component string) string {
	id := strings.ToLower(AppName)
	if component != "" {
		id += "-" + component
	}
	return id + "/" + Version
}
