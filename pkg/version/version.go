// Package version carries build metadata stamped in through -ldflags.
package version

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/gosuri/uitable"
	"github.com/spf13/pflag"
)

var (
	// GitVersion is the semantic version of the build.
	GitVersion = "v0.0.0-master+$Format:%h$"
	// GitCommit is the sha1 from git, output of $(git rev-parse HEAD).
	GitCommit = "$Format:%H$"
	// GitTreeState is "clean" or "dirty".
	GitTreeState = ""
	// BuildDate in ISO8601 format, output of $(date -u +'%Y-%m-%dT%H:%M:%SZ').
	BuildDate = "1970-01-01T00:00:00Z"
)

// Info contains versioning information.
type Info struct {
	GitVersion   string `json:"gitVersion"`
	GitCommit    string `json:"gitCommit"`
	GitTreeState string `json:"gitTreeState"`
	BuildDate    string `json:"buildDate"`
	GoVersion    string `json:"goVersion"`
	Compiler     string `json:"compiler"`
	Platform     string `json:"platform"`
}

// Get returns the overall codebase version.
func Get() Info {
	return Info{
		GitVersion:   GitVersion,
		GitCommit:    GitCommit,
		GitTreeState: GitTreeState,
		BuildDate:    BuildDate,
		GoVersion:    runtime.Version(),
		Compiler:     runtime.Compiler,
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the git version.
func (info Info) String() string {
	return info.GitVersion
}

// Text renders the version information as an aligned table.
func (info Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "
	table.AddRow("gitVersion:", info.GitVersion)
	table.AddRow("gitCommit:", info.GitCommit)
	table.AddRow("gitTreeState:", info.GitTreeState)
	table.AddRow("buildDate:", info.BuildDate)
	table.AddRow("goVersion:", info.GoVersion)
	table.AddRow("compiler:", info.Compiler)
	table.AddRow("platform:", info.Platform)
	return table.String()
}

// ToJSON returns the JSON string of version information.
func (info Info) ToJSON() string {
	s, _ := json.Marshal(info)
	return string(s)
}

type versionValue int

const (
	versionFalse versionValue = iota
	versionTrue
	versionRaw
)

const strRawVersion = "raw"

func (v *versionValue) IsBoolFlag() bool { return true }

func (v *versionValue) Get() interface{} { return *v }

func (v *versionValue) Set(s string) error {
	if s == strRawVersion {
		*v = versionRaw
		return nil
	}
	switch s {
	case "true":
		*v = versionTrue
	case "false":
		*v = versionFalse
	default:
		return fmt.Errorf("invalid value %q for --version (true, false, raw)", s)
	}
	return nil
}

func (v *versionValue) String() string {
	switch *v {
	case versionRaw:
		return strRawVersion
	case versionTrue:
		return "true"
	}
	return "false"
}

func (v *versionValue) Type() string { return "version" }

const versionFlagName = "version"

var versionFlag = versionFalse

// AddFlags registers --version on the flag set.
func AddFlags(fs *pflag.FlagSet) {
	fs.Var(&versionFlag, versionFlagName, "Print version information and quit. --version=raw prints the full table.")
	fs.Lookup(versionFlagName).NoOptDefVal = "true"
}

// PrintAndExitIfRequested checks if --version was passed and, if so, prints
// the version and exits.
func PrintAndExitIfRequested() {
	switch versionFlag {
	case versionRaw:
		fmt.Println(Get().Text())
		os.Exit(0)
	case versionTrue:
		fmt.Println(Get().String())
		os.Exit(0)
	}
}
