package mqtt

import (
	"fmt"
	"strings"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

// pahoLogger adapts our structured logger to the Println/Printf shape both
// paho libraries expect for their internal error output.
type pahoLogger struct {
	component string
}

func (l pahoLogger) Println(v ...interface{}) {
	log.Warn(strings.TrimSpace(fmt.Sprintln(v...)), "component", l.component)
}

func (l pahoLogger) Printf(format string, v ...interface{}) {
	log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", l.component)
}
