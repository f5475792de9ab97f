package log

import (
	"strings"

	"github.com/RackSec/srslog"
	"go.uber.org/zap/zapcore"
)

// syslogCore forwards entries to a remote syslog collector using RFC 5424
// framing. Delivery is fire-and-forget: write errors are dropped.
type syslogCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	w   *srslog.Writer
}

var _ zapcore.Core = (*syslogCore)(nil)

func newSyslogCore(opts *SyslogOptions, level zapcore.LevelEnabler) (zapcore.Core, error) {
	network := opts.Network
	if network == "" {
		network = "udp"
	}

	w, err := srslog.Dial(network, opts.Server, srslog.LOG_KERN|srslog.LOG_INFO, opts.AppName)
	if err != nil {
		return nil, err
	}
	w.SetFormatter(srslog.RFC5424Formatter)
	if opts.Hostname != "" {
		w.SetHostname(opts.Hostname)
	}

	// The collector stamps time and severity itself.
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "message",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})

	return &syslogCore{LevelEnabler: level, enc: enc, w: w}, nil
}

func (c *syslogCore) With(fields []zapcore.Field) zapcore.Core {
	clone := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(clone)
	}
	return &syslogCore{LevelEnabler: c.LevelEnabler, enc: clone, w: c.w}
}

func (c *syslogCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *syslogCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return nil
	}
	msg := strings.TrimSuffix(buf.String(), "\n")
	buf.Free()

	switch {
	case ent.Level >= zapcore.DPanicLevel:
		_ = c.w.Crit(msg)
	case ent.Level == zapcore.ErrorLevel:
		_ = c.w.Err(msg)
	case ent.Level == zapcore.WarnLevel:
		_ = c.w.Warning(msg)
	case ent.Level == zapcore.InfoLevel:
		_ = c.w.Info(msg)
	default:
		_ = c.w.Debug(msg)
	}
	return nil
}

func (c *syslogCore) Sync() error { return nil }
