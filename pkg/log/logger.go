package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// NewContextWithLogger installs the global console logger and returns a
// context carrying it. Output goes to stdout unless out is provided; the MCP
// stdio transport passes stderr so protocol frames stay clean.
func NewContextWithLogger(ctx context.Context, debug bool, out ...io.Writer) (context.Context, func()) {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return ""
	}

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var dst io.Writer = os.Stdout
	if len(out) > 0 && out[0] != nil {
		dst = out[0]
	}

	// Ring buffer of 1000 messages, polled every 5ms
	wr := diode.NewWriter(dst, 1000, 5*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "Logger Dropped %d messages\n", missed)
	})

	output := zerolog.ConsoleWriter{
		Out:        wr,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return log.With().Logger().WithContext(ctx), func() {
		wr.Close()
	}
}

func FromCtx(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}

// With returns a context whose logger carries an extra string field.
func With(ctx context.Context, key, value string) context.Context {
	l := FromCtx(ctx).With().Str(key, value).Logger()
	return l.WithContext(ctx)
}
