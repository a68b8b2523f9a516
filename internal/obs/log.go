package obs

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mlmcommerce/supplychain/internal/reqctx"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogEvent writes one JSON line enriched with the correlation id from ctx.
func LogEvent(ctx context.Context, level, event string, fields map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": strings.ToLower(level),
		"event": event,
	}
	if cid := reqctx.CorrelationID(ctx); cid != "" {
		entry["correlation_id"] = cid
	}
	if len(fields) > 0 {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			copied[k] = v
		}
		entry["fields"] = copied
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","event":"log.marshal_failed"}`)
		return
	}
	Logger().Println(string(data))
}

func Info(ctx context.Context, event string, fields map[string]any) {
	LogEvent(ctx, "info", event, fields)
}

func Warn(ctx context.Context, event string, fields map[string]any) {
	LogEvent(ctx, "warn", event, fields)
}

func Error(ctx context.Context, event string, fields map[string]any) {
	LogEvent(ctx, "error", event, fields)
}
