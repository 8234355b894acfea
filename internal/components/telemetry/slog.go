package telemetry

import (
	"fmt"
	"log/slog"
)

// SlogAPI implements API using the log/slog package. The zero value logs to
// slog.Default().
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (SlogAPI) formatParams(out []any, params []any) []any {
	for i, p := range params {
		key := fmt.Sprintf("params.%d", i)
		if err, ok := p.(error); ok {
			out = append(out, key, err.Error())
			continue
		}
		out = append(out, key, p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("broken component", s.formatParams([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", s.formatParams([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, s.formatParams(nil, params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger().Info("count", "id", id, "n", count)
}
