package telemetry

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapAPI implements API on top of a zap logger.
type ZapAPI struct {
	logger *zap.Logger
}

func NewZapAPI(logger *zap.Logger) ZapAPI {
	return ZapAPI{logger: logger}
}

func (ZapAPI) fields(params []any) []zap.Field {
	fields := make([]zap.Field, len(params))
	for i, p := range params {
		key := fmt.Sprintf("params.%d", i)
		if err, ok := p.(error); ok {
			fields[i] = zap.NamedError(key, err)
			continue
		}
		fields[i] = zap.Any(key, p)
	}
	return fields
}

func (z ZapAPI) ReportBroken(id string, params ...any) {
	z.logger.Error("broken component", append([]zap.Field{zap.String("id", id)}, z.fields(params)...)...)
}

func (z ZapAPI) ReportWarning(id string, params ...any) {
	z.logger.Warn("warning", append([]zap.Field{zap.String("id", id)}, z.fields(params)...)...)
}

func (z ZapAPI) ReportDebug(message string, params ...any) {
	z.logger.Debug(message, z.fields(params)...)
}

func (z ZapAPI) ReportCount(id string, count int64) {
	z.logger.Info("count", zap.String("id", id), zap.Int64("n", count))
}
