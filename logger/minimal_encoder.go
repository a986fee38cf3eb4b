package logger

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Muted console palette, easy on the eyes during long matrix runs.
const (
	colorFg       = "\x1b[38;5;223m" // soft cream
	colorTime     = "\x1b[38;5;108m" // muted cyan-green
	colorPlatform = "\x1b[38;5;109m" // soft blue
	colorStage    = "\x1b[38;5;208m" // warm orange
	colorNumber   = "\x1b[38;5;175m" // muted purple
	colorWarnFg   = "\x1b[38;5;214m"
	colorWarnBg   = "\x1b[48;5;58m"
	colorErrFg    = "\x1b[38;5;167m"
	colorErrBg    = "\x1b[48;5;88m"
)

// bracketPattern matches contexts like [linux], [push:2], [diffing].
var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  linux  Pushing artifact  bindings/linux/miniaudio.go 412ms"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Base JSON encoder handles field serialization internally
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level tag only for WARN and above; INFO stays quiet
	if ent.Level != zapcore.InfoLevel && ent.Level != zapcore.DebugLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Platform field leads the line so concurrent sessions group visually
	if platform := fieldValue(fields, FieldPlatform); platform != "" {
		final.AppendString("  ")
		final.AppendString(colorPlatform)
		final.AppendString(platform)
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorizeMessage(ent.Message))

	if rest := extractFieldValues(fields); rest != "" {
		final.AppendString("  ")
		final.AppendString(rest)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + colorWarnBg + colorWarnFg + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorErrBg + colorErrFg + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorErrBg + colorErrFg + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// colorizeMessage applies context-aware colorization to bracketed contexts
// in a log message: [linux] platform tags, [diffing] stage markers.
func colorizeMessage(msg string) string {
	result := strings.Builder{}
	lastIndex := 0

	matches := bracketPattern.FindAllStringSubmatchIndex(msg, -1)
	for _, match := range matches {
		if textBefore := msg[lastIndex:match[0]]; textBefore != "" {
			result.WriteString(colorFg)
			result.WriteString(textBefore)
			result.WriteString(colorReset)
		}

		result.WriteString(colorStage)
		result.WriteString(msg[match[0]:match[1]])
		result.WriteString(colorReset)

		lastIndex = match[1]
	}

	if remaining := msg[lastIndex:]; remaining != "" {
		result.WriteString(colorFg)
		result.WriteString(remaining)
		result.WriteString(colorReset)
	}

	return result.String()
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	if field.Type == zapcore.StringType {
		return field.String
	}

	switch field.Type {
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	}

	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}

	return ""
}

func fieldValue(fields []zapcore.Field, key string) string {
	for _, field := range fields {
		if field.Key == key {
			return getFieldValue(field)
		}
	}
	return ""
}

// extractFieldValues pulls just the values from structured fields.
// Input: {"stage": "pushing", "artifact_path": "bindings/linux/miniaudio.go", "duration_ms": 412}
// Output: "pushing bindings/linux/miniaudio.go 412ms" (colored)
func extractFieldValues(fields []zapcore.Field) string {
	var values []string

	for _, field := range fields {
		switch field.Key {
		case FieldStage:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorStage+val+colorReset)
			}
		case FieldArtifact, FieldCommitID, FieldRevision:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorPlatform+val+colorReset)
			}
		case FieldAttempt:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorNumber+"attempt "+val+colorReset)
			}
		case FieldDurationMS:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorNumber+val+colorReset+"ms")
			}
		case FieldError:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorErrFg+val+colorReset)
			}
		}
	}

	if len(values) == 0 {
		return ""
	}

	return strings.Join(values, " ")
}
