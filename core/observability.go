package core

import (
	"context"
	"sort"
	"strings"
	"time"
)

func (s *Service) observeEvent(
	ctx context.Context,
	startedAt time.Time,
	evt Event,
	err error,
	orderID string,
) {
	if s == nil || evt == nil {
		return
	}
	operation := normalizeOperation(string(evt.Kind()))
	status := "success"
	if err != nil {
		status = "failure"
	}

	fields := map[string]any{
		"event":       operation,
		"status":      status,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	}
	if orderID != "" {
		fields["order_id"] = orderID
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	tags := map[string]string{
		"event":  operation,
		"status": status,
	}
	s.recordCounter(ctx, MetricEventsTotal, 1, tags)
	s.recordHistogram(ctx, MetricEventDurationMS, float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		s.logError(ctx, operation+" rejected", fields)
		return
	}
	s.logInfo(ctx, operation+" applied", fields)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "info", message, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "error", message, fields)
}

func (s *Service) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	return strings.ReplaceAll(operation, " ", "_")
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
