package in

import (
	"context"
	"fmt"
	"strings"
	"time"

	sessiondto "companion/internal/modules/session/dto"
	sessionin "companion/internal/modules/session/port/in"
)

// CLIHandler adapts command-line arguments to the session usecase. Commands
// that take no arguments are reached through the embedded Usecase.
type CLIHandler struct {
	sessionin.Usecase
	now func() time.Time
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{Usecase: usecase, now: time.Now}
}

// RecordIngestion accepts an empty value (now), RFC3339, a clock time
// ("19:30", today) or a negative offset ("-20m").
func (h CLIHandler) RecordIngestion(ctx context.Context, raw string) (sessiondto.StatusOutput, error) {
	at, err := ParseTime(raw, h.now())
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return h.Usecase.RecordIngestion(ctx, at)
}

func (h CLIHandler) TakeBooster(ctx context.Context, raw string) (sessiondto.StatusOutput, error) {
	at, err := ParseTime(raw, h.now())
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return h.Usecase.TakeBooster(ctx, at)
}

func (h CLIHandler) CaptureTransition(ctx context.Context, kind, pair string) (sessiondto.StatusOutput, error) {
	key, value, err := splitPair(pair)
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return h.Usecase.CaptureTransition(ctx, sessiondto.CaptureInput{Kind: kind, Key: key, Value: value})
}

func (h CLIHandler) CompleteFollowUp(ctx context.Context, id string, pairs []string) (sessiondto.StatusOutput, error) {
	responses, err := ParseResponses(pairs)
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return h.Usecase.CompleteFollowUp(ctx, id, responses)
}

// ParseResponses turns key=value arguments into a response map.
func ParseResponses(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func splitPair(pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", pair)
	}
	return key, strings.TrimSpace(value), nil
}

func ParseTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "now" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(raw, "-") {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse offset %q: %w", raw, err)
		}
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	clockTime, err := time.ParseInLocation("15:04", raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: want RFC3339, HH:MM or -duration", raw)
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), clockTime.Hour(), clockTime.Minute(), 0, 0, now.Location())
	if at.After(now) {
		at = at.AddDate(0, 0, -1)
	}
	return at, nil
}
