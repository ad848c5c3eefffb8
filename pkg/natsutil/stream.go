package natsutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EnsureStream returns streamName, creating it when missing and widening its
// subject list so every subject in subjects is captured.
func EnsureStream(ctx context.Context, js jetstream.JetStream, streamName string, subjects ...string) (jetstream.Stream, error) {
	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		if !isStreamMissingErr(err) {
			return nil, fmt.Errorf("failed to get stream %s: %w", streamName, err)
		}

		var wanted []string
		for _, subject := range subjects {
			wanted = ensureSubjectList(wanted, subject)
		}

		stream, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: wanted,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		return stream, nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	current := slices.Clone(info.Config.Subjects)
	updated := current

	for _, subject := range subjects {
		updated = ensureSubjectList(updated, subject)
	}

	if len(updated) == len(current) {
		return stream, nil
	}

	cfg := info.Config
	cfg.Subjects = updated

	stream, err = js.UpdateStream(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to add subjects to stream %s: %w", streamName, err)
	}

	return stream, nil
}

func ensureSubjectList(subjects []string, subject string) []string {
	if subject == "" {
		return subjects
	}

	for _, existing := range subjects {
		if matchesSubject(existing, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern, which may use the * and >
// wildcards, covers subject.
func matchesSubject(pattern, subject string) bool {
	patternTokens := strings.Split(pattern, ".")
	subjectTokens := strings.Split(subject, ".")

	for i, token := range patternTokens {
		if token == ">" {
			return len(subjectTokens) > i
		}

		if i >= len(subjectTokens) {
			return false
		}

		if token != "*" && token != subjectTokens[i] {
			return false
		}
	}

	return len(patternTokens) == len(subjectTokens)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
