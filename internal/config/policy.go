package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/ranking"
	"gopkg.in/yaml.v3"
)

// Policy holds the tunable circulation rules. It is read from an optional
// YAML file; anything the file leaves out keeps its default.
type Policy struct {
	Ranking ranking.Weights `yaml:"ranking"`

	// HandoverLeadDays is how many days before a reading is due the scheduler
	// opens a handover thread for the top pending requester.
	HandoverLeadDays int `yaml:"handover_lead_days"`

	// MaxMessageRunes bounds handover message length after markup is stripped.
	MaxMessageRunes int `yaml:"max_message_runes"`

	// MessagesPerMinute is the per-user posting rate in handover threads.
	MessagesPerMinute int `yaml:"messages_per_minute"`

	// MessageBurst is the number of messages a user may post back to back.
	MessageBurst int `yaml:"message_burst"`
}

// DefaultPolicy returns the rules used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{
		Ranking:           ranking.DefaultWeights(),
		HandoverLeadDays:  7,
		MaxMessageRunes:   2000,
		MessagesPerMinute: 20,
		MessageBurst:      5,
	}
}

// HandoverLead returns the lead time as a duration.
func (p Policy) HandoverLead() time.Duration {
	return time.Duration(p.HandoverLeadDays) * 24 * time.Hour
}

// Validate checks the policy for values that would break the engine.
func (p Policy) Validate() error {
	if err := p.Ranking.Validate(); err != nil {
		return err
	}
	if p.HandoverLeadDays < 0 {
		return errors.New("handover_lead_days must not be negative")
	}
	if p.MaxMessageRunes < 1 {
		return errors.New("max_message_runes must be at least 1")
	}
	if p.MessagesPerMinute < 1 || p.MessageBurst < 1 {
		return errors.New("messages_per_minute and message_burst must be at least 1")
	}
	return nil
}

// LoadPolicy reads the policy file at path over the defaults.
// An empty path returns the defaults.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return &policy, nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- Policy file path from operator input is expected
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	// Unknown keys are rejected so a misspelt weight does not silently
	// fall back to its default.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return &policy, nil
}
