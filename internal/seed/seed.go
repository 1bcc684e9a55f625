// Package seed loads goal and roster documents and applies them to a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Document is a seed file.
type Document struct {
	Goals   []model.Goal   `yaml:"goals"`
	Members []model.Member `yaml:"members"`
}

// Store is what seeding writes to.
type Store interface {
	AllGoals(ctx context.Context) ([]model.Goal, error)
	UpsertGoal(ctx context.Context, g *model.Goal) error
	UpsertMember(ctx context.Context, m *model.Member) error
}

// memberDoc lets seed files omit "active", which defaults to true.
type memberDoc struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Role    string `yaml:"role"`
	SlackID string `yaml:"slack_user_id"`
	Active  *bool  `yaml:"active"`
}

type goalDoc struct {
	Role      string  `yaml:"role"`
	Metric    string  `yaml:"metric"`
	Type      string  `yaml:"type"`
	Target    float64 `yaml:"target"`
	Max       float64 `yaml:"max"`
	Frequency string  `yaml:"frequency"`
}

type rawDocument struct {
	Goals   []goalDoc   `yaml:"goals"`
	Members []memberDoc `yaml:"members"`
}

// Parse decodes and validates a seed document.
func Parse(data []byte) (Document, error) {
	const op = "seed.parse"
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, model.WrapKind(op, model.ErrValidation, err)
	}

	var doc Document
	for i, g := range raw.Goals {
		role, err := model.ParseRole(g.Role)
		if err != nil {
			return Document{}, model.Wrap(op, fmt.Errorf("goal %d: %w", i, err))
		}
		gt, err := model.ParseGoalType(g.Type)
		if err != nil {
			return Document{}, model.Wrap(op, fmt.Errorf("goal %d: %w", i, err))
		}
		goal := model.Goal{
			Role: role, Metric: strings.TrimSpace(g.Metric), Type: gt,
			Target: g.Target, Max: g.Max, Frequency: g.Frequency,
		}
		if goal.Frequency == "" {
			goal.Frequency = "weekly"
		}
		if err := goal.Validate(); err != nil {
			return Document{}, model.Wrap(op, fmt.Errorf("goal %d: %w", i, err))
		}
		doc.Goals = append(doc.Goals, goal)
	}

	for i, m := range raw.Members {
		role, err := model.ParseRole(m.Role)
		if err != nil {
			return Document{}, model.Wrap(op, fmt.Errorf("member %d: %w", i, err))
		}
		if strings.TrimSpace(m.Email) == "" {
			return Document{}, model.Invalid(op, fmt.Sprintf("member %d: email is required", i))
		}
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		doc.Members = append(doc.Members, model.Member{
			Name: m.Name, Email: model.NormalizeEmail(m.Email), Role: role,
			SlackID: strings.TrimPrefix(strings.TrimSpace(m.SlackID), "@"), Active: active,
		})
	}
	return doc, nil
}

// Defaults returns the built-in goals.
func Defaults() Document {
	doc, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded seed defaults are invalid: %v", err))
	}
	return doc
}

// LoadFile reads and parses the seed document at path.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Apply writes doc to store. Built-in default goals are only written when
// the store has no goals yet. Goals and members from a seed file always
// replace existing entries.
func Apply(ctx context.Context, store Store, file *Document, log logger.Logger) error {
	existing, err := store.AllGoals(ctx)
	if err != nil {
		return err
	}

	goals, members := 0, 0
	if len(existing) == 0 {
		for _, g := range Defaults().Goals {
			g := g
			if err := store.UpsertGoal(ctx, &g); err != nil {
				return err
			}
			goals++
		}
	}
	if file != nil {
		for _, g := range file.Goals {
			g := g
			if err := store.UpsertGoal(ctx, &g); err != nil {
				return err
			}
			goals++
		}
		for _, m := range file.Members {
			m := m
			if err := store.UpsertMember(ctx, &m); err != nil {
				return err
			}
			members++
		}
	}
	if log != nil {
		log.Info(ctx, "seed applied", logger.Int("goals", goals), logger.Int("members", members))
	}
	return nil
}
