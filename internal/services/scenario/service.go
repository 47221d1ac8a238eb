package scenario

import (
	"time"

	"github.com/mcoot/reflexpool/internal/dependencies/random"
	"github.com/mcoot/reflexpool/internal/model"
)

// Config bounds the random wait before a scenario is revealed
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultConfig returns a 1-3 second delay range
func DefaultConfig() Config {
	return Config{
		MinDelay: 1000 * time.Millisecond,
		MaxDelay: 3000 * time.Millisecond,
	}
}

// Round is a scenario to show after Delay has elapsed
type Round struct {
	Scenario Scenario
	Delay    time.Duration
}

// Service serves the scenario catalogue and rolls rounds
type Service struct {
	random random.Random
	cfg    Config
}

// New creates a new scenario Service
func New(random random.Random, cfg Config) *Service {
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Service{random: random, cfg: cfg}
}

// List returns every scenario in catalogue order
func (s *Service) List() []Scenario {
	out := make([]Scenario, len(catalogue))
	for i, sc := range catalogue {
		out[i] = clone(sc)
	}
	return out
}

// Get returns the scenario with the given id
func (s *Service) Get(id string) (Scenario, error) {
	for _, sc := range catalogue {
		if sc.ID == id {
			return clone(sc), nil
		}
	}
	return Scenario{}, model.ErrScenarioNotFound
}

// Random picks a scenario uniformly
func (s *Service) Random() Scenario {
	return clone(catalogue[s.random.Intn(len(catalogue))])
}

// Delay picks a wait in [MinDelay, MaxDelay] at millisecond resolution
func (s *Service) Delay() time.Duration {
	minMs := s.cfg.MinDelay.Milliseconds()
	maxMs := s.cfg.MaxDelay.Milliseconds()
	return time.Duration(int64(s.random.Intn(int(maxMs-minMs+1)))+minMs) * time.Millisecond
}

// NextRound picks a scenario and the delay before it is shown
func (s *Service) NextRound() Round {
	return Round{Scenario: s.Random(), Delay: s.Delay()}
}

// CheckAnswer reports whether optionID is the correct response to scenario id
func (s *Service) CheckAnswer(id, optionID string) (bool, error) {
	sc, err := s.Get(id)
	if err != nil {
		return false, err
	}
	for _, o := range sc.Options {
		if o.ID == optionID {
			return o.Correct, nil
		}
	}
	return false, model.ErrUnknownOption
}

func clone(sc Scenario) Scenario {
	sc.Options = append([]Option(nil), sc.Options...)
	return sc
}
