package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

const maxNameLen = 120

// PlayerInput is a roster entry as submitted by a client.
type PlayerInput struct {
	ID                 string             `json:"id" validate:"omitempty,max=64"`
	FirstName          string             `json:"first_name" validate:"required,max=120"`
	LastName           string             `json:"last_name" validate:"required,max=120"`
	PreferredPositions []string           `json:"preferred_positions" validate:"max=3,dive,max=40"`
	Status             model.PlayerStatus `json:"status" validate:"omitempty,oneof=available injured absent"`
}

// CreateMatchInput is the payload for a new fixture.
type CreateMatchInput struct {
	TeamID        string        `json:"team_id" validate:"required,max=64"`
	OpponentName  string        `json:"opponent_name" validate:"required,max=120"`
	ScheduledDate time.Time     `json:"scheduled_date" validate:"required"`
	Roster        []PlayerInput `json:"roster" validate:"max=60,dive"`
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so FieldError.Field matches the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// validateStruct runs the tag rules and converts failures into FieldErrors.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := make([]FieldError, 0, len(verrs))
	for _, v := range verrs {
		fe = append(fe, FieldError{Field: fieldPath(v.Namespace()), Message: ruleMessage(v)})
	}
	return newInvalidInput(fe)
}

// fieldPath drops the struct name from a validator namespace: "CreateMatchInput.roster[0].first_name" -> "roster[0].first_name".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleMessage(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + v.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(v.Param(), " ", "|")
	default:
		return "failed " + v.Tag()
	}
}

func validPlayerStatus(s model.PlayerStatus) bool {
	switch s {
	case model.PlayerAvailable, model.PlayerInjured, model.PlayerAbsent:
		return true
	}
	return false
}

func (in PlayerInput) normalize() PlayerInput {
	in.ID = strings.TrimSpace(in.ID)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	// index is the preference rank, so inner blanks keep their slot
	prefs := make([]string, len(in.PreferredPositions))
	for i, p := range in.PreferredPositions {
		prefs[i] = strings.TrimSpace(p)
	}
	for len(prefs) > 0 && prefs[len(prefs)-1] == "" {
		prefs = prefs[:len(prefs)-1]
	}
	in.PreferredPositions = prefs
	if in.Status == "" {
		in.Status = model.PlayerAvailable
	}
	return in
}

// toPlayer validates a single entry. prefix namespaces field errors inside a
// larger payload.
func (in PlayerInput) toPlayer(newID func() string, prefix string) (model.Player, error) {
	in = in.normalize()
	if err := validateStruct(in); err != nil {
		if prefix == "" {
			return model.Player{}, err
		}
		fe := FieldErrors(err)
		for i := range fe {
			fe[i].Field = prefix + "." + fe[i].Field
		}
		return model.Player{}, newInvalidInput(fe)
	}
	id := in.ID
	if id == "" {
		id = newID()
	}
	return model.Player{
		ID:                 id,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		PreferredPositions: in.PreferredPositions,
		Status:             in.Status,
	}, nil
}

type matchService struct {
	repo        repository.MatchRepository
	opts        []Option
	o           options
	mu          sync.Mutex
	controllers map[string]*MatchController
	log         zerolog.Logger
	baseLog     zerolog.Logger
}

// NewMatchService builds the service. opts apply to the service and to every controller it opens.
func NewMatchService(repo repository.MatchRepository, logger zerolog.Logger, opts ...Option) MatchService {
	return &matchService{
		repo:        repo,
		opts:        opts,
		o:           applyOptions(opts),
		controllers: make(map[string]*MatchController),
		log:         logger.With().Str("module", "service").Str("component", "match").Logger(),
		baseLog:     logger,
	}
}

// CreateMatch validates the fixture and stores it as scheduled with an empty
// lineup, zeroed statistics and a stopped clock in period 1.
func (s *matchService) CreateMatch(ctx context.Context, in CreateMatchInput) (model.Match, error) {
	in.TeamID = strings.TrimSpace(in.TeamID)
	in.OpponentName = strings.TrimSpace(in.OpponentName)

	var ferrs []FieldError
	if err := validateStruct(in); err != nil {
		if fe := FieldErrors(err); fe != nil {
			ferrs = append(ferrs, fe...)
		} else {
			return model.Match{}, err
		}
	}

	roster := make([]model.Player, 0, len(in.Roster))
	seen := make(map[string]struct{}, len(in.Roster))
	if len(ferrs) == 0 {
		for i, pin := range in.Roster {
			p, err := pin.toPlayer(s.o.newID, fmt.Sprintf("roster[%d]", i))
			if err != nil {
				ferrs = append(ferrs, FieldErrors(err)...)
				continue
			}
			if _, dup := seen[p.ID]; dup {
				ferrs = append(ferrs, FieldError{Field: fmt.Sprintf("roster[%d].id", i), Message: "duplicate player id"})
				continue
			}
			seen[p.ID] = struct{}{}
			roster = append(roster, p)
		}
	}

	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("match validation failed")
		return model.Match{}, err
	}

	created, err := s.repo.Create(ctx, model.Match{
		TeamID:        in.TeamID,
		OpponentName:  in.OpponentName,
		ScheduledDate: in.ScheduledDate.UTC(),
		Status:        model.StatusScheduled,
		CurrentPeriod: 1,
		Timer:         gameday.NewTimer(),
		Events:        []model.EventRecord{},
		StartingXV:    model.Lineup{},
		Roster:        roster,
	})
	if err != nil {
		s.log.Error().Err(err).Str("team_id", in.TeamID).Msg("create match failed")
		return model.Match{}, &PersistenceError{Op: "create_match", Err: err}
	}
	s.log.Info().Str("match_id", created.ID).Str("team_id", created.TeamID).Msg("match created")
	return created, nil
}

// Controller returns the controller owning matchID, loading the aggregate on first use.
func (s *matchService) Controller(ctx context.Context, matchID string) (*MatchController, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, invalidField("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controllers[matchID]; ok {
		return c, nil
	}
	m, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	c := NewMatchController(m, s.repo, s.baseLog, s.opts...)
	s.controllers[matchID] = c
	return c, nil
}

func (s *matchService) ListByTeam(ctx context.Context, teamID string) ([]model.Match, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, invalidField("team_id", "is required")
	}
	out, err := s.repo.ListByTeam(ctx, teamID)
	if err != nil {
		s.log.Error().Err(err).Str("team_id", teamID).Msg("list matches failed")
		return nil, err
	}
	return out, nil
}
