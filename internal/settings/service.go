package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/focusnest/gamification-service/internal/clock"
	"github.com/focusnest/gamification-service/shared/auth"
)

// AnonymousOwner keys settings for requests that carry no authenticated user.
const AnonymousOwner = "anonymous"

var validate = validator.New()

// Defaults seed the settings of an owner who has saved none.
type Defaults struct {
	BaseURL         string
	CurrentUsername string
}

// Service reads and updates settings, falling back to Defaults.
type Service struct {
	repo     Repository
	clock    clock.Clock
	defaults Defaults
}

// NewService wires a settings service.
func NewService(repo Repository, c clock.Clock, defaults Defaults) (*Service, error) {
	if repo == nil {
		return nil, errors.New("settings repository is required")
	}
	if c == nil {
		c = clock.NewSystemClock()
	}
	return &Service{repo: repo, clock: c, defaults: defaults}, nil
}

// Get returns the owner's settings, or the defaults when none are stored.
func (s *Service) Get(ctx context.Context, ownerID string) (Settings, error) {
	ownerID = normalizeOwner(ownerID)
	stored, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, ErrNotFound) {
		return s.defaultsFor(ownerID), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if strings.TrimSpace(stored.BaseURL) == "" {
		stored.BaseURL = s.defaults.BaseURL
	}
	return stored, nil
}

// Update applies in to the owner's settings and persists the result.
func (s *Service) Update(ctx context.Context, ownerID string, in UpdateInput) (Settings, error) {
	in = trimInput(in)
	if err := validate.Struct(in); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	current, err := s.Get(ctx, ownerID)
	if err != nil {
		return Settings{}, err
	}
	if in.BaseURL != nil {
		current.BaseURL = *in.BaseURL
		if current.BaseURL == "" {
			current.BaseURL = s.defaults.BaseURL
		}
	}
	if in.CurrentUsername != nil {
		current.CurrentUsername = *in.CurrentUsername
	}
	current.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Save(ctx, current); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return current, nil
}

// Reset removes the owner's stored settings. Resetting an owner with no
// stored settings is not an error.
func (s *Service) Reset(ctx context.Context, ownerID string) (Settings, error) {
	ownerID = normalizeOwner(ownerID)
	if err := s.repo.Delete(ctx, ownerID); err != nil && !errors.Is(err, ErrNotFound) {
		return Settings{}, fmt.Errorf("reset settings: %w", err)
	}
	return s.defaultsFor(ownerID), nil
}

// BaseURL resolves the backend base URL for the user on ctx. It lets the
// Service act as the backend client's base URL source.
func (s *Service) BaseURL(ctx context.Context) (string, error) {
	st, err := s.Get(ctx, auth.UserIDFromContext(ctx, AnonymousOwner))
	if err != nil {
		return "", err
	}
	return st.BaseURL, nil
}

func (s *Service) defaultsFor(ownerID string) Settings {
	return Settings{
		OwnerID:         ownerID,
		BaseURL:         s.defaults.BaseURL,
		CurrentUsername: s.defaults.CurrentUsername,
	}
}

func normalizeOwner(ownerID string) string {
	if ownerID = strings.TrimSpace(ownerID); ownerID == "" {
		return AnonymousOwner
	}
	return ownerID
}

func trimInput(in UpdateInput) UpdateInput {
	if in.BaseURL != nil {
		v := strings.TrimRight(strings.TrimSpace(*in.BaseURL), "/")
		in.BaseURL = &v
	}
	if in.CurrentUsername != nil {
		v := strings.TrimSpace(*in.CurrentUsername)
		in.CurrentUsername = &v
	}
	return in
}
