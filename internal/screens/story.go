package screens

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

type CreateStoryState struct {
	Picked    string        `json:"picked,omitempty"`
	Uploading bool          `json:"uploading"`
	Shared    *models.Story `json:"shared,omitempty"`
}

// CreateStory picks an image from the device library or the camera and shares it as a story
type CreateStory struct {
	*base
	deps Deps

	mu        sync.Mutex
	file      *platform.MediaFile
	uploading bool
	shared    *models.Story
}

func OpenCreateStory(ctx context.Context, deps Deps) (*CreateStory, error) {
	deps = deps.withDefaults()
	if _, err := deps.principal(); err != nil {
		return nil, err
	}
	return &CreateStory{base: newBase(ctx, "create-story", deps.Logger), deps: deps}, nil
}

func (s *CreateStory) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := CreateStoryState{Uploading: s.uploading, Shared: s.shared}
	if s.file != nil {
		st.Picked = s.file.Name
	}
	return st
}

func (s *CreateStory) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	switch action {
	case "pick":
		req, err := decode[pickParams](params)
		if err != nil {
			return nil, err
		}
		file, err := pick(ctx, s.deps.Media, req.Name)
		if err != nil {
			return nil, err
		}
		return s.choose(file), nil
	case "capture":
		file, err := capture(ctx, s.deps.Media)
		if err != nil {
			return nil, err
		}
		return s.choose(file), nil
	case "share":
		return s.share(ctx)
	}
	return nil, unknownAction(action)
}

func (s *CreateStory) choose(file platform.MediaFile) CreateStoryState {
	s.mu.Lock()
	s.file, s.shared = &file, nil
	s.mu.Unlock()
	s.changed()
	return s.State().(CreateStoryState)
}

func (s *CreateStory) share(ctx context.Context) (models.Story, error) {
	s.mu.Lock()
	if s.file == nil {
		s.mu.Unlock()
		return models.Story{}, apperrors.Validation("Pick an image first")
	}
	if s.uploading {
		s.mu.Unlock()
		return models.Story{}, apperrors.Validation("Your story is still uploading")
	}
	file := *s.file
	s.uploading = true
	s.mu.Unlock()
	s.changed()

	story, err := s.deps.Mutator.CreateStory(ctx, file)

	s.mu.Lock()
	s.uploading = false
	if err == nil {
		s.file, s.shared = nil, &story
	}
	s.mu.Unlock()
	s.changed()
	return story, err
}
