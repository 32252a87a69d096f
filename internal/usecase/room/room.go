package usecase_room

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	collab_coordinator "github.com/shinchan79/peerpoint/internal/collab/coordinator"
	collab_registry "github.com/shinchan79/peerpoint/internal/collab/registry"
	collab_session "github.com/shinchan79/peerpoint/internal/collab/session"
	"github.com/shinchan79/peerpoint/internal/model"
	usecase_project "github.com/shinchan79/peerpoint/internal/usecase/project"
)

var (
	ErrInternal         = errors.New("internal error")
	ErrResourceNotFound = errors.New("no such resource")
	ErrInvalidOption    = errors.New("invalid option")
	ErrInvalidKind      = errors.New("invalid room kind")
	ErrInvalidOptions   = errors.New("poll requires at least one option")
	ErrCodeConflict     = errors.New("room code already in use")
)

// ProjectRepository supplies initial document content when a room is
// created from a stored project file.
type ProjectRepository interface {
	Content(ctx context.Context, projectID string) (string, error)
}

type Usecase struct {
	registry *collab_registry.Registry
	projects ProjectRepository
}

func New(registry *collab_registry.Registry, projects ProjectRepository) *Usecase {
	return &Usecase{
		registry: registry,
		projects: projects,
	}
}

type CreateParams struct {
	RoomID    model.RoomID
	Kind      model.RoomKind
	Question  string
	Options   []string
	ProjectID string
}

func (u *Usecase) Create(ctx context.Context, p CreateParams) (model.RoomID, error) {
	var params collab_registry.CreateParams
	switch p.Kind {
	case model.RoomKindPoll:
		if len(p.Options) == 0 {
			return model.EmptyRoomID, ErrInvalidOptions
		}
		params = collab_registry.CreateParams{
			Kind:     model.RoomKindPoll,
			Question: p.Question,
			Options:  p.Options,
		}
	case model.RoomKindDocument:
		var content string
		if p.ProjectID != "" {
			loaded, err := u.projects.Content(ctx, p.ProjectID)
			if err != nil {
				if errors.Is(err, usecase_project.ErrResourceNotFound) {
					return model.EmptyRoomID, ErrResourceNotFound
				}
				return model.EmptyRoomID, errors.Join(ErrInternal, err)
			}
			content = loaded
		}
		params = collab_registry.CreateParams{
			Kind:    model.RoomKindDocument,
			Content: content,
		}
	default:
		return model.EmptyRoomID, ErrInvalidKind
	}

	// Generated codes re-roll on a collision with a live room; a
	// caller-chosen id conflicts instead.
	const createAttempts = 3
	generated := p.RoomID == model.EmptyRoomID
	for attempt := 0; attempt < createAttempts; attempt++ {
		params.ID = p.RoomID
		if generated {
			params.ID = u.buildRoomCode()
		}

		_, err := u.registry.Create(params)
		switch {
		case err == nil:
			return params.ID, nil
		case errors.Is(err, collab_registry.ErrRoomExists):
			if !generated {
				return model.EmptyRoomID, ErrCodeConflict
			}
		default:
			return model.EmptyRoomID, errors.Join(ErrInternal, err)
		}
	}
	return model.EmptyRoomID, ErrCodeConflict
}

func (u *Usecase) State(ctx context.Context, id model.RoomID) (model.Snapshot, error) {
	var snap model.Snapshot
	err := u.withRoom(id, func(c *collab_coordinator.Coordinator) error {
		var snapErr error
		snap, snapErr = c.Snapshot(ctx)
		return snapErr
	})
	return snap, err
}

func (u *Usecase) Participants(ctx context.Context, id model.RoomID) ([]model.Participant, error) {
	var participants []model.Participant
	err := u.withRoom(id, func(c *collab_coordinator.Coordinator) error {
		var listErr error
		participants, listErr = c.Participants(ctx)
		return listErr
	})
	return participants, err
}

func (u *Usecase) Vote(ctx context.Context, id model.RoomID, option string) error {
	return u.withRoom(id, func(c *collab_coordinator.Coordinator) error {
		err := c.CastVote(ctx, option)
		switch {
		case errors.Is(err, collab_coordinator.ErrInvalidOption):
			return ErrInvalidOption
		case errors.Is(err, collab_coordinator.ErrWrongRoomKind):
			return ErrInvalidKind
		default:
			return err
		}
	})
}

// Join attaches a participant to the room, returning the coordinator so
// the transport can route further messages and the leave.
func (u *Usecase) Join(ctx context.Context, id model.RoomID, p model.Participant) (
	*collab_coordinator.Coordinator, *collab_session.Session, error,
) {
	var (
		coordinator *collab_coordinator.Coordinator
		sess        *collab_session.Session
	)
	err := u.withRoom(id, func(c *collab_coordinator.Coordinator) error {
		joined, joinErr := c.Join(ctx, p)
		if joinErr != nil {
			return joinErr
		}
		coordinator = c
		sess = joined
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return coordinator, sess, nil
}

// withRoom resolves the coordinator and retries when it loses the race
// against an eviction; a fresh resolve then re-creates from the snapshot.
func (u *Usecase) withRoom(id model.RoomID, fn func(*collab_coordinator.Coordinator) error) error {
	const retries = 3
	for attempt := 0; attempt < retries; attempt++ {
		c, err := u.registry.Resolve(id)
		if err != nil {
			if errors.Is(err, collab_registry.ErrRoomNotFound) {
				return ErrResourceNotFound
			}
			return errors.Join(ErrInternal, err)
		}

		err = fn(c)
		if errors.Is(err, collab_coordinator.ErrRoomClosed) {
			continue
		}
		return err
	}
	return errors.Join(ErrInternal, collab_coordinator.ErrRoomClosed)
}

// Assuming short numeric codes like the lobby codes users share by hand.
func (u *Usecase) buildRoomCode() model.RoomID {
	const codeLen = 6
	var builder strings.Builder
	builder.Grow(codeLen)

	for i := 0; i < codeLen; i++ {
		builder.WriteByte(byte(rand.Intn(10)) + '0')
	}

	return model.RoomID(builder.String())
}
