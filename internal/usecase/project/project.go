package usecase_project

import (
	"context"
	"errors"
)

var (
	ErrInternal         = errors.New("internal error")
	ErrResourceNotFound = errors.New("no such resource")
)

// FileRepository is the long-term storage for project files. It lives
// outside the room: rooms only hold the live in-memory snapshot.
type FileRepository interface {
	Content(ctx context.Context, projectID string) (string, error)
	Save(ctx context.Context, projectID string, content string) error
}

type Usecase struct {
	files FileRepository
}

func New(files FileRepository) *Usecase {
	return &Usecase{files: files}
}

func (u *Usecase) Content(ctx context.Context, projectID string) (string, error) {
	content, err := u.files.Content(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return "", ErrResourceNotFound
		}
		return "", errors.Join(ErrInternal, err)
	}
	return content, nil
}

func (u *Usecase) Save(ctx context.Context, projectID string, content string) error {
	if err := u.files.Save(ctx, projectID, content); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}
