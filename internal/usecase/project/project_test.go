package usecase_project

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeFiles struct {
	files   map[string]string
	saveErr error
}

func (f *fakeFiles) Content(_ context.Context, projectID string) (string, error) {
	content, ok := f.files[projectID]
	if !ok {
		return "", ErrResourceNotFound
	}
	return content, nil
}

func (f *fakeFiles) Save(_ context.Context, projectID string, content string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.files[projectID] = content
	return nil
}

func TestContent(t *testing.T) {
	u := New(&fakeFiles{files: map[string]string{"proj-1": "package main"}})

	content, err := u.Content(context.Background(), "proj-1")
	assert.NoError(t, err)
	assert.Equal(t, "package main", content)

	_, err = u.Content(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestSave(t *testing.T) {
	files := &fakeFiles{files: make(map[string]string)}
	u := New(files)

	err := u.Save(context.Background(), "proj-1", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "hello", files.files["proj-1"])
}

func TestSaveWrapsDriverError(t *testing.T) {
	driverErr := errors.New("connection reset")
	u := New(&fakeFiles{saveErr: driverErr})

	err := u.Save(context.Background(), "proj-1", "hello")
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, driverErr)
}
