package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/phybench-api/internal/models"
)

type memoryStorage struct {
	names []string
	err   error
}

func (m *memoryStorage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	m.names = append(m.names, name)
	return "https://cdn.example.com/" + name, nil
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestAttachmentServiceStoresAllowedImage(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "u1@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: owner.ID})
	storage := &memoryStorage{}
	svc := NewAttachmentService(storage, f.problems, f.users, 1, testLogger())

	resp, err := svc.Upload(context.Background(), identityOf(owner), problem.ID, fileHeader(t, "Free Body Diagram.PNG", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "free-body-diagram.png", resp.FileName)
	require.Equal(t, "image/png", resp.MimeType)
	require.Equal(t, "https://cdn.example.com/free-body-diagram.png", resp.URL)
	require.Equal(t, problem.ID, resp.ProblemID)

	detailed, err := f.problems.GetDetailed(context.Background(), problem.ID)
	require.NoError(t, err)
	require.Len(t, detailed.Attachments, 1)
	require.Equal(t, owner.ID, detailed.Attachments[0].UploaderID)
}

func TestAttachmentServiceRejections(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "u1@example.com", models.RoleUser)
	outsider := f.user(t, "u2@example.com", models.RoleUser)
	problem := f.problem(t, models.Problem{UserID: owner.ID})
	storage := &memoryStorage{}
	svc := NewAttachmentService(storage, f.problems, f.users, 1, testLogger())

	_, err := svc.Upload(context.Background(), identityOf(owner), problem.ID, fileHeader(t, "notes.txt", []byte("plain text notes")))
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	large := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024*1024)...)
	_, err = svc.Upload(context.Background(), identityOf(owner), problem.ID, fileHeader(t, "huge.png", large))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	_, err = svc.Upload(context.Background(), identityOf(outsider), problem.ID, fileHeader(t, "fig.png", pngHeader))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Upload(context.Background(), identityOf(owner), problem.ID, nil)
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, storage.names)

	failing := NewAttachmentService(&memoryStorage{err: errors.New("cdn down")}, f.problems, f.users, 1, testLogger())
	_, err = failing.Upload(context.Background(), identityOf(owner), problem.ID, fileHeader(t, "fig.png", pngHeader))
	require.ErrorIs(t, err, ErrStore)

	disabled := NewAttachmentService(nil, f.problems, f.users, 1, testLogger())
	_, err = disabled.Upload(context.Background(), identityOf(owner), problem.ID, fileHeader(t, "fig.png", pngHeader))
	require.ErrorIs(t, err, ErrUnavailable)
}
