package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/observability"
	"github.com/noah-isme/phybench-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

var allowedAttachmentTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/gif":       {},
	"image/webp":      {},
	"image/svg+xml":   {},
	"application/pdf": {},
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AttachmentService stores figures and documents for a problem.
type AttachmentService interface {
	Upload(ctx context.Context, identity Identity, problemID uint, file *multipart.FileHeader) (dto.AttachmentResponse, error)
}

type attachmentService struct {
	storage  FileStorage
	problems repository.ProblemRepository
	users    repository.UserRepository
	logger   zerolog.Logger
	maxSize  int64
	tracer   trace.Tracer
}

// NewAttachmentService constructs an attachment service. A nil storage disables uploads.
func NewAttachmentService(storage FileStorage, problems repository.ProblemRepository, users repository.UserRepository, maxSizeMB int, logger zerolog.Logger) AttachmentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &attachmentService{
		storage:  storage,
		problems: problems,
		users:    users,
		logger:   logger.With().Str("component", "attachment_service").Logger(),
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		tracer:   otel.Tracer("github.com/noah-isme/phybench-api/internal/service/attachment"),
	}
}

func (s *attachmentService) Upload(ctx context.Context, identity Identity, problemID uint, file *multipart.FileHeader) (dto.AttachmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attachment.store")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("attachment.problem_id", int64(problemID)),
		attribute.Int64("attachment.max_bytes", s.maxSize),
	)

	reject := func(err error, reason string) (dto.AttachmentResponse, error) {
		if reason != "" {
			observability.AttachmentsRejected().WithLabelValues(reason).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.AttachmentResponse{}, err
	}

	if s.storage == nil {
		return reject(fmt.Errorf("%w: file storage is not configured", ErrUnavailable), "")
	}

	requester, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return reject(err, "")
	}
	identity = identity.withUser(requester)

	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject(notFound("problem"), "")
		}
		return reject(storeFailure(err), "")
	}
	if !CanManage(identity, problem) {
		return reject(forbidden("only the submitter or an admin may attach files"), "")
	}

	if file == nil {
		return reject(invalid("file is required"), "missing")
	}
	span.SetAttributes(
		attribute.String("attachment.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("attachment.request_size", file.Size),
	)
	if file.Size > s.maxSize {
		return reject(fmt.Errorf("%w: %w", ErrValidation, ErrUploadTooLarge), "size")
	}

	handle, err := file.Open()
	if err != nil {
		return reject(err, "")
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return reject(err, "")
	}
	if int64(buf.Len()) > s.maxSize {
		return reject(fmt.Errorf("%w: %w", ErrValidation, ErrUploadTooLarge), "size")
	}

	detected := mimetype.Detect(buf.Bytes())
	fileType := baseMime(detected.String())
	span.SetAttributes(attribute.String("attachment.detected_mime", fileType))
	if _, ok := allowedAttachmentTypes[fileType]; !ok {
		return reject(fmt.Errorf("%w: %w", ErrValidation, ErrUploadTypeNotAllowed), "type")
	}

	name := sanitizeFileName(file.Filename, detected.Extension())
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		s.logger.Error().Err(err).Uint("problem_id", problemID).Msg("attachment storage failed")
		return reject(fmt.Errorf("%w: %w", ErrStore, err), "storage")
	}

	attachment := models.ProblemAttachment{
		ProblemID:  problem.ID,
		UploaderID: requester.ID,
		FileName:   name,
		URL:        url,
		MimeType:   fileType,
		SizeBytes:  int64(buf.Len()),
	}
	if err := s.problems.CreateAttachment(ctx, &attachment); err != nil {
		return reject(storeFailure(err), "")
	}

	span.SetStatus(codes.Ok, "stored")
	return dto.NewAttachmentResponse(attachment), nil
}

func baseMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("figure-%d", time.Now().Unix())
	}
	ext := strings.ToLower(detectedExt)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
