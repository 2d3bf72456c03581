package attachment

import (
	"context"
	"io"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/database"
	"project-management-api/internal/identity"
	"project-management-api/internal/metrics"
	"project-management-api/internal/models"
	"project-management-api/internal/work"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRevisionTaken = apperr.New(apperr.ErrConflict, "revision already exists for this task")
	ErrExternalFile  = apperr.New(apperr.ErrInvalidState, "attachment points at an external file")
	ErrLocatorURL    = apperr.New(apperr.ErrValidation, "file url must not reference a stored file, upload it instead")
)

type View struct {
	ID             uint                 `json:"id"`
	FileURL        string               `json:"fileUrl"`
	FileName       string               `json:"fileName"`
	RevisionNumber float64              `json:"revisionNumber"`
	UploadedAt     time.Time            `json:"uploadedAt"`
	TaskID         uint                 `json:"taskId"`
	UploadedBy     identity.EmployeeRef `json:"uploadedBy"`
}

// Draft records an attachment whose file already has a URL or locator.
type Draft struct {
	TaskID         uint
	UploadedByID   uint
	RevisionNumber float64
	FileURL        string
	FileName       string
}

// UploadRequest stores Content and records it as a revision of the task.
type UploadRequest struct {
	TaskID         uint
	UploadedByID   uint
	RevisionNumber float64
	FileName       string
	Content        io.Reader
}

// Service records file revisions of tasks. (task, revision) is unique.
type Service struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
	blobs  BlobStore
}

func NewService(logger *zap.SugaredLogger, db *gorm.DB, blobs BlobStore) *Service {
	return &Service{
		logger: logger,
		db:     db,
		blobs:  blobs,
	}
}

func toView(a models.TaskAttachment) View {
	v := View{
		ID:             a.ID,
		FileURL:        a.FileURL,
		FileName:       a.FileName,
		RevisionNumber: a.RevisionNumber,
		UploadedAt:     a.UploadedAt,
		TaskID:         a.TaskID,
		UploadedBy:     identity.EmployeeRef{ID: a.UploadedByID},
	}
	if ref := identity.RefOf(a.UploadedBy); ref != nil {
		v.UploadedBy = *ref
	}
	return v
}

func toViews(list []models.TaskAttachment) []View {
	out := make([]View, 0, len(list))
	for _, a := range list {
		out = append(out, toView(a))
	}
	return out
}

func load(tx *gorm.DB, id uint) (models.TaskAttachment, error) {
	var a models.TaskAttachment
	err := tx.Preload("UploadedBy").First(&a, id).Error
	return a, apperr.FromLookup(err, "attachment", id)
}

// AddAttachment records a new revision pointing at an external file. A
// revision already present for the task is reported as ErrRevisionTaken,
// whether found by the pre-check or by the unique index. Stored files are
// only recorded through Upload, so each locator has exactly one owner.
func (s *Service) AddAttachment(ctx context.Context, draft Draft) (view View, err error) {
	defer func(start time.Time) { metrics.ObserveOp("attachment.add", start, err) }(time.Now())
	s.logger.Debugw("AddAttachment()", "taskID", draft.TaskID, "revision", draft.RevisionNumber)

	if IsLocator(strings.TrimSpace(draft.FileURL)) {
		return View{}, ErrLocatorURL
	}
	return s.add(ctx, draft)
}

func (s *Service) add(ctx context.Context, draft Draft) (view View, err error) {
	if draft.RevisionNumber <= 0 {
		return View{}, models.ErrAttachmentRevisionInvalid
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := work.RequireTask(tx, draft.TaskID); err != nil {
			return err
		}
		if _, err := identity.RequireEmployee(tx, draft.UploadedByID); err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.TaskAttachment{}).
			Where("task_id = ? AND revision_number = ?", draft.TaskID, draft.RevisionNumber).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrRevisionTaken
		}

		a := models.TaskAttachment{
			FileURL:        draft.FileURL,
			FileName:       draft.FileName,
			RevisionNumber: draft.RevisionNumber,
			TaskID:         draft.TaskID,
			UploadedByID:   draft.UploadedByID,
		}
		if err := tx.Omit(clause.Associations).Create(&a).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrRevisionTaken
			}
			return err
		}
		if a, err = load(tx, a.ID); err != nil {
			return err
		}
		view = toView(a)
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to add attachment", "taskID", draft.TaskID, "revision", draft.RevisionNumber, "err", err)
		return View{}, err
	}

	s.logger.Infow("attachment added", "attachmentID", view.ID, "taskID", view.TaskID, "revision", view.RevisionNumber)
	return view, nil
}

// Upload stores the content and records it. If recording fails the stored
// file is removed again.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (view View, err error) {
	defer func(start time.Time) { metrics.ObserveOp("attachment.upload", start, err) }(time.Now())
	s.logger.Debugw("Upload()", "taskID", req.TaskID, "fileName", req.FileName)

	if req.RevisionNumber <= 0 {
		return View{}, models.ErrAttachmentRevisionInvalid
	}
	if strings.TrimSpace(req.FileName) == "" || req.Content == nil {
		return View{}, models.ErrAttachmentFileRequired
	}

	locator, err := s.blobs.Store(ctx, req.Content, req.FileName)
	if err != nil {
		s.logger.Errorw("failed to store upload", "taskID", req.TaskID, "err", err)
		return View{}, err
	}

	view, err = s.add(ctx, Draft{
		TaskID:         req.TaskID,
		UploadedByID:   req.UploadedByID,
		RevisionNumber: req.RevisionNumber,
		FileURL:        locator,
		FileName:       req.FileName,
	})
	if err != nil {
		s.PurgeBlobs(context.WithoutCancel(ctx), []string{locator})
		return View{}, err
	}
	return view, nil
}

// GetByTaskAndRevision returns the first record for the pair, by id.
func (s *Service) GetByTaskAndRevision(ctx context.Context, taskID uint, revision float64) (View, error) {
	var a models.TaskAttachment
	err := s.db.WithContext(ctx).
		Preload("UploadedBy").
		Where("task_id = ? AND revision_number = ?", taskID, revision).
		Order("id").
		First(&a).Error
	if err != nil {
		return View{}, apperr.FromLookup(err, "attachment revision", revision)
	}
	return toView(a), nil
}

func (s *Service) Get(ctx context.Context, id uint) (View, error) {
	a, err := load(s.db.WithContext(ctx), id)
	if err != nil {
		return View{}, err
	}
	return toView(a), nil
}

func (s *Service) list(ctx context.Context, query string, args ...any) ([]View, error) {
	var list []models.TaskAttachment
	err := s.db.WithContext(ctx).
		Preload("UploadedBy").
		Where(query, args...).
		Order("uploaded_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		s.logger.Errorw("failed to list attachments", "query", query, "err", err)
		return nil, err
	}
	return toViews(list), nil
}

// ListByTask lists the revisions of a task, newest first.
func (s *Service) ListByTask(ctx context.Context, taskID uint) ([]View, error) {
	return s.list(ctx, "task_id = ?", taskID)
}

func (s *Service) ListByUploader(ctx context.Context, employeeID uint) ([]View, error) {
	return s.list(ctx, "uploaded_by_id = ?", employeeID)
}

func (s *Service) ListByFileName(ctx context.Context, name string) ([]View, error) {
	return s.list(ctx, "file_name = ?", strings.TrimSpace(name))
}

// Open returns the stored content of the attachment. Attachments recorded
// with an external URL return ErrExternalFile.
func (s *Service) Open(ctx context.Context, id uint) (io.ReadCloser, View, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, View{}, err
	}
	if !IsLocator(view.FileURL) {
		return nil, view, ErrExternalFile
	}
	rc, err := s.blobs.Resolve(ctx, view.FileURL)
	if err != nil {
		s.logger.Warnw("failed to resolve attachment blob", "attachmentID", id, "err", err)
		return nil, view, err
	}
	return rc, view, nil
}

// DeleteAttachment removes the record. The stored file is removed afterwards
// on a best-effort basis.
func (s *Service) DeleteAttachment(ctx context.Context, id uint) (view View, err error) {
	defer func(start time.Time) { metrics.ObserveOp("attachment.delete", start, err) }(time.Now())
	s.logger.Debugw("DeleteAttachment()", "attachmentID", id)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := load(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.TaskAttachment{}, id).Error; err != nil {
			return err
		}
		view = toView(a)
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to delete attachment", "attachmentID", id, "err", err)
		return View{}, err
	}

	s.PurgeBlobs(ctx, []string{view.FileURL})
	return view, nil
}

// PurgeBlobs deletes stored files. Failures are logged and counted, never
// returned. External URLs are skipped.
func (s *Service) PurgeBlobs(ctx context.Context, locators []string) {
	for _, locator := range locators {
		if !IsLocator(locator) {
			continue
		}
		if err := s.blobs.Delete(ctx, locator); err != nil {
			metrics.BlobDeleteFailed()
			s.logger.Warnw("failed to delete stored file", "locator", locator, "err", err)
		}
	}
}

var _ work.BlobPurger = (*Service)(nil)
