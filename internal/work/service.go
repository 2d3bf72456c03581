package work

import (
	"context"

	"project-management-api/internal/apperr"
	"project-management-api/internal/identity"
	"project-management-api/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlobPurger removes stored files once the records pointing at them are gone.
// Failures are the purger's concern and never reach the caller.
type BlobPurger interface {
	PurgeBlobs(ctx context.Context, locators []string)
}

// Service owns the project > task > subtask hierarchy.
type Service struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
	blobs  BlobPurger
}

func NewService(logger *zap.SugaredLogger, db *gorm.DB, blobs BlobPurger) *Service {
	return &Service{
		logger: logger,
		db:     db,
		blobs:  blobs,
	}
}

func (s *Service) purge(ctx context.Context, locators []string) {
	if s.blobs == nil || len(locators) == 0 {
		return
	}
	s.blobs.PurgeBlobs(ctx, locators)
}

// RequireTask loads a task inside tx, NotFound when absent.
func RequireTask(tx *gorm.DB, id uint) (models.Task, error) {
	var t models.Task
	err := tx.First(&t, id).Error
	return t, apperr.FromLookup(err, "task", id)
}

func requireProject(tx *gorm.DB, id uint) (models.Project, error) {
	var p models.Project
	err := tx.First(&p, id).Error
	return p, apperr.FromLookup(err, "project", id)
}

// resolveEmployees checks every id exists and returns them without duplicates.
func resolveEmployees(tx *gorm.DB, ids []uint) ([]uint, error) {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := identity.RequireEmployee(tx, id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func resolveOptionalEmployee(tx *gorm.DB, id *uint) error {
	if id == nil || *id == 0 {
		return nil
	}
	_, err := identity.RequireEmployee(tx, *id)
	return err
}

// deleteTasks removes the tasks with everything they own and returns the
// locators of the attachments that were dropped.
func deleteTasks(tx *gorm.DB, taskIDs []uint) ([]string, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	var locators []string
	if err := tx.Model(&models.TaskAttachment{}).Where("task_id IN ?", taskIDs).Pluck("file_url", &locators).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskAttachment{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.SubTask{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskAssignment{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
		return nil, err
	}
	return locators, nil
}
