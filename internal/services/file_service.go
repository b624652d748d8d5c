package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/models"
)

var (
	// ErrFileNotFound indicates the file or folder does not exist.
	ErrFileNotFound = errors.New("file service: file not found")
	// ErrFolderNotFound indicates the parent folder does not exist in this session.
	ErrFolderNotFound = errors.New("file service: folder not found")
	// ErrDuplicateName indicates a sibling with the same name already exists.
	ErrDuplicateName = errors.New("file service: name already exists in this folder")
)

// SessionTree is the materialised virtual filesystem of one session.
type SessionTree struct {
	Folders []models.SessionFolder `json:"folders"`
	Files   []models.SessionFile   `json:"files"`
}

// FileService manages the virtual filesystem attached to a live session.
// Every mutation requires the caller to be a session participant.
type FileService struct {
	db *gorm.DB
}

// NewFileService constructs the session filesystem service.
func NewFileService(db *gorm.DB) (*FileService, error) {
	if db == nil {
		return nil, errors.New("file service: db is required")
	}
	return &FileService{db: db}, nil
}

// CreateFolder adds a folder under the given parent (nil parent means root).
// Sibling names must be unique.
func (s *FileService) CreateFolder(ctx context.Context, sessionKey, callerID, name string, parentID *string) (*models.SessionFolder, error) {
	if s == nil {
		return nil, errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("file service: folder name is required")
	}

	var folder models.SessionFolder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		if parentID != nil {
			var parentCount int64
			if err := tx.Model(&models.SessionFolder{}).
				Where("id = ? AND session_id = ?", *parentID, session.ID).
				Count(&parentCount).Error; err != nil {
				return err
			}
			if parentCount == 0 {
				return ErrFolderNotFound
			}
		}

		if err := s.checkSiblingNames(tx, session.ID, parentID, name); err != nil {
			return err
		}

		folder = models.SessionFolder{
			SessionID: session.ID,
			ParentID:  parentID,
			Name:      name,
		}
		return tx.Create(&folder).Error
	})
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// CreateFile adds a file under the given folder (nil folder means root).
func (s *FileService) CreateFile(ctx context.Context, sessionKey, callerID, name, language, content string, folderID *string) (*models.SessionFile, error) {
	if s == nil {
		return nil, errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("file service: file name is required")
	}

	var file models.SessionFile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		if folderID != nil {
			var folderCount int64
			if err := tx.Model(&models.SessionFolder{}).
				Where("id = ? AND session_id = ?", *folderID, session.ID).
				Count(&folderCount).Error; err != nil {
				return err
			}
			if folderCount == 0 {
				return ErrFolderNotFound
			}
		}

		if err := s.checkSiblingNames(tx, session.ID, folderID, name); err != nil {
			return err
		}

		file = models.SessionFile{
			SessionID: session.ID,
			FolderID:  folderID,
			Name:      name,
			Language:  strings.ToLower(strings.TrimSpace(language)),
			Content:   content,
		}
		return tx.Create(&file).Error
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// RenameFile changes a file's name, keeping sibling names unique.
func (s *FileService) RenameFile(ctx context.Context, sessionKey, callerID, fileID, name string) (*models.SessionFile, error) {
	if s == nil {
		return nil, errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("file service: file name is required")
	}

	var file models.SessionFile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		if err := tx.First(&file, "id = ? AND session_id = ?", fileID, session.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		if file.Name != name {
			if err := s.checkSiblingNames(tx, session.ID, file.FolderID, name); err != nil {
				return err
			}
		}

		file.Name = name
		return tx.Save(&file).Error
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// UpdateFileContent overwrites a file's buffer.
func (s *FileService) UpdateFileContent(ctx context.Context, sessionKey, callerID, fileID, content string) (*models.SessionFile, error) {
	if s == nil {
		return nil, errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	var file models.SessionFile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		if err := tx.First(&file, "id = ? AND session_id = ?", fileID, session.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		file.Content = content
		return tx.Save(&file).Error
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteFile removes a single file.
func (s *FileService) DeleteFile(ctx context.Context, sessionKey, callerID, fileID string) error {
	if s == nil {
		return errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		res := tx.Where("id = ? AND session_id = ?", fileID, session.ID).
			Delete(&models.SessionFile{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrFileNotFound
		}
		return nil
	})
}

// DeleteFolder removes a folder and everything beneath it.
func (s *FileService) DeleteFolder(ctx context.Context, sessionKey, callerID, folderID string) error {
	if s == nil {
		return errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		var folder models.SessionFolder
		if err := tx.First(&folder, "id = ? AND session_id = ?", folderID, session.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFolderNotFound
			}
			return err
		}

		return deleteFolderRecursive(tx, session.ID, folder.ID)
	})
}

// ListTree returns every folder and file in the session.
func (s *FileService) ListTree(ctx context.Context, sessionKey, callerID string) (*SessionTree, error) {
	if s == nil {
		return nil, errors.New("file service: service not initialised")
	}
	ctx = ensureContext(ctx)

	tree := &SessionTree{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.requireParticipant(tx, sessionKey, callerID)
		if err != nil {
			return err
		}

		if err := tx.Where("session_id = ?", session.ID).
			Order("name ASC").
			Find(&tree.Folders).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", session.ID).
			Order("name ASC").
			Find(&tree.Files).Error
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (s *FileService) requireParticipant(tx *gorm.DB, sessionKey, callerID string) (*models.CollabSession, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	callerID = strings.TrimSpace(callerID)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if callerID == "" {
		return nil, ErrNotParticipant
	}

	var session models.CollabSession
	if err := tx.First(&session, "session_key = ?", sessionKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.OwnerUserID == callerID {
		return &session, nil
	}

	var memberCount int64
	if err := tx.Model(&models.SessionParticipant{}).
		Where("session_id = ? AND user_id = ?", session.ID, callerID).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}
	if memberCount == 0 {
		return nil, ErrNotParticipant
	}
	return &session, nil
}

// checkSiblingNames rejects a name already used by a file or folder in the
// same directory of the same session.
func (s *FileService) checkSiblingNames(tx *gorm.DB, sessionID string, parentID *string, name string) error {
	parentClause := "parent_id IS NULL"
	folderClause := "folder_id IS NULL"
	args := []any{sessionID, name}
	if parentID != nil {
		parentClause = "parent_id = ?"
		folderClause = "folder_id = ?"
		args = append(args, *parentID)
	}

	var count int64
	query := tx.Model(&models.SessionFolder{}).
		Where("session_id = ? AND name = ? AND "+parentClause, args...)
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}

	query = tx.Model(&models.SessionFile{}).
		Where("session_id = ? AND name = ? AND "+folderClause, args...)
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}
	return nil
}

func deleteFolderRecursive(tx *gorm.DB, sessionID, folderID string) error {
	var children []models.SessionFolder
	if err := tx.Where("session_id = ? AND parent_id = ?", sessionID, folderID).
		Find(&children).Error; err != nil {
		return err
	}
	for i := range children {
		if err := deleteFolderRecursive(tx, sessionID, children[i].ID); err != nil {
			return err
		}
	}

	if err := tx.Where("session_id = ? AND folder_id = ?", sessionID, folderID).
		Delete(&models.SessionFile{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.SessionFolder{}, "id = ?", folderID).Error
}
