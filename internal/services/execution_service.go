package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/execution"
	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/pkg/metrics"
)

var (
	// ErrProRequired indicates the language is reserved for pro accounts.
	ErrProRequired = errors.New("execution service: pro subscription required for this language")
	// ErrLanguageUnsupported indicates the sandbox does not run this language.
	ErrLanguageUnsupported = errors.New("execution service: unsupported language")
)

// freeLanguages are runnable without a pro subscription.
var freeLanguages = map[string]bool{
	"javascript": true,
	"typescript": true,
}

// supportedLanguages is the sandbox's runtime catalogue.
var supportedLanguages = map[string]bool{
	"javascript": true,
	"typescript": true,
	"python":     true,
	"go":         true,
	"rust":       true,
	"java":       true,
	"cpp":        true,
	"ruby":       true,
}

// RunCodeParams describes one sandbox run request.
type RunCodeParams struct {
	UserID   string
	Language string
	Code     string
	Stdin    string
}

// ExecutionService runs code through the sandbox and keeps a per-user
// execution history. Languages beyond the free tier require a pro account.
type ExecutionService struct {
	db     *gorm.DB
	client *execution.Client
}

// NewExecutionService constructs the execution service.
func NewExecutionService(db *gorm.DB, client *execution.Client) (*ExecutionService, error) {
	if db == nil {
		return nil, errors.New("execution service: db is required")
	}
	if client == nil {
		return nil, errors.New("execution service: sandbox client is required")
	}
	return &ExecutionService{db: db, client: client}, nil
}

// Run executes the code in the sandbox and records the outcome in the
// caller's history. Sandbox failures are recorded too so the history reflects
// what the user actually saw.
func (s *ExecutionService) Run(ctx context.Context, params RunCodeParams) (*models.CodeExecution, error) {
	if s == nil {
		return nil, errors.New("execution service: service not initialised")
	}
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		return nil, errors.New("execution service: user id is required")
	}
	language := strings.ToLower(strings.TrimSpace(params.Language))
	if !supportedLanguages[language] {
		return nil, ErrLanguageUnsupported
	}
	if strings.TrimSpace(params.Code) == "" {
		return nil, errors.New("execution service: code is required")
	}

	if !freeLanguages[language] {
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProRequired
			}
			return nil, err
		}
		if !user.IsPro {
			return nil, ErrProRequired
		}
	}

	record := models.CodeExecution{
		UserID:   userID,
		Language: language,
		Code:     params.Code,
	}

	result, err := s.client.Run(ctx, execution.RunRequest{
		Language: language,
		Code:     params.Code,
		Stdin:    params.Stdin,
	})
	if err != nil {
		record.Error = err.Error()
		record.ExitCode = -1
		metrics.CodeExecutions.WithLabelValues("error").Inc()
	} else {
		record.Output = result.Output
		record.Error = result.Error
		record.ExitCode = result.ExitCode
		if result.ExitCode == 0 && result.Error == "" {
			metrics.CodeExecutions.WithLabelValues("success").Inc()
		} else {
			metrics.CodeExecutions.WithLabelValues("error").Inc()
		}
	}

	if dbErr := s.db.WithContext(ctx).Create(&record).Error; dbErr != nil {
		return nil, dbErr
	}
	if err != nil {
		return &record, err
	}
	return &record, nil
}

// History returns the caller's most recent runs, newest first.
func (s *ExecutionService) History(ctx context.Context, userID string, limit int) ([]models.CodeExecution, error) {
	if s == nil {
		return nil, errors.New("execution service: service not initialised")
	}
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("execution service: user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var runs []models.CodeExecution
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
