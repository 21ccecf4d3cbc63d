package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"prepmate/interview/internal/models"
)

// ErrNotFound is returned when a session or profile does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence layer for sessions, transcripts, plans and
// candidate profiles.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(
		&models.Session{},
		&models.Message{},
		&models.InterviewPlan{},
		&models.SessionTurnState{},
		&models.SessionProfile{},
		&models.UserProfile{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Ping verifies the underlying database connection.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) CreateSession(session *models.Session) error {
	return s.db.Create(session).Error
}

func (s *Store) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.db.First(&session, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) UpdateSession(session *models.Session) error {
	return s.db.Save(session).Error
}

// ListSessions returns trimmed session views for a user, newest first.
func (s *Store) ListSessions(userID string, limit, offset int) ([]models.SessionListItem, int64, error) {
	var total int64
	query := s.db.Model(&models.Session{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.Session
	if err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	items := make([]models.SessionListItem, 0, len(sessions))
	for _, sess := range sessions {
		var msgCount int64
		s.db.Model(&models.Message{}).Where("session_id = ?", sess.SessionID).Count(&msgCount)
		items = append(items, models.SessionListItem{
			SessionID:     sess.SessionID,
			Title:         sess.Title,
			Mode:          sess.Mode,
			Status:        sess.Status,
			QuestionCount: sess.QuestionCount,
			MessageCount:  int(msgCount),
			CreatedAt:     sess.CreatedAt,
			UpdatedAt:     sess.UpdatedAt,
		})
	}
	return items, total, nil
}

// DeleteSession removes a session and everything hanging off it.
func (s *Store) DeleteSession(sessionID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Session{}, "session_id = ?", sessionID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&models.Message{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.InterviewPlan{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SessionTurnState{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SessionProfile{}, "session_id = ?", sessionID).Error
	})
}

func (s *Store) AppendMessage(msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return s.db.Create(msg).Error
}

// GetMessages returns a session's transcript in insertion order.
func (s *Store) GetMessages(sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.Where("session_id = ?", sessionID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// SavePlan persists the question list as a JSON blob, replacing any
// previous plan for the session.
func (s *Store) SavePlan(sessionID string, questions []models.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	var existing models.InterviewPlan
	err = s.db.First(&existing, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.InterviewPlan{SessionID: sessionID, Questions: string(data)}).Error
	}
	if err != nil {
		return err
	}
	existing.Questions = string(data)
	return s.db.Save(&existing).Error
}

func (s *Store) GetPlan(sessionID string) ([]models.Question, error) {
	var plan models.InterviewPlan
	err := s.db.First(&plan, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	if err := json.Unmarshal([]byte(plan.Questions), &questions); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return questions, nil
}

// SaveTurnState upserts the session's turn controller state.
func (s *Store) SaveTurnState(sessionID string, state *models.TurnState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode turn state: %w", err)
	}

	var existing models.SessionTurnState
	err = s.db.First(&existing, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.SessionTurnState{SessionID: sessionID, State: string(data)}).Error
	}
	if err != nil {
		return err
	}
	existing.State = string(data)
	return s.db.Save(&existing).Error
}

func (s *Store) GetTurnState(sessionID string) (*models.TurnState, error) {
	var record models.SessionTurnState
	err := s.db.First(&record, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state models.TurnState
	if err := json.Unmarshal([]byte(record.State), &state); err != nil {
		return nil, fmt.Errorf("failed to decode turn state: %w", err)
	}
	return &state, nil
}

// DeleteTurnState drops the stored state so it gets rebuilt from the
// transcript, used after rollback.
func (s *Store) DeleteTurnState(sessionID string) error {
	return s.db.Delete(&models.SessionTurnState{}, "session_id = ?", sessionID).Error
}

// Rollback truncates a session's transcript to its first index messages and
// rewinds the progress counter to match what remains. Index 0 restarts the
// interview from scratch.
func (s *Store) Rollback(sessionID string, index int) (*models.Session, int, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, 0, err
	}

	messages, err := s.GetMessages(sessionID)
	if err != nil {
		return nil, 0, err
	}
	if index > len(messages) {
		index = len(messages)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, msg := range messages[index:] {
			if err := tx.Delete(&models.Message{}, msg.ID).Error; err != nil {
				return err
			}
		}

		// The interviewer asking question N implies N-1 questions done, so
		// progress rewinds to one less than the highest asked index.
		count := 0
		for _, msg := range messages[:index] {
			if msg.Role == models.RoleAssistant && msg.QuestionIndex-1 > count {
				count = msg.QuestionIndex - 1
			}
		}
		session.QuestionCount = count
		session.Status = models.StatusActive
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		// Stored turn state is stale after a rewind; drop it so the
		// controller rebuilds it from the transcript.
		return tx.Delete(&models.SessionTurnState{}, "session_id = ?", sessionID).Error
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("session rolled back",
		zap.String("session_id", sessionID),
		zap.Int("kept_messages", index),
		zap.Int("question_count", session.QuestionCount))

	return session, index, nil
}

// SaveProfile upserts the per-session candidate profile.
func (s *Store) SaveProfile(sessionID, userID string, profile *models.CandidateProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	var existing models.SessionProfile
	err = s.db.First(&existing, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.SessionProfile{
			SessionID: sessionID,
			UserID:    userID,
			Profile:   string(data),
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Profile = string(data)
	return s.db.Save(&existing).Error
}

func (s *Store) GetProfile(sessionID string) (*models.CandidateProfile, error) {
	var record models.SessionProfile
	err := s.db.First(&record, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeProfile(record.Profile)
}

// GetRecentProfiles returns up to limit session profiles for a user,
// newest first.
func (s *Store) GetRecentProfiles(userID string, limit int) ([]models.CandidateProfile, error) {
	var records []models.SessionProfile
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	profiles := make([]models.CandidateProfile, 0, len(records))
	for _, record := range records {
		profile, err := decodeProfile(record.Profile)
		if err != nil {
			s.logger.Warn("skipping corrupt session profile",
				zap.String("session_id", record.SessionID), zap.Error(err))
			continue
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

// SaveUserProfile upserts the aggregated per-user profile.
func (s *Store) SaveUserProfile(userID string, profile *models.CandidateProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	var existing models.UserProfile
	err = s.db.First(&existing, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.UserProfile{UserID: userID, Profile: string(data)}).Error
	}
	if err != nil {
		return err
	}
	existing.Profile = string(data)
	return s.db.Save(&existing).Error
}

func (s *Store) GetUserProfile(userID string) (*models.CandidateProfile, error) {
	var record models.UserProfile
	err := s.db.First(&record, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeProfile(record.Profile)
}

// ListUserIDs returns the distinct users that own at least one session
// profile. Used by the nightly aggregation job.
func (s *Store) ListUserIDs() ([]string, error) {
	var userIDs []string
	err := s.db.Model(&models.SessionProfile{}).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func decodeProfile(data string) (*models.CandidateProfile, error) {
	var profile models.CandidateProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}
