package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

type AchievementInput struct {
	Name        string
	Description string
	Type        domain.AchievementType
	Icon        string
	Points      int
	Requirement domain.AchievementRequirement
	IsActive    *bool
}

type AchievementPatch struct {
	Name        *string
	Description *string
	Type        *domain.AchievementType
	Icon        *string
	Points      *int
	Requirement *domain.AchievementRequirement
	IsActive    *bool
}

type AchievementService struct {
	achievements AchievementRepository
	users        UserRepository
	attempts     AttemptRepository
	categories   CategoryRepository
	log          zerolog.Logger
	now          func() time.Time
}

func NewAchievementService(
	achievements AchievementRepository,
	users UserRepository,
	attempts AttemptRepository,
	categories CategoryRepository,
	log zerolog.Logger,
) *AchievementService {
	return &AchievementService{
		achievements: achievements,
		users:        users,
		attempts:     attempts,
		categories:   categories,
		log:          log,
		now:          time.Now,
	}
}

func (s *AchievementService) List(ctx context.Context, f domain.AchievementFilter) (domain.Paginated[domain.Achievement], error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.achievements.List(ctx, f)
	if err != nil {
		return domain.Paginated[domain.Achievement]{}, err
	}
	return domain.NewPaginated(items, total, f.Page), nil
}

func (s *AchievementService) Get(ctx context.Context, id string) (domain.Achievement, error) {
	return s.achievements.FindByID(ctx, id)
}

func (s *AchievementService) Create(ctx context.Context, in AchievementInput) (domain.Achievement, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return domain.Achievement{}, err
	}
	if err := s.validateRequirement(ctx, in.Type, in.Requirement); err != nil {
		return domain.Achievement{}, err
	}

	now := s.now().UTC()
	achievement := domain.Achievement{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		Type:        in.Type,
		Icon:        in.Icon,
		Points:      in.Points,
		Requirement: in.Requirement,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		achievement.IsActive = *in.IsActive
	}
	if err := s.achievements.Create(ctx, &achievement); err != nil {
		return domain.Achievement{}, err
	}
	return achievement, nil
}

func (s *AchievementService) Update(ctx context.Context, id string, patch AchievementPatch) (domain.Achievement, error) {
	achievement, err := s.achievements.FindByID(ctx, id)
	if err != nil {
		return domain.Achievement{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return domain.Achievement{}, err
		}
		achievement.Name = name
	}
	if patch.Type != nil {
		achievement.Type = *patch.Type
	}
	if patch.Requirement != nil {
		achievement.Requirement = *patch.Requirement
	}
	if patch.Type != nil || patch.Requirement != nil {
		if err := s.validateRequirement(ctx, achievement.Type, achievement.Requirement); err != nil {
			return domain.Achievement{}, err
		}
	}
	if patch.Description != nil {
		achievement.Description = *patch.Description
	}
	if patch.Icon != nil {
		achievement.Icon = *patch.Icon
	}
	if patch.Points != nil {
		achievement.Points = *patch.Points
	}
	if patch.IsActive != nil {
		achievement.IsActive = *patch.IsActive
	}
	achievement.UpdatedAt = s.now().UTC()
	if err := s.achievements.Update(ctx, &achievement); err != nil {
		return domain.Achievement{}, err
	}
	return s.achievements.FindByID(ctx, id)
}

func (s *AchievementService) Delete(ctx context.Context, id string) (domain.Achievement, error) {
	achievement, err := s.achievements.FindByID(ctx, id)
	if err != nil {
		return domain.Achievement{}, err
	}
	if achievement.EarnedCount > 0 {
		return domain.Achievement{}, domain.Invalid("Cannot delete an achievement that users have earned")
	}
	if err := s.achievements.Delete(ctx, id); err != nil {
		return domain.Achievement{}, err
	}
	return achievement, nil
}

func (s *AchievementService) ForUser(ctx context.Context, userID string) ([]domain.UserAchievement, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.achievements.ListForUser(ctx, userID)
}

// Award grants an achievement and credits its points to the user.
func (s *AchievementService) Award(ctx context.Context, userID, achievementID string) (domain.UserAchievement, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return domain.UserAchievement{}, err
	}
	achievement, err := s.achievements.FindByID(ctx, achievementID)
	if err != nil {
		return domain.UserAchievement{}, err
	}
	if !achievement.IsActive {
		return domain.UserAchievement{}, domain.Invalid("Achievement is not active")
	}
	has, err := s.achievements.HasUserAchievement(ctx, userID, achievementID)
	if err != nil {
		return domain.UserAchievement{}, err
	}
	if has {
		return domain.UserAchievement{}, domain.Invalid("User already has this achievement")
	}

	ua := domain.UserAchievement{
		ID:            uuid.NewString(),
		UserID:        userID,
		AchievementID: achievementID,
		EarnedAt:      s.now().UTC(),
		Achievement:   &achievement,
	}
	if err := s.achievements.Award(ctx, &ua, achievement.Points); err != nil {
		return domain.UserAchievement{}, err
	}
	return ua, nil
}

// CheckAndAward awards every active achievement the user now qualifies for.
// A failing achievement is logged and skipped so the others are still evaluated.
// Points from an award count toward score milestones checked afterwards, so the
// active list is swept again until a sweep awards nothing.
func (s *AchievementService) CheckAndAward(ctx context.Context, userID string) ([]domain.UserAchievement, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := s.achievements.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var awarded []domain.UserAchievement
	done := make(map[string]bool, len(active))
	for progressed := true; progressed; {
		progressed = false
		for _, achievement := range active {
			if done[achievement.ID] {
				continue
			}
			log := s.log.With().
				Str("user_id", userID).
				Str("achievement_id", achievement.ID).
				Logger()

			has, err := s.achievements.HasUserAchievement(ctx, userID, achievement.ID)
			if err != nil {
				log.Error().Err(err).Msg("failed to check user achievement")
				done[achievement.ID] = true
				continue
			}
			if has {
				done[achievement.ID] = true
				continue
			}
			met, err := s.requirementMet(ctx, user, achievement)
			if err != nil {
				log.Error().Err(err).Msg("failed to evaluate achievement requirement")
				done[achievement.ID] = true
				continue
			}
			if !met {
				continue
			}
			done[achievement.ID] = true
			ua, err := s.Award(ctx, userID, achievement.ID)
			if err != nil {
				log.Error().Err(err).Msg("failed to award achievement")
				continue
			}
			user.TotalScore += achievement.Points
			progressed = true
			log.Info().Str("achievement", achievement.Name).Msg("achievement awarded")
			awarded = append(awarded, ua)
		}
	}
	return awarded, nil
}

func (s *AchievementService) requirementMet(ctx context.Context, user domain.User, a domain.Achievement) (bool, error) {
	switch a.Type {
	case domain.AchievementQuizCompletion:
		completed, err := s.attempts.CountCompleted(ctx, user.ID, "")
		if err != nil {
			return false, err
		}
		return completed >= a.Requirement.Count, nil
	case domain.AchievementScoreMilestone:
		return user.TotalScore >= a.Requirement.Score, nil
	case domain.AchievementCategoryMaster:
		if a.Requirement.CategoryID == "" {
			return false, nil
		}
		completed, err := s.attempts.CountCompleted(ctx, user.ID, a.Requirement.CategoryID)
		if err != nil {
			return false, err
		}
		return completed >= a.Requirement.Count, nil
	}
	return false, nil
}

func (s *AchievementService) validateRequirement(ctx context.Context, typ domain.AchievementType, req domain.AchievementRequirement) error {
	switch typ {
	case domain.AchievementQuizCompletion:
		if req.Count < 1 {
			return domain.Invalid("QUIZ_COMPLETION achievements require a positive count")
		}
	case domain.AchievementScoreMilestone:
		if req.Score < 1 {
			return domain.Invalid("SCORE_MILESTONE achievements require a positive score")
		}
	case domain.AchievementCategoryMaster:
		if req.Count < 1 || req.CategoryID == "" {
			return domain.Invalid("CATEGORY_MASTER achievements require a categoryId and a positive count")
		}
		if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
			if errors.Is(err, domain.ErrCategoryNotFound) {
				return domain.Invalid("Category not found")
			}
			return err
		}
	default:
		return domain.Invalidf("Unsupported achievement type %q", typ)
	}
	return nil
}

func (s *AchievementService) ensureNameFree(ctx context.Context, name, selfID string) error {
	if name == "" {
		return domain.Invalid("Achievement name is required")
	}
	existing, err := s.achievements.FindByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrAchievementNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return domain.Conflict("Achievement name must be unique")
	}
	return nil
}
