package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// AccountService provisions and maintains accounts. Google subjects are only ever bound by
// login; the service can clear one but never set it.
type AccountService interface {
	List(ctx context.Context, req dto.AccountListRequest) ([]dto.AccountResponse, error)
	Get(ctx context.Context, id uint) (dto.AccountResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AccountRequest) (dto.AccountResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AccountRequest) (dto.AccountResponse, error)
	Unbind(ctx context.Context, actor Actor, id uint) (dto.AccountResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type accountService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	views     ViewInvalidator
	logger    zerolog.Logger
}

// NewAccountService constructs the account service.
func NewAccountService(store repository.Store, validate *validator.Validate, activity ActivityRecorder, views ViewInvalidator, logger zerolog.Logger) AccountService {
	return &accountService{
		store:     store,
		validator: validate,
		activity:  activity,
		views:     viewsOrNoop(views),
		logger:    logger.With().Str("component", "account_service").Logger(),
	}
}

func (s *accountService) List(ctx context.Context, req dto.AccountListRequest) ([]dto.AccountResponse, error) {
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	filter := repository.AccountFilter{Search: req.Search}
	if req.Role != "" {
		role := models.Role(req.Role)
		filter.Role = &role
	}

	accounts, err := s.store.Accounts().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewAccountResponses(accounts), nil
}

func (s *accountService) Get(ctx context.Context, id uint) (dto.AccountResponse, error) {
	account, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return dto.AccountResponse{}, translateStoreError(err, "user", id)
	}
	return dto.NewAccountResponse(account), nil
}

func (s *accountService) Create(ctx context.Context, actor Actor, payload dto.AccountRequest) (dto.AccountResponse, error) {
	payload = normalizeAccountRequest(payload)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AccountResponse{}, err
	}

	account := models.Account{
		Name:  payload.Name,
		Email: payload.Email,
		Role:  models.Role(payload.Role),
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := s.ensureEmailFree(ctx, tx, payload.Email, 0); err != nil {
			return err
		}
		return tx.Accounts().Create(ctx, &account)
	})
	if err != nil {
		return dto.AccountResponse{}, translateStoreError(err, "user", 0)
	}

	s.record(ctx, actor, "user.created", account)
	return dto.NewAccountResponse(account), nil
}

func (s *accountService) Update(ctx context.Context, actor Actor, id uint, payload dto.AccountRequest) (dto.AccountResponse, error) {
	payload = normalizeAccountRequest(payload)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AccountResponse{}, err
	}

	var account models.Account
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "user", id)
		}

		if account.Email != payload.Email {
			if err := s.ensureEmailFree(ctx, tx, payload.Email, id); err != nil {
				return err
			}
		}

		account.Name = payload.Name
		account.Email = payload.Email
		account.Role = models.Role(payload.Role)
		return tx.Accounts().Update(ctx, &account)
	})
	if err != nil {
		return dto.AccountResponse{}, translateStoreError(err, "user", id)
	}

	s.record(ctx, actor, "user.updated", account)
	return dto.NewAccountResponse(account), nil
}

// Unbind clears the account's Google subject so that the next login binds afresh.
func (s *accountService) Unbind(ctx context.Context, actor Actor, id uint) (dto.AccountResponse, error) {
	var account models.Account
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().ClearGoogleSub(ctx, id); err != nil {
			return translateStoreError(err, "user", id)
		}

		var err error
		account, err = tx.Accounts().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return dto.AccountResponse{}, err
	}

	s.logger.Info().Uint("account_id", id).Uint("actor_id", actor.ID).Msg("external identity cleared")
	s.record(ctx, actor, "user.unbound", account)
	return dto.NewAccountResponse(account), nil
}

// Delete removes the account together with its enrollments. Accounts still named by an
// evaluation are kept, and admins cannot delete their own account.
func (s *accountService) Delete(ctx context.Context, actor Actor, id uint) error {
	if actor.ID == id {
		return conflict("cannot delete the account in use")
	}

	var account models.Account
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "user", id)
		}

		total, err := tx.Evaluations().CountByAccount(ctx, id)
		if err != nil {
			return err
		}
		if total > 0 {
			return conflict("user %d is named by %d evaluations", id, total)
		}

		return translateStoreError(tx.Accounts().Delete(ctx, id), "user", id)
	})
	if err != nil {
		return err
	}

	s.views.InvalidateStudent(ctx, id)
	s.record(ctx, actor, "user.deleted", account)
	return nil
}

func (s *accountService) ensureEmailFree(ctx context.Context, tx repository.Store, email string, selfID uint) error {
	existing, err := tx.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return conflict("email %s is already registered", email)
	}
	return nil
}

func (s *accountService) record(ctx context.Context, actor Actor, action string, account models.Account) {
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "user",
		EntityID:   uintPtr(account.ID),
		Metadata:   map[string]interface{}{"role": account.Role.String()},
	})
}

func normalizeAccountRequest(payload dto.AccountRequest) dto.AccountRequest {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	return payload
}
