package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
)

type AccountUseCase struct {
	users ports.UserRepository
}

func NewAccountUseCase(users ports.UserRepository) *AccountUseCase {
	return &AccountUseCase{users: users}
}

// Create registers a user together with the one catalog every user owns.
func (uc *AccountUseCase) Create(ctx context.Context, username, email string) (*domain.User, *domain.Catalog, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "create account", errors.New("username is required"))
	}
	return uc.users.CreateWithCatalog(ctx, username, strings.TrimSpace(email))
}
