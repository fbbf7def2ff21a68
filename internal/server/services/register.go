package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/password"
	"github.com/rosedal2/condoauth/internal/server/models"
)

const maxNameLength = 100

// RegisterInput is a self-registration request. An empty Role means
// security officer.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	HouseID   *int64
	Role      models.Role
	IPAddress string
}

func (in *RegisterInput) validate() error {
	in.Email = common.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)

	if !common.ValidEmail(in.Email) {
		return common.Validation("invalid email address")
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		return common.Validation(err.Error())
	}
	if in.FirstName == "" || in.LastName == "" {
		return common.Validation("first and last name are required")
	}
	if len(in.FirstName) > maxNameLength || len(in.LastName) > maxNameLength {
		return common.Validation("name too long")
	}
	if in.Role == "" {
		in.Role = models.RoleSecurityOfficer
	}
	if !in.Role.Valid() {
		return common.Validation("unknown role")
	}
	return nil
}

// Register creates an account and signs it in. The refresh token is backed
// by a session so it can be rotated like one obtained through Login.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	_, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, common.Conflict("email already registered")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "register", err)
	}

	if in.HouseID != nil {
		ok, err := s.repomanager.Houses(s.db).Exists(ctx, *in.HouseID)
		if err != nil {
			return nil, s.internal(ctx, "register", err)
		}
		if !ok {
			return nil, common.Validation("house not found")
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}

	account := &models.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        optional(in.Phone),
		Role:         in.Role,
		HouseID:      in.HouseID,
		IsActive:     true,
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Accounts(tx).Create(ctx, account)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.Conflict("email already registered")
			}
			return err
		}
		account = created

		pair, err = s.issuePair(account, false)
		if err != nil {
			return err
		}
		return s.repomanager.Sessions(tx).Create(ctx, s.newSession(account.ID, pair.RefreshToken, optional(in.IPAddress), nil))
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, s.internal(ctx, "register", err)
	}

	s.emit(ctx, account.ID, common.ActionRegister, account.ID, optional(in.IPAddress), map[string]any{"role": string(account.Role)})
	s.log.Info(ctx, "account registered", "user_id", account.ID, "role", string(account.Role))

	pub := account.Public()
	return &AuthResult{User: &pub, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
