package iot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

func userLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryUser),
	)
}

func (i *IOT) register(ctx context.Context, input *models.User, password string) (*models.User, error) {
	if password == "" {
		return nil, fmt.Errorf("empty password: %w", ErrInvalid)
	}

	role := input.Role
	switch role {
	case "":
		role = models.RoleFarmer
	case models.RoleFarmer, models.RoleExpert:
	default:
		return nil, fmt.Errorf("role %q: %w", role, ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         input.Name,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := i.Db.Conn.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("user %s: %w", user.Email, ErrConflict)
		}
		return nil, err
	}

	userLogger().Info("Registered user", zap.String("id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

// authenticate answers ErrUnauthorized for both unknown emails and wrong passwords.
func (i *IOT) authenticate(ctx context.Context, email string, password string) (*models.User, error) {
	var user models.User
	err := i.Db.Conn.WithContext(ctx).
		First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		userLogger().Info("Rejected login", zap.String("id", user.ID))
		return nil, ErrUnauthorized
	}

	return &user, nil
}

type IUserImpl struct {
	iot *IOT
}

func (u *IUserImpl) Register(ctx context.Context, input *models.User, password string) (*models.User, error) {
	return u.iot.register(ctx, input, password)
}

func (u *IUserImpl) Authenticate(ctx context.Context, email string, password string) (*models.User, error) {
	return u.iot.authenticate(ctx, email, password)
}

func (i *IOT) GetIUser() IUser {
	return &IUserImpl{iot: i}
}
