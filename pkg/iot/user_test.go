package iot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
	_ "liyu1981.xyz/smart-farm-service/pkg/testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	email := uuid.NewString() + "@farm.test"

	user, err := iotObj.User.Register(ctx, &models.User{Name: "Asha", Email: "  " + email + " "}, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFarmer, user.Role)
	assert.Equal(t, email, user.Email)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	got, err := iotObj.User.Authenticate(ctx, email, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = iotObj.User.Authenticate(ctx, email, "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = iotObj.User.Authenticate(ctx, "nobody-"+email, "s3cret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister_Errors(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	email := uuid.NewString() + "@farm.test"

	_, err := iotObj.User.Register(ctx, &models.User{Name: "Ravi", Email: email, Role: models.RoleExpert}, "pw")
	require.NoError(t, err)

	_, err = iotObj.User.Register(ctx, &models.User{Name: "Ravi", Email: email}, "pw")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = iotObj.User.Register(ctx, &models.User{Name: "Ravi", Email: "x" + email, Role: "admin"}, "pw")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = iotObj.User.Register(ctx, &models.User{Name: "Ravi", Email: "y" + email}, "")
	assert.ErrorIs(t, err, ErrInvalid)
}
