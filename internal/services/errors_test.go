package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
)

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm translated", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "postgres foreign key", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062}, want: true},
		{name: "mysql foreign key", err: &mysql.MySQLError{Number: 1452}, want: false},
		{name: "sqlite registration email", err: errors.New("UNIQUE constraint failed: registrations.event_id, registrations.email"), want: true},
		{name: "sqlite foreign key", err: errors.New("FOREIGN KEY constraint failed"), want: false},
		{name: "sqlite not null", err: errors.New("NOT NULL constraint failed: registrations.full_name"), want: false},
		{name: "connection", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestTranslateWriteError(t *testing.T) {
	duplicate := apperrors.ErrAlreadyRegistered.WithMessage("This email is already registered for Robo Race")

	require.NoError(t, translateWriteError(nil, duplicate, "op"))

	err := translateWriteError(errors.New("UNIQUE constraint failed: registrations.email"), duplicate, "op")
	require.Same(t, duplicate, err)

	err = translateWriteError(apperrors.ErrEventFull, duplicate, "op")
	require.ErrorIs(t, err, apperrors.ErrEventFull)

	cause := errors.New("FOREIGN KEY constraint failed")
	err = translateWriteError(cause, duplicate, "registration service: create registration")
	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, "registration service: create registration: FOREIGN KEY constraint failed")
	require.NotErrorIs(t, err, apperrors.ErrAlreadyRegistered)
}
