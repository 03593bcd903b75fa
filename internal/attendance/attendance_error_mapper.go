package attendance

import (
	"errors"
	"strings"

	attendanceerrors "github.com/One-johnson/sheepshep-sub001/internal/attendance/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attendanceerrors.ErrNotFound
	}
	if isUniqueAttendanceViolation(err) {
		return attendanceerrors.ErrAlreadyMarked
	}
	return err
}

func isUniqueAttendanceViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == UniqueKeyIndex
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key value") && strings.Contains(msg, UniqueKeyIndex) {
		return true
	}
	// sqlite reports the columns instead of the index name.
	return strings.Contains(msg, "unique constraint failed") &&
		strings.Contains(msg, "attendance_records.subject_id")
}
