package repo

import "errors"

var (
	// ErrNotFound — строки нет (pgx.ErrNoRows или RowsAffected == 0).
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — нарушен уникальный индекс, например имя blueprint.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — journey уже в финальном статусе.
	ErrInvalidState = errors.New("invalid state")
)
