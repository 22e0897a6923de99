package service

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrWarehouseNotFound = errors.New("location does not belong to a warehouse")
)

func validationError(errs ...error) error {
	if err := errors.Join(errs...); err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}
