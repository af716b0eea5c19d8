package services

import (
	"errors"
	"natours/internal/apperr"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (in SignupInput) Validate(minLen int) error {
	return asValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(minLen, 128)),
		validation.Field(&in.PasswordConfirm, validation.Required, validation.By(stringEquals(in.Password))),
	))
}

type ChangePasswordInput struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (in ChangePasswordInput) Validate(minLen int) error {
	return asValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.PasswordCurrent, validation.Required),
		validation.Field(&in.Password, validation.Required, validation.Length(minLen, 128)),
		validation.Field(&in.PasswordConfirm, validation.Required, validation.By(stringEquals(in.Password))),
	))
}

type ResetPasswordInput struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (in ResetPasswordInput) Validate(minLen int) error {
	return asValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Password, validation.Required, validation.Length(minLen, 128)),
		validation.Field(&in.PasswordConfirm, validation.Required, validation.By(stringEquals(in.Password))),
	))
}

func stringEquals(expected string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New("пароли не совпадают")
		}
		return nil
	}
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Validation(err.Error())
}

func validateEmail(email string) error {
	return asValidationError(validation.Validate(email, validation.Required, validation.Length(3, 254), is.Email))
}
