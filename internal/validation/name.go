// Package validation holds validators shared by configuration and storage.
package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// InstanceNamePattern определяет допустимый формат имени узла
// Латинские буквы, цифры, '_', '-' и '.', первым идет буква или цифра
var InstanceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

const (
	// MaxInstanceNameLen максимальная длина имени узла
	MaxInstanceNameLen = 64

	// InstanceNameTag тег validator для имени узла
	InstanceNameTag = "instance_name"
)

// ValidateInstanceName проверяет имя, под которым узел регистрируется у пиров
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("instance name must not exceed %d characters", MaxInstanceNameLen)
	}

	if !InstanceNamePattern.MatchString(name) {
		return fmt.Errorf("instance name can only contain letters, numbers, '_', '-' and '.', starting with a letter or number")
	}

	return nil
}

// New returns a validator with the project tags registered
func New() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation(InstanceNameTag, func(fl validator.FieldLevel) bool {
		return ValidateInstanceName(fl.Field().String()) == nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", InstanceNameTag, err)
	}
	return v, nil
}
