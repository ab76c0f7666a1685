// Package validation checks inbound circuit requests and property patches
// before they reach a mutation, and offers a fluent validator for config.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("componentid", func(fl validator.FieldLevel) bool {
		return ValidateComponentID(fl.Field().String()) == nil
	})
}

// ComponentPatch is a partial update of a component's configurable properties.
// Nil fields are left untouched.
type ComponentPatch struct {
	Name       *string  `json:"name,omitempty" validate:"omitnil,max=64"`
	Color      *string  `json:"color,omitempty" validate:"omitnil,hexcolor"`
	Brightness *int     `json:"brightness,omitempty" validate:"omitnil,min=0,max=100"`
	Interval   *int     `json:"interval,omitempty" validate:"omitnil,gt=0"`
	Value      *float64 `json:"value,omitempty" validate:"omitnil"`
}

// patchFields lists which patch fields each component type accepts.
var patchFields = map[string][]string{
	"light":    {"name", "color", "brightness"},
	"switch":   {"name"},
	"button":   {"name"},
	"sensor":   {"name", "value"},
	"timer":    {"name", "interval"},
	"wire":     {"name", "color"},
	"junction": {"name", "color"},
}

// ValidateComponentPatch validates a patch against the component type it targets.
func ValidateComponentPatch(componentType string, patch *ComponentPatch) error {
	if patch == nil {
		return errors.New("patch cannot be nil")
	}
	allowed, ok := patchFields[componentType]
	if !ok {
		return fmt.Errorf("type: unknown component type %q", componentType)
	}

	if err := validate.Struct(patch); err != nil {
		return formatValidationError(err)
	}

	present := []struct {
		field string
		set   bool
	}{
		{"name", patch.Name != nil},
		{"color", patch.Color != nil},
		{"brightness", patch.Brightness != nil},
		{"interval", patch.Interval != nil},
		{"value", patch.Value != nil},
	}
	for _, p := range present {
		if p.set && !contains(allowed, p.field) {
			return fmt.Errorf("%s: not configurable on a %s", p.field, componentType)
		}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return errors.New("name: must not be blank")
	}
	return nil
}

// AddComponentRequest places a component on the canvas.
type AddComponentRequest struct {
	Type string  `json:"type" validate:"required,oneof=light switch button sensor timer wire junction"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ConnectRequest wires two component ports.
type ConnectRequest struct {
	SourceID   string `json:"source_id" validate:"required,componentid"`
	SourcePort string `json:"source_port" validate:"required,oneof=input output"`
	TargetID   string `json:"target_id" validate:"required,componentid"`
	TargetPort string `json:"target_port" validate:"required,oneof=input output,nefield=SourcePort"`
}

// RenameRequest changes a component's label.
type RenameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// GestureRequest names the port a connection gesture starts or ends on. An
// empty ComponentID on completion means "released over no port".
type GestureRequest struct {
	ComponentID string `json:"component_id"`
	Port        string `json:"port" validate:"omitempty,oneof=input output"`
}

// AdvanceTimersRequest advances armed timers by Steps seconds, at most an hour per request.
type AdvanceTimersRequest struct {
	Steps int `json:"steps" validate:"required,min=1,max=3600"`
}

// SensorRequest sets whether a sensor is detecting.
type SensorRequest struct {
	Active bool `json:"active"`
}

// ValidateRequest validates any request struct carrying validate tags.
func ValidateRequest(req any) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateComponentID checks the shape of a component id: <type>-<digits>.
func ValidateComponentID(id string) error {
	idx := strings.LastIndex(id, "-")
	if idx <= 0 || idx == len(id)-1 {
		return fmt.Errorf("component id %q must look like <type>-<timestamp>", id)
	}
	if _, ok := patchFields[id[:idx]]; !ok {
		return fmt.Errorf("component id %q has unknown type prefix", id)
	}
	for _, r := range id[idx+1:] {
		if r < '0' || r > '9' {
			return fmt.Errorf("component id %q has a non-numeric timestamp", id)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := strings.ToLower(e.Field())
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "hexcolor":
			return fmt.Errorf("%s: must be a hex colour like #aabbcc", field)
		case "componentid":
			return fmt.Errorf("%s: must look like <type>-<timestamp>", field)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, strings.ToLower(param))
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
