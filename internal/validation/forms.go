package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SettingsForm mirrors the settings screen. An empty password means
// "unchanged".
type SettingsForm struct {
	Image    string `json:"image" validate:"omitempty,avatar"`
	Username string `json:"username" validate:"required,max=64"`
	Bio      string `json:"bio" validate:"max=1024"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

type ArticleForm struct {
	Title       string   `json:"title" validate:"required,max=256"`
	Description string   `json:"description" validate:"required,max=512"`
	Body        string   `json:"body" validate:"required"`
	Tags        []string `json:"tagList" validate:"max=16,dive,required,max=32"`
}

type CommentForm struct {
	Body string `json:"body" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		images := NewImageURLValidator()
		_ = v.RegisterValidation("avatar", func(fl validator.FieldLevel) bool {
			_, err := images.ValidateAndNormalize(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate checks form, which must be a pointer to one of the form types,
// after trimming its string fields. Rule violations come back as a field
// map in the server's error shape ("email" -> ["can't be blank"]).
func Validate(form any) (map[string][]string, error) {
	trimStrings(reflect.ValueOf(form))

	err := formValidator().Struct(form)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validating form: %w", err)
	}

	fields := make(map[string][]string)
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = append(fields[name], message(fe))
	}
	return fields, nil
}

// fieldName collapses tagList[2] to tagList.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "email", "avatar":
		return "is invalid"
	case "min":
		return fmt.Sprintf("is too short (minimum is %s characters)", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("has too many entries (maximum is %s)", fe.Param())
		}
		return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
	default:
		return "is invalid"
	}
}

func trimStrings(v reflect.Value) {
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			// Passwords are taken verbatim.
			if v.Type().Field(i).Name == "Password" {
				continue
			}
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Slice:
			if f.Type().Elem().Kind() == reflect.String {
				f.Set(reflect.ValueOf(NormalizeTags(f.Interface().([]string))))
			}
		}
	}
}

// NormalizeTags trims tags and drops blanks and duplicates, keeping the
// first occurrence's order. A comma-separated string may be passed as a
// single element.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
