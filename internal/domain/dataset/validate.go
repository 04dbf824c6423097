package dataset

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В сообщениях используем JSON-имена полей, как их видит клиент
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate проверяет схему всех записей и уникальность id внутри каждой коллекции.
func Validate(d Dataset) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, describe(err))
	}
	for _, c := range Collections {
		if err := accessors[c].unique(&d); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRecord проверяет одну запись (например, собранную из флагов CLI).
func ValidateRecord(rec Record) error {
	if err := validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		// Dataset.memories[0].title -> memories[0].title
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", ns, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", ns, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
