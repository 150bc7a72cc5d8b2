package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"budget/internal/core"
)

type periodRequest struct {
	Key      string           `json:"key" validate:"omitempty,period_key"`
	Incomes  map[string]int64 `json:"incomes" validate:"dive,keys,required,max=64,endkeys,gte=0,max=1000000000000"`
	Expenses map[string]int64 `json:"expenses" validate:"dive,keys,required,max=64,endkeys,gte=0,max=1000000000000"`
	Comment  string           `json:"comment" validate:"max=2000"`
}

func (p periodRequest) toPeriod() core.Period {
	return core.Period{
		Key:      p.Key,
		Incomes:  core.Amounts(p.Incomes).Clone(),
		Expenses: core.Amounts(p.Expenses).Clone(),
		Comment:  p.Comment,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=1024"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("period_key", func(fl validator.FieldLevel) bool {
		_, _, err := core.ParsePeriodKey(fl.Field().String())
		return err == nil
	})
	return v
}

// decodeAndValidate reads a size-limited JSON body into dst and runs struct
// validation. On failure it writes the response and returns false.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "invalid_json", "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		}
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "request validation failed", validationDetails(err)...)
		return false
	}
	return true
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: failed %s=%s", ns, fe.Tag(), fe.Param()))
		} else {
			out = append(out, fmt.Sprintf("%s: failed %s", ns, fe.Tag()))
		}
	}
	return out
}
