package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"go.uber.org/zap"
)

type envelope map[string]any

func (api *estimationAPI) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func (api *estimationAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	env := envelope{"success": false, "error": errorBody{Code: code, Message: message}}
	if err := api.writeJSON(w, status, env, nil); err != nil {
		api.log.Error("failed to write error response", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// readJSON decodes the request body into dst and describes decode failures in client terms.
func (api *estimationAPI) readJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Errorf("field %s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("request body contains malformed json at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.EOF):
		return errors.New("request body must not be empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("request body contains malformed json")
	default:
		return errors.New("request body must be a json object")
	}
}

func (api *estimationAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, "bad_request", err.Error())
}

func (api *estimationAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("server error", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	api.errorResponse(w, r, http.StatusInternalServerError, "internal_error", util.MessageInternalServerError)
}

// getStatusCode writes the error response matching the code of a util.Error.
func (api *estimationAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	var ierr *util.Error
	if !errors.As(err, &ierr) {
		api.ServerErrorResponse(w, r, err)
		return
	}

	switch ierr.Code() {
	case util.ErrBadParamInput:
		api.errorResponse(w, r, http.StatusBadRequest, "bad_request", ierr.Error())
	case util.ErrNotFound:
		api.errorResponse(w, r, http.StatusNotFound, "not_found", ierr.Error())
	case util.ErrConflict:
		api.errorResponse(w, r, http.StatusConflict, "conflict", ierr.Error())
	case util.ErrModelUnavailable:
		api.errorResponse(w, r, http.StatusServiceUnavailable, "model_unavailable", ierr.Error())
	default:
		api.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		api.errorResponse(w, r, http.StatusInternalServerError, "internal_error", ierr.Message())
	}
}

func (api *estimationAPI) validate(request any) error {
	if err := api.validator.Struct(request); err != nil {
		vv := translateError(err, api.trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		return fmt.Errorf("validation error: %v", vvString)
	}
	return nil
}

func translateError(err error, trans ut.Translator) []error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []error{err}
	}
	errs := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}
