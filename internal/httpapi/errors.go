package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

func badInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).WithCode(goerrors.CodeBadRequest)
}

func routeNotFound(path string) error {
	return goerrors.New("no route for "+path, goerrors.CategoryRouting).WithCode(goerrors.CodeNotFound)
}

func methodNotAllowed(method string) error {
	return goerrors.New("method "+method+" not allowed", goerrors.CategoryMethodNotAllowed).
		WithCode(http.StatusMethodNotAllowed)
}

// requestValidation converts validator field errors into a go-errors validation error.
func requestValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return badInput(err.Error())
	}

	fields := make([]goerrors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, goerrors.FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fieldMessage(fe),
			Value:   fe.Value(),
		})
	}
	return goerrors.NewValidation("invalid request", fields...).WithCode(goerrors.CodeBadRequest)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func statusFor(err *goerrors.Error) int {
	if err.Code >= 400 && err.Code < 600 {
		return err.Code
	}
	switch err.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound, goerrors.CategoryRouting:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	status := statusFor(mapped)

	resp := mapped.Clone().WithRequestID(requestIDFrom(r.Context()))
	resp.Location = nil
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", resp.RequestID),
			zap.Error(err),
		)
		resp.Message = "internal error"
		resp.Source = nil
	}

	writeJSON(w, status, resp.ToErrorResponse(false, nil))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
