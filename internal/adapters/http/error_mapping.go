package httpadapter

import (
	"net/http"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPoolUnhealthy):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrAllVariantsFailed):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
