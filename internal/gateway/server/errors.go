package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/afyachain/medledger/ledgererr"
)

type errorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

// chainError maps a chaincode failure onto an HTTP response. The
// taxonomy code survives the peer round trip inside the message string,
// so CodeOf recovers it even from wrapped endorsement errors. A failure
// with no recognizable code is peer or network trouble, not a rejected
// request.
func chainError(c echo.Context, err error) error {
	code := ledgererr.CodeOf(err)

	status := http.StatusBadGateway
	switch ledgererr.KindOf(code) {
	case ledgererr.KindAuthorization:
		status = http.StatusForbidden
	case ledgererr.KindValidation:
		status = http.StatusBadRequest
	case ledgererr.KindConflict:
		status = http.StatusConflict
	case ledgererr.KindNotFound:
		status = http.StatusNotFound
	}

	rid, _ := c.Get("request_id").(string)
	return c.JSON(status, errorEnvelope{
		Error:     errorDetail{Code: string(code), Message: err.Error()},
		RequestID: rid,
	})
}

func badRequest(c echo.Context, message string) error {
	rid, _ := c.Get("request_id").(string)
	return c.JSON(http.StatusBadRequest, errorEnvelope{
		Error:     errorDetail{Message: message},
		RequestID: rid,
	})
}
