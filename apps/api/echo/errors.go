package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/idcard"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/upstream"
)

var (
	errUnauthorized          = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed  = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated    = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired        = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errFirstLoginRequired    = echo.NewHTTPError(http.StatusForbidden, "first login setup required")
	errHttpForbidden         = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound          = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSelectInstitute       = echo.NewHTTPError(http.StatusBadRequest, "select an institute")
	errSelectClass           = echo.NewHTTPError(http.StatusBadRequest, "select a class")
	errUpstreamUnavailable   = echo.NewHTTPError(http.StatusBadGateway, "attendance source unavailable")
	errAttendanceSourceRO    = echo.NewHTTPError(http.StatusMethodNotAllowed, "attendance source is read-only")
	errInvalidTransitionHttp = echo.NewHTTPError(http.StatusBadRequest, idcard.ErrInvalidTransition.Error())
)

// domainHTTPError maps the sentinel errors of the core packages to HTTP errors.
func domainHTTPError(err error) (*echo.HTTPError, bool) {
	switch cause := errors.Cause(err); cause {
	case core.ErrNotFound:
		return errHttpNotFound, true
	case core.ErrForbidden:
		return echo.NewHTTPError(http.StatusForbidden, cause.Error()), true
	case idcard.ErrInvalidTransition:
		return errInvalidTransitionHttp, true
	case attendance.ErrReadOnly:
		return errAttendanceSourceRO, true
	}
	if _, ok := errors.Cause(err).(*upstream.StatusError); ok {
		return errUpstreamUnavailable, true
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if herr, ok := domainHTTPError(err); ok {
			err = herr
		}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
				usr.Role = claims.Role
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
