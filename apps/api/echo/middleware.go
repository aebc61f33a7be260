package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// contextUserMiddleware loads the authenticated user into the context. It runs after the JWT middleware.
func contextUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

// firstLoginMiddleware blocks users who have not chosen their own password yet.
func firstLoginMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := contextUser(ctx)
			if err != nil {
				return err
			}
			if usr.FirstLogin {
				return errFirstLoginRequired
			}
			return next(ctx)
		}
	}
}

// allowMiddleware lets through the users for which allowed returns true.
func allowMiddleware(allowed func(usr user.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := contextUser(ctx)
			if err != nil {
				return err
			}
			if !allowed(usr) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return allowMiddleware(user.User.IsAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return allowMiddleware(user.User.IsStaff)
}

func parentMiddleware() echo.MiddlewareFunc {
	return allowMiddleware(user.User.IsParent)
}

func systemAdminMiddleware() echo.MiddlewareFunc {
	return allowMiddleware(func(usr user.User) bool { return usr.Role == user.RoleSystemAdmin })
}

// instituteMemberMiddleware requires the user to belong to the institute of the `iid` path parameter.
func instituteMemberMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := contextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.BelongsTo(ctx.Param("iid")) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// studentViewerMiddleware requires the user to be the student of the `id` path parameter, one of their parents
// or staff of an institute the student is enrolled in.
func studentViewerMiddleware(enrollments user.EnrollmentFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := contextUser(ctx)
			if err != nil {
				return err
			}
			allowed, err := usr.CanViewStudent(ctx.Request().Context(), ctx.Param("id"), enrollments)
			if err != nil {
				return errors.Wrap(err, "checking student access")
			}
			if !allowed {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// ctxUserOrAdminMiddleware sets the user of the `id` path parameter as "object"
// when it is the context user, or when the context user is an admin.
func ctxUserOrAdminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := contextUser(ctx)
			if err != nil {
				return err
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if errors.Cause(err) != core.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

// chain returns a copy of mws followed by extra.
func chain(mws []echo.MiddlewareFunc, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws)+len(extra))
	out = append(out, mws...)
	return append(out, extra...)
}
