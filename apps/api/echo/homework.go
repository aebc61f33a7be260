package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/homework"
)

type homeworkApi struct {
	svc homework.Service
}

func registerHomeworkAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc homework.Service) {
	api := homeworkApi{svc: svc}

	g.GET("/homeworks/:hid/references", api.references, authed...)
	g.POST("/homeworks/:hid/references", api.addReference, chain(authed, staffMiddleware())...)
}

func (api *homeworkApi) references(ctx echo.Context) error {
	refs, err := api.svc.References(ctx.Request().Context(), ctx.Param("hid"))
	if err != nil {
		return errors.Wrap(err, "querying references")
	}
	return ctx.JSON(http.StatusOK, refs)
}

func (api *homeworkApi) addReference(ctx echo.Context) error {
	var data homework.NewReference
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReference")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}

	ref, err := api.svc.AddReference(ctx.Request().Context(), usr, ctx.Param("hid"), data)
	if err != nil {
		return errors.Wrap(err, "adding reference")
	}
	return ctx.JSON(http.StatusCreated, ref)
}
