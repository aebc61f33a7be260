package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/idcard"
	"github.com/trezcool/darasa/core/user"
)

type idcardApi struct {
	svc idcard.Service
}

func registerIDCardAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc idcard.Service) {
	api := idcardApi{svc: svc}
	orderers := chain(authed, allowMiddleware(func(usr user.User) bool { return usr.IsParent() || usr.IsAdmin() }))

	og := g.Group("/idcards/orders")
	og.POST("", api.create, orderers...)
	og.GET("", api.query, orderers...)
	og.GET("/:id", api.retrieve, orderers...)
	og.PATCH("/:id", api.updateStatus, orderers...)
	og.GET("/:id/qr", api.qrCode, orderers...)
}

func (api *idcardApi) create(ctx echo.Context) error {
	var data idcard.NewOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}

	o, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating order")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *idcardApi) query(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	orders, err := api.svc.Query(ctx.Request().Context(), usr, idcard.Status(ctx.QueryParam("status")))
	if err != nil {
		return errors.Wrap(err, "querying orders")
	}
	return ctx.JSON(http.StatusOK, orders)
}

func (api *idcardApi) retrieve(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	o, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding order")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *idcardApi) updateStatus(ctx echo.Context) error {
	var data idcard.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}

	o, err := api.svc.UpdateStatus(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating order status")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *idcardApi) qrCode(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	png, err := api.svc.QRCode(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "generating QR code")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}
