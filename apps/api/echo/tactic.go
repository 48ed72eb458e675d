package echoapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/services/render"
)

const tacticsPath = "/tactics"

type tacticApi struct {
	svc      *tactic.Service
	exporter *rendersvc.PDFExporter
}

func registerTacticAPI(g *echo.Group, auth *Auth, svc *tactic.Service, exporter *rendersvc.PDFExporter) {
	api := tacticApi{svc: svc, exporter: exporter}

	tg := g.Group(tacticsPath, auth.Middleware())
	tg.GET("", api.load)
	tg.POST("", api.save)

	dg := tg.Group("/:id")
	dg.PUT("", api.update)
	dg.POST("/clone", api.clone)
	dg.GET("/preview.png", api.preview)
	dg.GET("/export.pdf", api.export)
}

// detached keeps the request values but outlives the client: once issued, a save is carried through.
func detached(ctx echo.Context) context.Context {
	return context.WithoutCancel(ctx.Request().Context())
}

// tacticLocation is where a tactic is loaded from.
func tacticLocation(prefix, id string) string {
	return fmt.Sprintf("%s%s?id=%s", prefix, tacticsPath, id)
}

// Handlers

func (api *tacticApi) load(ctx echo.Context) error {
	viewer, err := viewerID(ctx)
	if err != nil {
		return err
	}
	view, err := api.svc.Load(ctx.Request().Context(), viewer, ctx.QueryParam("id"))
	if err != nil {
		return errors.Wrap(err, "loading tactic")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *tacticApi) save(ctx echo.Context) error {
	var data tactic.SaveTactic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveTactic")
	}
	return api.doSave(ctx, data)
}

func (api *tacticApi) update(ctx echo.Context) error {
	var data tactic.SaveTactic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveTactic")
	}
	data.ID = ctx.Param("id")
	return api.doSave(ctx, data)
}

func (api *tacticApi) doSave(ctx echo.Context, data tactic.SaveTactic) error {
	viewer, err := viewerID(ctx)
	if err != nil {
		return err
	}
	created := data.ID == ""

	t, err := api.svc.Save(detached(ctx), viewer, data)
	if err != nil {
		return errors.Wrap(err, "saving tactic")
	}

	if created {
		ctx.Response().Header().Set(echo.HeaderLocation, tacticLocation(apiPrefix, t.ID))
		return ctx.JSON(http.StatusCreated, t)
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tacticApi) clone(ctx echo.Context) error {
	viewer, err := viewerID(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.Clone(detached(ctx), viewer, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cloning tactic")
	}
	ctx.Response().Header().Set(echo.HeaderLocation, tacticLocation(apiPrefix, t.ID))
	return ctx.JSON(http.StatusCreated, t)
}

func (api *tacticApi) preview(ctx echo.Context) error {
	viewer, err := viewerID(ctx)
	if err != nil {
		return err
	}
	t, img, err := api.svc.Render(ctx.Request().Context(), viewer, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rendering tactic")
	}
	setAttachment(ctx, t.ID+".png")
	return ctx.Blob(http.StatusOK, "image/png", img)
}

func (api *tacticApi) export(ctx echo.Context) error {
	viewer, err := viewerID(ctx)
	if err != nil {
		return err
	}
	t, img, err := api.svc.Render(ctx.Request().Context(), viewer, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rendering tactic")
	}

	var buf bytes.Buffer
	if err = api.exporter.Export(&buf, t, img); err != nil {
		return errors.Wrap(err, "exporting tactic")
	}
	setAttachment(ctx, t.ID+".pdf")
	return ctx.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func setAttachment(ctx echo.Context, filename string) {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}
