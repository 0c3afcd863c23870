package modernblog

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Media.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, images)
}

// handleImageUpload stores the "image" form file, resized to at most
// 800 pixels wide and re-encoded as JPEG.
func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No image file provided")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	u, _ := CurrentUser(c)
	img, err := a.Media.Upload(c.Request().Context(), src, file.Size, file.Filename, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, img)
}

func (a *App) handleImageDelete(c echo.Context) error {
	if err := a.Media.Delete(c.Request().Context(), c.Param("filename")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
