package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
)

// AdminHandler は運用者向けのハンドラー
type AdminHandler struct {
	seats   SeatServiceInterface
	sweeper SweeperInterface
}

func NewAdminHandler(seats SeatServiceInterface, sweeper SweeperInterface) *AdminHandler {
	return &AdminHandler{seats: seats, sweeper: sweeper}
}

type RowRequest struct {
	RowName   string `json:"row_name" validate:"required,max=10" example:"A"`
	SeatCount int    `json:"seat_count" validate:"required,min=1,max=200" example:"20"`
}

type InitializeSeatsRequest struct {
	Rows []RowRequest `json:"rows" validate:"required,min=1,dive"`
}

type SweepResponse struct {
	Released int `json:"released"`
}

// InitializeSeats godoc
// @Summary セクションの座席を作成
// @Description 列ごとに座席番号 01, 02, ... の空席を作成します
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "セクションID"
// @Param request body InitializeSeatsRequest true "列定義"
// @Success 201 {object} seat.SectionMap
// @Failure 409 {object} api.ErrorResponse "初期化済み"
// @Router /admin/sections/{id}/seats [post]
func (h *AdminHandler) InitializeSeats(c echo.Context) error {
	sectionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req InitializeSeatsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rows := make([]section.RowSpec, len(req.Rows))
	for i, r := range req.Rows {
		rows[i] = section.RowSpec{Name: r.RowName, SeatCount: r.SeatCount}
	}
	m, err := h.seats.InitializeSeats(c.Request().Context(), application.InitializeSeatsInput{
		SectionID: sectionID,
		Rows:      rows,
	})
	if err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Sweep godoc
// @Summary 期限切れの仮押さえを解放
// @Tags admin
// @Produce json
// @Success 200 {object} SweepResponse
// @Router /admin/sweeps [post]
func (h *AdminHandler) Sweep(c echo.Context) error {
	n, err := h.sweeper.RunOnce(c.Request().Context())
	if err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, SweepResponse{Released: n})
}
