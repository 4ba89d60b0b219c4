package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
)

// SeatHandler は座席表と座席操作のハンドラー
type SeatHandler struct {
	seats        SeatServiceInterface
	reservations ReservationServiceInterface
}

func NewSeatHandler(seats SeatServiceInterface, reservations ReservationServiceInterface) *SeatHandler {
	return &SeatHandler{seats: seats, reservations: reservations}
}

type HoldSeatsRequest struct {
	SeatIDs    []int64 `json:"seat_ids" validate:"required,min=1,dive,gt=0" example:"1,2"`
	TTLMinutes int     `json:"ttl_minutes" validate:"omitempty,min=1" example:"10"`
}

type HoldSeatsResponse struct {
	Detail    string    `json:"detail" example:"座席を仮押さえしました"`
	SeatIDs   []int64   `json:"seat_ids"`
	HoldUntil time.Time `json:"hold_until"`
}

type SeatIDsRequest struct {
	SeatIDs []int64 `json:"seat_ids" validate:"required,min=1,dive,gt=0" example:"1,2"`
}

type ReleaseSeatsResponse struct {
	Detail   string `json:"detail" example:"仮押さえを解除しました"`
	Released int    `json:"released" example:"2"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

// GetSeatMap godoc
// @Summary 座席表を取得
// @Description セクションの座席表を列順・座席番号順で返します
// @Tags seats
// @Produce json
// @Param id path int true "セクションID"
// @Success 200 {object} seat.SectionMap
// @Failure 404 {object} api.ErrorResponse
// @Router /sections/{id}/seats [get]
func (h *SeatHandler) GetSeatMap(c echo.Context) error {
	sectionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.seats.GetSeatMap(c.Request().Context(), sectionID)
	if err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, m)
}

// Hold godoc
// @Summary 座席を仮押さえ
// @Description 指定した座席をまとめて仮押さえします。1席でも空席でなければ何も変更しません
// @Tags seats
// @Accept json
// @Produce json
// @Param request body HoldSeatsRequest true "座席ID"
// @Success 200 {object} HoldSeatsResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "座席が空席ではない"
// @Router /seats/hold [post]
func (h *SeatHandler) Hold(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req HoldSeatsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.reservations.Hold(c.Request().Context(), application.HoldInput{
		SeatIDs: req.SeatIDs,
		UserID:  userID,
		TTL:     time.Duration(req.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, HoldSeatsResponse{
		Detail:    "座席を仮押さえしました",
		SeatIDs:   res.SeatIDs,
		HoldUntil: res.HoldUntil,
	})
}

// Release godoc
// @Summary 仮押さえを解除
// @Description 自分が仮押さえしている座席を空席に戻します。それ以外の座席は無視します
// @Tags seats
// @Accept json
// @Produce json
// @Param request body SeatIDsRequest true "座席ID"
// @Success 200 {object} ReleaseSeatsResponse
// @Router /seats/release [post]
func (h *SeatHandler) Release(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req SeatIDsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := h.reservations.Release(c.Request().Context(), req.SeatIDs, userID)
	if err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, ReleaseSeatsResponse{Detail: "仮押さえを解除しました", Released: n})
}

// Confirm godoc
// @Summary 予約を確定
// @Description 仮押さえ中の座席を予約確定します
// @Tags seats
// @Accept json
// @Produce json
// @Param request body SeatIDsRequest true "座席ID"
// @Success 200 {object} DetailResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 410 {object} api.ErrorResponse "仮押さえ期限切れ"
// @Router /seats/confirm [post]
func (h *SeatHandler) Confirm(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req SeatIDsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.reservations.Confirm(c.Request().Context(), req.SeatIDs, userID); err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, DetailResponse{Detail: "予約を確定しました"})
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "無効なID: "+c.Param(name))
	}
	return id, nil
}

func requireUserID(c echo.Context) (string, error) {
	userID := middleware.UserID(c)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return userID, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	return c.Validate(req)
}
