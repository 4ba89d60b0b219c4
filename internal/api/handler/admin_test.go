package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
)

// MockSweeper はSweeperInterfaceのモック
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) RunOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestAdminHandler_InitializeSeats(t *testing.T) {
	e := NewTestEcho()

	t.Run("列定義から座席を作成する", func(t *testing.T) {
		seats := new(MockSeatService)
		seats.On("InitializeSeats", mock.Anything, application.InitializeSeatsInput{
			SectionID: 3,
			Rows:      []section.RowSpec{{Name: "A", SeatCount: 2}, {Name: "B", SeatCount: 1}},
		}).Return(&seat.SectionMap{SectionID: 3}, nil)

		c, rec := newContext(e, http.MethodPost, "/", `{"rows":[{"row_name":"A","seat_count":2},{"row_name":"B","seat_count":1}]}`, "")
		c.SetParamNames("id")
		c.SetParamValues("3")

		require.NoError(t, NewAdminHandler(seats, nil).InitializeSeats(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		seats.AssertExpectations(t)
	})

	t.Run("初期化済みなら409", func(t *testing.T) {
		seats := new(MockSeatService)
		seats.On("InitializeSeats", mock.Anything, mock.Anything).Return(nil, section.ErrSectionAlreadyInitialized)

		c, _ := newContext(e, http.MethodPost, "/", `{"rows":[{"row_name":"A","seat_count":2}]}`, "")
		c.SetParamNames("id")
		c.SetParamValues("3")

		assertHTTPError(t, NewAdminHandler(seats, nil).InitializeSeats(c), http.StatusConflict)
	})

	t.Run("座席数が0なら400", func(t *testing.T) {
		seats := new(MockSeatService)
		c, _ := newContext(e, http.MethodPost, "/", `{"rows":[{"row_name":"A","seat_count":0}]}`, "")
		c.SetParamNames("id")
		c.SetParamValues("3")

		assertHTTPError(t, NewAdminHandler(seats, nil).InitializeSeats(c), http.StatusBadRequest)
		seats.AssertNotCalled(t, "InitializeSeats", mock.Anything, mock.Anything)
	})
	t.Run("1列あたりの上限を超える座席数は400", func(t *testing.T) {
		seats := new(MockSeatService)
		body := fmt.Sprintf(`{"rows":[{"row_name":"A","seat_count":%d}]}`, section.MaxSeatsPerRow+1)
		c, _ := newContext(e, http.MethodPost, "/", body, "")
		c.SetParamNames("id")
		c.SetParamValues("3")

		assertHTTPError(t, NewAdminHandler(seats, nil).InitializeSeats(c), http.StatusBadRequest)
		seats.AssertNotCalled(t, "InitializeSeats", mock.Anything, mock.Anything)
	})

	t.Run("上限ちょうどの座席数は受け付ける", func(t *testing.T) {
		seats := new(MockSeatService)
		seats.On("InitializeSeats", mock.Anything, application.InitializeSeatsInput{
			SectionID: 3,
			Rows:      []section.RowSpec{{Name: "A", SeatCount: section.MaxSeatsPerRow}},
		}).Return(&seat.SectionMap{SectionID: 3}, nil)
		body := fmt.Sprintf(`{"rows":[{"row_name":"A","seat_count":%d}]}`, section.MaxSeatsPerRow)
		c, rec := newContext(e, http.MethodPost, "/", body, "")
		c.SetParamNames("id")
		c.SetParamValues("3")

		require.NoError(t, NewAdminHandler(seats, nil).InitializeSeats(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestAdminHandler_Sweep(t *testing.T) {
	e := NewTestEcho()

	t.Run("解放した席数を返す", func(t *testing.T) {
		sw := new(MockSweeper)
		sw.On("RunOnce", mock.Anything).Return(4, nil)

		c, rec := newContext(e, http.MethodPost, "/admin/sweeps", "", "")

		require.NoError(t, NewAdminHandler(nil, sw).Sweep(c))
		var got SweepResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 4, got.Released)
	})

	t.Run("失敗は500", func(t *testing.T) {
		sw := new(MockSweeper)
		sw.On("RunOnce", mock.Anything).Return(0, errors.New("db down"))

		c, _ := newContext(e, http.MethodPost, "/admin/sweeps", "", "")

		assertHTTPError(t, NewAdminHandler(nil, sw).Sweep(c), http.StatusInternalServerError)
	})
}
