package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func heldSeat(userID string, expiresAt time.Time) *Seat {
	s := NewSeat(1, 1, "01")
	s.ID = 1
	s.Status = StatusTempHold
	s.HolderID = &userID
	s.HoldExpiresAt = &expiresAt
	return s
}

func reservedSeat(userID string) *Seat {
	s := NewSeat(1, 1, "01")
	s.ID = 1
	s.Status = StatusReserved
	s.HolderID = &userID
	return s
}

func TestNewSeat(t *testing.T) {
	s := NewSeat(10, 3, "07")

	assert.Equal(t, int64(10), s.RowID)
	assert.Equal(t, int64(3), s.SectionID)
	assert.Equal(t, "07", s.SeatNumber)
	assert.Equal(t, StatusVacant, s.Status)
	assert.Nil(t, s.HolderID)
	assert.Nil(t, s.HoldExpiresAt)
	require.NoError(t, s.Validate())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		expected bool
	}{
		{StatusVacant, StatusTempHold, true},
		{StatusVacant, StatusReserved, false},
		{StatusVacant, StatusSold, false},
		{StatusTempHold, StatusReserved, true},
		{StatusTempHold, StatusVacant, true},
		{StatusTempHold, StatusSold, false},
		{StatusReserved, StatusSold, true},
		{StatusReserved, StatusVacant, false},
		{StatusReserved, StatusTempHold, false},
		{StatusSold, StatusVacant, false},
		{StatusSold, StatusTempHold, false},
		{Status("UNKNOWN"), StatusVacant, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"→"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSeat_Hold(t *testing.T) {
	t.Run("空席を仮押さえできる", func(t *testing.T) {
		s := NewSeat(1, 1, "01")
		expiresAt := testNow.Add(10 * time.Minute)

		err := s.Hold("user-A", testNow, expiresAt)

		require.NoError(t, err)
		assert.Equal(t, StatusTempHold, s.Status)
		assert.True(t, s.IsHeldBy("user-A"))
		require.NotNil(t, s.HoldExpiresAt)
		assert.Equal(t, expiresAt, *s.HoldExpiresAt)
		require.NoError(t, s.Validate())
	})

	t.Run("仮押さえ中の座席は仮押さえできない", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(time.Minute))

		err := s.Hold("user-B", testNow, testNow.Add(10*time.Minute))

		assert.ErrorIs(t, err, ErrSeatNotVacant)
		assert.True(t, failure.Is(err, failure.KindConflict))
		assert.True(t, s.IsHeldBy("user-A"))
	})

	t.Run("販売済みの座席は仮押さえできない", func(t *testing.T) {
		s := NewSeat(1, 1, "01")
		s.Status = StatusSold

		err := s.Hold("user-B", testNow, testNow.Add(10*time.Minute))

		assert.ErrorIs(t, err, ErrSeatNotVacant)
	})

	t.Run("期限が現在時刻以前なら拒否する", func(t *testing.T) {
		s := NewSeat(1, 1, "01")

		err := s.Hold("user-A", testNow, testNow)

		assert.ErrorIs(t, err, ErrInvalidHoldTTL)
		assert.Equal(t, StatusVacant, s.Status)
	})
}

func TestSeat_Release(t *testing.T) {
	t.Run("自分の仮押さえを解放できる", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(time.Minute))

		released := s.Release("user-A", testNow)

		assert.True(t, released)
		assert.Equal(t, StatusVacant, s.Status)
		assert.Nil(t, s.HolderID)
		assert.Nil(t, s.HoldExpiresAt)
	})

	t.Run("他人の仮押さえは解放しない", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(time.Minute))

		assert.False(t, s.Release("user-B", testNow))
		assert.Equal(t, StatusTempHold, s.Status)
	})

	t.Run("予約確定済みの座席は解放しない", func(t *testing.T) {
		s := reservedSeat("user-A")

		assert.False(t, s.Release("user-A", testNow))
		assert.Equal(t, StatusReserved, s.Status)
	})

	t.Run("空席の解放は何もしない", func(t *testing.T) {
		s := NewSeat(1, 1, "01")

		assert.False(t, s.Release("user-A", testNow))
		assert.Equal(t, StatusVacant, s.Status)
	})
}

func TestSeat_Confirm(t *testing.T) {
	tests := []struct {
		name        string
		seat        *Seat
		userID      string
		expectedErr error
	}{
		{"有効な仮押さえは確定できる", heldSeat("user-A", testNow.Add(time.Minute)), "user-A", nil},
		{"空席は確定できない", NewSeat(1, 1, "01"), "user-A", ErrSeatNotHeld},
		{"他人の仮押さえは確定できない", heldSeat("user-B", testNow.Add(time.Minute)), "user-A", ErrSeatNotOwned},
		{"期限切れは確定できない", heldSeat("user-A", testNow.Add(-time.Second)), "user-A", ErrHoldExpired},
		{"期限ちょうどは期限切れ", heldSeat("user-A", testNow), "user-A", ErrHoldExpired},
		{"予約確定済みは再確定できない", reservedSeat("user-A"), "user-A", ErrSeatNotHeld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seat.Confirm(tt.userID, testNow)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusReserved, tt.seat.Status)
			assert.True(t, tt.seat.IsHeldBy(tt.userID))
			assert.Nil(t, tt.seat.HoldExpiresAt)
			require.NoError(t, tt.seat.Validate())
		})
	}

	t.Run("期限切れはExpiredに分類される", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(-time.Minute))
		err := s.Confirm("user-A", testNow)
		assert.Equal(t, failure.KindExpired, failure.KindOf(err))
	})
}

func TestSeat_Sell(t *testing.T) {
	t.Run("予約確定済みの座席を販売できる", func(t *testing.T) {
		s := reservedSeat("user-A")

		err := s.Sell("user-A", testNow)

		require.NoError(t, err)
		assert.Equal(t, StatusSold, s.Status)
		assert.Nil(t, s.HolderID)
		require.NoError(t, s.Validate())
	})

	t.Run("仮押さえ中の座席は販売できない", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(time.Minute))

		assert.ErrorIs(t, s.Sell("user-A", testNow), ErrSeatNotReserved)
	})

	t.Run("他人の予約は販売できない", func(t *testing.T) {
		s := reservedSeat("user-B")

		assert.ErrorIs(t, s.Sell("user-A", testNow), ErrSeatNotOwned)
		assert.Equal(t, StatusReserved, s.Status)
	})
}

func TestSeat_Expire(t *testing.T) {
	t.Run("期限切れの仮押さえを解放する", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(-time.Second))

		assert.True(t, s.Expire(testNow))
		assert.Equal(t, StatusVacant, s.Status)
		require.NoError(t, s.Validate())
	})

	t.Run("期限内の仮押さえは解放しない", func(t *testing.T) {
		s := heldSeat("user-A", testNow.Add(time.Second))

		assert.False(t, s.Expire(testNow))
		assert.Equal(t, StatusTempHold, s.Status)
	})

	t.Run("予約確定済みは解放しない", func(t *testing.T) {
		s := reservedSeat("user-A")

		assert.False(t, s.Expire(testNow))
	})
}

func TestSeat_Validate(t *testing.T) {
	user := "user-A"
	expiry := testNow

	tests := []struct {
		name        string
		seat        *Seat
		expectedErr error
	}{
		{"空席", &Seat{SeatNumber: "01", Status: StatusVacant}, nil},
		{"座席番号が空", &Seat{Status: StatusVacant}, ErrSeatNumberRequired},
		{"保持者のある空席", &Seat{SeatNumber: "01", Status: StatusVacant, HolderID: &user}, ErrInconsistentState},
		{"期限のない仮押さえ", &Seat{SeatNumber: "01", Status: StatusTempHold, HolderID: &user}, ErrInconsistentState},
		{"期限の残った予約確定", &Seat{SeatNumber: "01", Status: StatusReserved, HolderID: &user, HoldExpiresAt: &expiry}, ErrInconsistentState},
		{"保持者のない予約確定", &Seat{SeatNumber: "01", Status: StatusReserved}, ErrInconsistentState},
		{"未定義の状態", &Seat{SeatNumber: "01", Status: Status("BROKEN")}, ErrInconsistentState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seat.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSortIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3, 9}, SortIDs([]int64{9, 3, 1, 3, 2, 9}))
	assert.Empty(t, SortIDs(nil))
}

func TestSeat_Clone(t *testing.T) {
	s := heldSeat("user-A", testNow)
	c := s.Clone()

	*c.HolderID = "user-B"
	assert.True(t, s.IsHeldBy("user-A"))
}

func TestWithSeat(t *testing.T) {
	err := WithSeat(42, ErrSeatNotVacant)

	assert.ErrorIs(t, err, ErrSeatNotVacant)
	id, ok := SeatIDOf(err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Contains(t, err.Error(), "42")
	assert.Nil(t, WithSeat(1, nil))
}
