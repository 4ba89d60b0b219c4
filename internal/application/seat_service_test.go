package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
)

func TestSeatService_GetSeatMap(t *testing.T) {
	ctx := context.Background()

	t.Run("列順・座席番号順で状態を返す", func(t *testing.T) {
		env := setupTestEnv(t)
		sec := env.store.SeedSection(1, "B区")
		_, err := env.seats.InitializeSeats(ctx, InitializeSeatsInput{
			SectionID: sec.ID,
			Rows:      []section.RowSpec{{Name: "1", SeatCount: 3}, {Name: "2", SeatCount: 2}},
		})
		require.NoError(t, err)
		// B区の座席IDは 11-15
		env.hold(t, "user-A", 12)

		m, err := env.seats.GetSeatMap(ctx, sec.ID)

		require.NoError(t, err)
		require.Len(t, m.Rows, 2)
		assert.Equal(t, "1", m.Rows[0].RowName)
		assert.Equal(t, "2", m.Rows[1].RowName)
		require.Len(t, m.Rows[0].Seats, 3)
		assert.Equal(t, []string{"01", "02", "03"}, []string{
			m.Rows[0].Seats[0].SeatNumber, m.Rows[0].Seats[1].SeatNumber, m.Rows[0].Seats[2].SeatNumber,
		})
		assert.Equal(t, seat.StatusTempHold, m.Rows[0].Seats[1].Status)
		assert.Equal(t, seat.StatusVacant, m.Rows[1].Seats[0].Status)
	})

	t.Run("読み込み中に仮押さえされた座席表はキャッシュしない", func(t *testing.T) {
		env := setupTestEnv(t)
		// DB 読み込みとキャッシュ保存の間に仮押さえが確定する
		env.cache.beforeSet = func() { env.hold(t, "user-A", 1) }

		stale, err := env.seats.GetSeatMap(ctx, env.section.ID)
		require.NoError(t, err)
		assert.Equal(t, seat.StatusVacant, stale.Rows[0].Seats[0].Status)

		m, err := env.seats.GetSeatMap(ctx, env.section.ID)
		require.NoError(t, err)
		assert.Equal(t, seat.StatusTempHold, env.seat(t, 1).Status)
		assert.Equal(t, seat.StatusTempHold, m.Rows[0].Seats[0].Status)
	})

	t.Run("100席を超える列も座席番号の数値順で返す", func(t *testing.T) {
		env := setupTestEnv(t)
		sec := env.store.SeedSection(1, "外野席")
		_, err := env.seats.InitializeSeats(ctx, InitializeSeatsInput{
			SectionID: sec.ID,
			Rows:      []section.RowSpec{{Name: "A", SeatCount: 120}},
		})
		require.NoError(t, err)

		m, err := env.seats.GetSeatMap(ctx, sec.ID)

		require.NoError(t, err)
		require.Len(t, m.Rows[0].Seats, 120)
		got := make([]string, 0, 6)
		for _, s := range m.Rows[0].Seats[8:14] {
			got = append(got, s.SeatNumber)
		}
		assert.Equal(t, []string{"09", "10", "11", "12", "13", "14"}, got)
		assert.Equal(t, "100", m.Rows[0].Seats[99].SeatNumber)
		assert.Equal(t, "120", m.Rows[0].Seats[119].SeatNumber)
	})

	t.Run("存在しないセクションはNotFound", func(t *testing.T) {
		env := setupTestEnv(t)

		_, err := env.seats.GetSeatMap(ctx, 999)

		assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
	})

	t.Run("キャッシュがあればキャッシュを返す", func(t *testing.T) {
		env := setupTestEnv(t)
		cached := &seat.SectionMap{SectionID: env.section.ID}
		version, err := env.cache.Version(ctx, env.section.ID)
		require.NoError(t, err)
		stored, err := env.cache.Set(ctx, cached, version)
		require.NoError(t, err)
		require.True(t, stored)

		m, err := env.seats.GetSeatMap(ctx, env.section.ID)

		require.NoError(t, err)
		assert.Same(t, cached, m)
	})

	t.Run("座席の変更でキャッシュが破棄される", func(t *testing.T) {
		env := setupTestEnv(t)
		before, err := env.seats.GetSeatMap(ctx, env.section.ID)
		require.NoError(t, err)
		assert.Equal(t, seat.StatusVacant, before.Rows[0].Seats[0].Status)

		env.hold(t, "user-A", 1)

		after, err := env.seats.GetSeatMap(ctx, env.section.ID)
		require.NoError(t, err)
		assert.Equal(t, seat.StatusTempHold, after.Rows[0].Seats[0].Status)
	})
}

func TestSeatService_InitializeSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("列と空席を作成する", func(t *testing.T) {
		env := setupTestEnv(t)
		sec := env.store.SeedSection(1, "C区")

		m, err := env.seats.InitializeSeats(ctx, InitializeSeatsInput{
			SectionID: sec.ID,
			Rows:      []section.RowSpec{{Name: "A", SeatCount: 12}},
		})

		require.NoError(t, err)
		require.Len(t, m.Rows, 1)
		require.Len(t, m.Rows[0].Seats, 12)
		assert.Equal(t, "12", m.Rows[0].Seats[11].SeatNumber)
		for _, s := range m.Rows[0].Seats {
			assert.Equal(t, seat.StatusVacant, s.Status)
		}
	})

	t.Run("初期化済みのセクションはConflict", func(t *testing.T) {
		env := setupTestEnv(t)

		_, err := env.seats.InitializeSeats(ctx, InitializeSeatsInput{
			SectionID: env.section.ID,
			Rows:      []section.RowSpec{{Name: "Z", SeatCount: 1}},
		})

		assert.ErrorIs(t, err, section.ErrSectionAlreadyInitialized)
		assert.Equal(t, failure.KindConflict, failure.KindOf(err))
	})

	t.Run("存在しないセクションはNotFound", func(t *testing.T) {
		env := setupTestEnv(t)

		_, err := env.seats.InitializeSeats(ctx, InitializeSeatsInput{
			SectionID: 999,
			Rows:      []section.RowSpec{{Name: "A", SeatCount: 1}},
		})

		assert.ErrorIs(t, err, section.ErrSectionNotFound)
	})

	t.Run("不正な列定義はInvalid", func(t *testing.T) {
		env := setupTestEnv(t)
		sec := env.store.SeedSection(1, "D区")

		_, err := env.seats.InitializeSeats(ctx, InitializeSeatsInput{
			SectionID: sec.ID,
			Rows:      []section.RowSpec{{Name: "A", SeatCount: 0}},
		})

		assert.Equal(t, failure.KindInvalid, failure.KindOf(err))
	})
}
