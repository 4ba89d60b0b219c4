package section

import (
	"fmt"
	"strings"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

// MaxSeatsPerRow は1列あたりの座席数の上限
const MaxSeatsPerRow = 200

// Section はセクション（座席区画）を表す
type Section struct {
	ID        int64
	EventID   int64
	Name      string
	CreatedAt time.Time
}

// Row は座席の列を表す
type Row struct {
	ID        int64
	SectionID int64
	Name      string
	Order     int
}

// RowSpec は座席表初期化時の列の指定
type RowSpec struct {
	Name      string
	SeatCount int
}

// Layout は初期化する列と座席の組
type Layout struct {
	Row   *Row
	Seats []*seat.Seat
}

// ValidateRowSpecs は列指定の検証を行う
func ValidateRowSpecs(specs []RowSpec) error {
	if len(specs) == 0 {
		return ErrRowsRequired
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return ErrRowNameRequired
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRowName, name)
		}
		seen[name] = struct{}{}
		if spec.SeatCount <= 0 || spec.SeatCount > MaxSeatsPerRow {
			return ErrInvalidSeatCount
		}
	}
	return nil
}

// BuildLayout は列指定から列と空席を組み立てる
// 列は指定順に 1 から順序付けし、座席番号は "01", "02", ... とする
// 表示順は座席番号の文字列ではなく SeatIndex で決まる
func BuildLayout(sectionID int64, specs []RowSpec) ([]Layout, error) {
	if err := ValidateRowSpecs(specs); err != nil {
		return nil, err
	}
	layouts := make([]Layout, 0, len(specs))
	for i, spec := range specs {
		row := &Row{
			SectionID: sectionID,
			Name:      strings.TrimSpace(spec.Name),
			Order:     i + 1,
		}
		seats := make([]*seat.Seat, 0, spec.SeatCount)
		for n := 1; n <= spec.SeatCount; n++ {
			st := seat.NewSeat(0, sectionID, SeatNumber(n))
			st.SeatIndex = n
			seats = append(seats, st)
		}
		layouts = append(layouts, Layout{Row: row, Seats: seats})
	}
	return layouts, nil
}

// SeatNumber は n 番目の座席番号を返す
func SeatNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}
