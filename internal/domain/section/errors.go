package section

import (
	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

// Section ドメインのエラー定義
var (
	ErrSectionNotFound           = seat.ErrSectionNotFound
	ErrSectionAlreadyInitialized = failure.New(failure.KindConflict, "セクションの座席は既に初期化されています")
	ErrRowsRequired              = failure.New(failure.KindInvalid, "列の指定は必須です")
	ErrRowNameRequired           = failure.New(failure.KindInvalid, "列名は必須です")
	ErrDuplicateRowName          = failure.New(failure.KindInvalid, "列名が重複しています")
	ErrInvalidSeatCount          = failure.New(failure.KindInvalid, "座席数は1以上200以下である必要があります")
)
