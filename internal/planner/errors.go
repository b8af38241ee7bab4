package planner

import (
	"errors"
	"fmt"
)

// 约束与持久化错误。错误文案直接展示给用户。
var (
	ErrCapacityExceeded      = errors.New("el bloque ya tiene el máximo de ramos permitido")
	ErrCreditCeilingExceeded = errors.New("se supera el tope de créditos")
	ErrPersistence           = errors.New("no se pudo guardar el cambio")
	ErrCourseNotFound        = errors.New("el ramo no existe en el catálogo")
	ErrEntryNotFound         = errors.New("el ramo no está en tu horario")
	ErrInvalidSlot           = errors.New("día o bloque inválido")
	ErrCatalogNotLoaded      = errors.New("catálogo no cargado")
)

// LimitError 约束拒绝，携带当前生效的上限
type LimitError struct {
	Err    error // ErrCapacityExceeded 或 ErrCreditCeilingExceeded
	Limit  int
	Detail string
}

func (e *LimitError) Error() string { return fmt.Sprintf("%s (%s)", e.Err, e.Detail) }

func (e *LimitError) Unwrap() error { return e.Err }
