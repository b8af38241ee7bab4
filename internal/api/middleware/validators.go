package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
)

// RegisterValidators 向 gin 的校验引擎注册网格相关的 binding 标签：
//
//	weekday  可解析为网格中的星期（忽略大小写与重音）
//	block    可解析为网格中的时段（忽略空白）
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := planner.ParseDay(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}
	return v.RegisterValidation("block", func(fl validator.FieldLevel) bool {
		_, ok := planner.ParseBlock(fl.Field().String())
		return ok
	})
}
