package planner

import "github.com/cespare/xxhash/v2"

// Palette 课程卡片配色
var Palette = []string{
	"#e3f2fd", // azul
	"#e8f5e9", // verde
	"#fff3e0", // naranjo
	"#f3e5f5", // morado
	"#fce4ec", // rosado
	"#e0f7fa", // cian
	"#fffde7", // amarillo
	"#efebe9", // café
	"#e8eaf6", // índigo
	"#f1f8e9", // lima
}

// ColorFor 由课程名称确定颜色，同名恒同色
func ColorFor(name string) string {
	return Palette[xxhash.Sum64String(name)%uint64(len(Palette))]
}
