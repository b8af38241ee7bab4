package planner

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Day 星期（网格的列）
type Day string

const (
	Lunes     Day = "Lunes"
	Martes    Day = "Martes"
	Miercoles Day = "Miércoles"
	Jueves    Day = "Jueves"
	Viernes   Day = "Viernes"
	Sabado    Day = "Sábado"
)

// Days 网格的六列，按顺序
var Days = []Day{Lunes, Martes, Miercoles, Jueves, Viernes, Sabado}

// Block 时段（网格的行），格式 "HH:MM-HH:MM"
type Block string

// Blocks 网格的九行，按时间先后
var Blocks = []Block{
	"08:30-09:30",
	"09:35-10:35",
	"10:55-11:50",
	"11:55-12:55",
	"13:10-14:10",
	"14:30-15:30",
	"15:35-16:35",
	"16:55-17:50",
	"17:55-18:55",
}

// Slot 网格坐标
type Slot struct {
	Day   Day
	Block Block
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Day, s.Block)
}

// Index 星期在网格中的列号，未知返回 -1
func (d Day) Index() int {
	for i, v := range Days {
		if v == d {
			return i
		}
	}
	return -1
}

// Index 时段在网格中的行号，未知返回 -1
func (b Block) Index() int {
	for i, v := range Blocks {
		if v == b {
			return i
		}
	}
	return -1
}

// Start 时段开始时间 "HH:MM"
func (b Block) Start() string {
	start, _, _ := strings.Cut(string(b), "-")
	return start
}

// End 时段结束时间 "HH:MM"
func (b Block) End() string {
	_, end, _ := strings.Cut(string(b), "-")
	return end
}

// ParseDay 忽略大小写与重音解析星期："miercoles"、"MIÉRCOLES" 都得到 Miercoles
func ParseDay(s string) (Day, bool) {
	f := Fold(s)
	for _, d := range Days {
		if Fold(string(d)) == f {
			return d, true
		}
	}
	return "", false
}

// ParseBlock 忽略空白解析时段："08:30 - 09:30" 与 "08:30-09:30" 等价
func ParseBlock(s string) (Block, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	for _, b := range Blocks {
		if string(b) == compact {
			return b, true
		}
	}
	return "", false
}

// ParseSlot 解析网格坐标
func ParseSlot(day, block string) (Slot, error) {
	d, ok := ParseDay(day)
	if !ok {
		return Slot{}, fmt.Errorf("%w: día %q", ErrInvalidSlot, day)
	}
	b, ok := ParseBlock(block)
	if !ok {
		return Slot{}, fmt.Errorf("%w: bloque %q", ErrInvalidSlot, block)
	}
	return Slot{Day: d, Block: b}, nil
}

// Fold 规范化用于比较的文本：去首尾空白、去重音、转小写
func Fold(s string) string {
	// transform.Chain 带内部缓冲，不能跨 goroutine 复用
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
