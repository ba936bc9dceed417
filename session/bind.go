package session

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// Binding 注入脚本的一个变量
type Binding struct {
	Name  string
	Value any
}

// Params 有序的变量列表，按顺序生成赋值语句
type Params []Binding

// Param 创建变量绑定
func Param(name string, value any) Binding {
	return Binding{Name: name, Value: value}
}

// With 追加变量并返回新列表
func (p Params) With(name string, value any) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	return append(out, Binding{Name: name, Value: value})
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true, "def": true,
	"del": true, "elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true, "is": true,
	"lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// Bind 将变量列表转换为求解器脚本语言的赋值语句
//
//	nil -> None，bool -> True/False，浮点 -> 可精确还原的最短十进制，切片 -> [a, b]，
//	map[string]T -> {"k": v}（按键排序），字符串 -> 带引号的字面量
func Bind(params Params) (string, error) {
	var sb strings.Builder
	for i, b := range params {
		if !identPattern.MatchString(b.Name) || reserved[b.Name] {
			return "", errs.New(errs.InvalidInput, "parameter %d has an invalid name %q", i, b.Name)
		}
		lit, err := Literal(b.Value)
		if err != nil {
			return "", errs.Wrap(errs.InvalidInput, err, "parameter %q", b.Name)
		}
		sb.WriteString(b.Name)
		sb.WriteString(" = ")
		sb.WriteString(lit)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Literal 单个值的字面量
func Literal(v any) (string, error) {
	if v == nil {
		return "None", nil
	}
	switch val := v.(type) {
	case string:
		return strconv.Quote(val), nil
	case bool:
		if val {
			return "True", nil
		}
		return "False", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return floatLiteral(float64(val), decimal.NewFromFloat32(val)), nil
	case float64:
		return floatLiteral(val, decimal.Decimal{}), nil
	case decimal.Decimal:
		return val.String(), nil
	case complex128:
		return fmt.Sprintf("complex(%s, %s)", floatLiteral(real(val), decimal.Decimal{}), floatLiteral(imag(val), decimal.Decimal{})), nil
	case fmt.Stringer:
		return strconv.Quote(val.String()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]", nil
		}
		items := make([]string, rv.Len())
		for i := range items {
			lit, err := Literal(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			items[i] = lit
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", fmt.Errorf("map keys must be strings, got %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			lit, err := Literal(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return "", err
			}
			items[i] = strconv.Quote(k) + ": " + lit
		}
		return "{" + strings.Join(items, ", ") + "}", nil
	case reflect.Float64, reflect.Float32:
		return floatLiteral(rv.Float(), decimal.Decimal{}), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.String:
		return strconv.Quote(rv.String()), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return "None", nil
		}
		return Literal(rv.Elem().Interface())
	}
	return "", fmt.Errorf("unsupported parameter type %T", v)
}

// floatLiteral 浮点字面量：常规量级用 decimal 的最短精确表示，极大极小量级用科学计数法
func floatLiteral(v float64, d decimal.Decimal) string {
	switch {
	case math.IsNaN(v):
		return "float('nan')"
	case math.IsInf(v, 1):
		return "float('inf')"
	case math.IsInf(v, -1):
		return "float('-inf')"
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	if d.IsZero() {
		d = decimal.NewFromFloat(v)
	}
	s := d.String()
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
